package ember

import (
	"cmp"
	"encoding/binary"
	"math"
	"slices"
)

// VertexSize is the byte size of one vertex: position as three float32
// followed by a normalized uint16 texture coordinate pair, little-endian.
const VertexSize = 3*4 + 2*2

// VerticesPerParticle is the number of vertices each particle emits; two
// triangles covering its quad.
const VerticesPerParticle = 6

// Vertex mirrors the wire layout of one vertex in a Render buffer. Render
// writes raw bytes; this struct exists for consumers that want to decode
// them.
type Vertex struct {
	X, Y, Z float32
	U, V    uint16
}

// VertexBufferSize returns the buffer size in bytes needed to hold
// particleCount particles' worth of vertices.
func VertexBufferSize(particleCount int) int {
	return particleCount * VerticesPerParticle * VertexSize
}

// RenderFunc receives one batch of vertex data. vertexByteOffset and
// vertexCount delimit the batch within the buffer passed to Render;
// material and texture are the opaque handles bound on the prototype and
// tile source. constants holds the instance's overrides for the batch's
// emitter, or nil for a multi-emitter batch.
type RenderFunc func(userCtx any, material, texture any, blend BlendMode, vertexByteOffset, vertexCount int, constants []RenderConstant)

// Render sorts each emitter's particles, writes their quads into buf and
// invokes cb once per maximal run of adjacent emitters sharing material,
// texture and blend mode. An emitter carrying render-constant overrides is
// always its own batch. Emitters whose bound animation failed to resolve in
// the last Update emit nothing.
//
// Render returns the number of bytes written. When buf cannot hold every
// live particle it truncates to whole particles and returns a
// *BufferTooSmallError carrying the byte count a full emission would have
// needed.
func (c *Context) Render(buf []byte, userCtx any, cb RenderFunc) (int, error) {
	written := 0
	required := 0

	var batch struct {
		open      bool
		material  any
		texture   any
		blend     BlendMode
		offset    int
		count     int
		constants []RenderConstant
	}
	flush := func() {
		if batch.open && cb != nil {
			cb(userCtx, batch.material, batch.texture, batch.blend, batch.offset, batch.count, batch.constants)
		}
		batch.open = false
		batch.constants = nil
	}

	for _, in := range c.slots {
		if in == nil {
			continue
		}
		for _, e := range in.emitters {
			if len(e.particles) == 0 {
				continue
			}
			if e.hasAnim && !e.animOK {
				continue
			}

			// Newest particles first. The sort must be stable so
			// equal-lifetime particles keep spawn order and do not
			// flicker-swap between frames.
			slices.SortStableFunc(e.particles, func(a, b particle) int {
				return cmp.Compare(b.timeLeft, a.timeLeft)
			})

			required += VertexBufferSize(len(e.particles))
			fit := (len(buf) - written) / (VerticesPerParticle * VertexSize)
			if fit > len(e.particles) {
				fit = len(e.particles)
			}
			if fit <= 0 {
				continue
			}

			constants := in.emitterConstants(e)
			material := in.prototype.materialAt(e.index)
			texture := e.anim.Texture
			sameKey := batch.open &&
				batch.material == material &&
				batch.texture == texture &&
				batch.blend == e.def.BlendMode
			if !sameKey || len(constants) > 0 || len(batch.constants) > 0 {
				flush()
			}
			if !batch.open {
				batch.open = true
				batch.material = material
				batch.texture = texture
				batch.blend = e.def.BlendMode
				batch.offset = written
				batch.count = 0
				batch.constants = constants
			}

			n := e.writeVertices(buf[written:], fit, in.xf)
			written += n
			batch.count += n / VertexSize
		}
	}
	flush()

	if required > written {
		return written, &BufferTooSmallError{Required: required, Written: written}
	}
	return written, nil
}

// writeVertices emits the first count particles of the emitter into buf and
// returns the bytes written. Emitter-space particles pick up the instance
// transform here; world-space particles had it baked in at spawn.
func (e *emitter) writeVertices(buf []byte, count int, instXf transform) int {
	var u0, v0, u1, v1 float32 = 0, 0, 1, 1
	wf, hf := 1.0, 1.0
	if e.animOK {
		wf, hf = e.anim.aspect()
	}

	local := e.def.Space == SpaceEmitter
	off := 0
	for i := 0; i < count; i++ {
		p := &e.particles[i]

		pos := p.pos
		size := p.size
		angle := p.angle
		if local {
			pos = instXf.apply(pos)
			size *= instXf.scale
			angle += instXf.rot
		}
		if e.animOK {
			u0, v0, u1, v1 = e.anim.tileUV(p.frame)
		}

		hw := 0.5 * size * wf
		hh := 0.5 * size * hf
		sin, cos := math.Sincos(angle)

		x := float32(pos.X)
		y := float32(pos.Y)
		z := float32(pos.Z)
		// Rotated quad axes.
		ax, ay := float32(hw*cos), float32(hw*sin)
		bx, by := float32(-hh*sin), float32(hh*cos)

		us0, vs0 := texCoord16(u0), texCoord16(v0)
		us1, vs1 := texCoord16(u1), texCoord16(v1)

		// Two triangles sharing the bottom-left/top-right diagonal:
		// BL, TL, TR, TR, BL, BR.
		off = putVertex(buf, off, x-ax-bx, y-ay-by, z, us0, vs1)
		off = putVertex(buf, off, x-ax+bx, y-ay+by, z, us0, vs0)
		off = putVertex(buf, off, x+ax+bx, y+ay+by, z, us1, vs0)
		off = putVertex(buf, off, x+ax+bx, y+ay+by, z, us1, vs0)
		off = putVertex(buf, off, x-ax-bx, y-ay-by, z, us0, vs1)
		off = putVertex(buf, off, x+ax-bx, y+ay-by, z, us1, vs1)
	}
	return off
}

func texCoord16(c float32) uint16 {
	return uint16(math.Round(float64(clamp01f(c)) * 65535))
}

func clamp01f(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func putVertex(buf []byte, off int, x, y, z float32, u, v uint16) int {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(x))
	binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(y))
	binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(z))
	binary.LittleEndian.PutUint16(buf[off+12:], u)
	binary.LittleEndian.PutUint16(buf[off+14:], v)
	return off + VertexSize
}
