package ebitenx

import (
	"encoding/binary"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/ember"
)

// TintConstant is the render-constant name the renderer understands: a
// Vector4 RGBA scale applied to every vertex of the emitter's batch. Set it
// with Context.SetRenderConstant to tint one emitter per instance.
var TintConstant = ember.HashString("tint")

// Renderer converts ember vertex buffers into DrawTriangles calls. It keeps
// its vertex buffer, scratch slices and index table between frames, so a
// steady particle load draws without allocating.
//
// A Renderer is not safe for concurrent use.
type Renderer struct {
	buf      []byte
	vertices []ebiten.Vertex
	indices  []uint32
	dst      *ebiten.Image
}

// NewRenderer sizes the internal vertex buffer for maxParticles live
// particles across all instances of the contexts it draws.
func NewRenderer(maxParticles int) *Renderer {
	return &Renderer{
		buf: make([]byte, ember.VertexBufferSize(maxParticles)),
	}
}

// Draw emits every live particle of c and draws it onto dst. Truncation to
// the renderer's particle capacity is reported via
// *ember.BufferTooSmallError after drawing what fit.
func (r *Renderer) Draw(dst *ebiten.Image, c *ember.Context) error {
	r.dst = dst
	_, err := c.Render(r.buf, r, drawBatch)
	r.dst = nil
	return err
}

// drawBatch is the ember.RenderFunc bridging one batch to DrawTriangles.
func drawBatch(userCtx any, material, texture any, blend ember.BlendMode, off, count int, constants []ember.RenderConstant) {
	r := userCtx.(*Renderer)

	img, _ := texture.(*ebiten.Image)
	if img == nil {
		img = whiteImage()
	}
	b := img.Bounds()
	sw := float32(b.Dx())
	sh := float32(b.Dy())

	cr, cg, cb, ca := float32(1), float32(1), float32(1), float32(1)
	for _, c := range constants {
		if c.Name == TintConstant {
			cr = float32(c.Value.X)
			cg = float32(c.Value.Y)
			cb = float32(c.Value.Z)
			ca = float32(c.Value.W)
		}
	}

	r.vertices = appendVertices(r.vertices[:0], r.buf[off:off+count*ember.VertexSize], sw, sh, cr, cg, cb, ca)
	for len(r.indices) < count {
		r.indices = append(r.indices, uint32(len(r.indices)))
	}

	var op ebiten.DrawTrianglesOptions
	op.Blend = ebitenBlend(blend)
	r.dst.DrawTriangles32(r.vertices, r.indices[:count], img, &op)
}

// appendVertices decodes ember's packed vertex layout into ebiten vertices.
// Z is dropped; the 16-bit texture coordinates are rescaled to texels of
// the source image.
func appendVertices(dst []ebiten.Vertex, buf []byte, sw, sh, cr, cg, cb, ca float32) []ebiten.Vertex {
	for off := 0; off+ember.VertexSize <= len(buf); off += ember.VertexSize {
		x := math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
		y := math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:]))
		u := float32(binary.LittleEndian.Uint16(buf[off+12:])) / 65535
		v := float32(binary.LittleEndian.Uint16(buf[off+14:])) / 65535
		dst = append(dst, ebiten.Vertex{
			DstX:   x,
			DstY:   y,
			SrcX:   u * sw,
			SrcY:   v * sh,
			ColorR: cr,
			ColorG: cg,
			ColorB: cb,
			ColorA: ca,
		})
	}
	return dst
}

// white placeholder singleton for emitters without a tile source
// (no sync.Once — the renderer is single-threaded)
var whiteImg *ebiten.Image

func whiteImage() *ebiten.Image {
	if whiteImg == nil {
		whiteImg = ebiten.NewImage(1, 1)
		whiteImg.Fill(color.White)
	}
	return whiteImg
}

// ebitenBlend maps ember blend modes onto ebiten blend states.
func ebitenBlend(b ember.BlendMode) ebiten.Blend {
	switch b {
	case ember.BlendAdd:
		return ebiten.BlendLighter
	case ember.BlendMultiply:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorDestinationColor,
			BlendFactorSourceAlpha:      ebiten.BlendFactorDestinationAlpha,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceAlpha,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case ember.BlendScreen:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorOne,
			BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceColor,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	default:
		return ebiten.BlendSourceOver
	}
}
