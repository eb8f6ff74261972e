package ember

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func decodeVertices(buf []byte) []Vertex {
	out := make([]Vertex, len(buf)/VertexSize)
	for i := range out {
		off := i * VertexSize
		out[i] = Vertex{
			X: math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:])),
			Z: math.Float32frombits(binary.LittleEndian.Uint32(buf[off+8:])),
			U: binary.LittleEndian.Uint16(buf[off+12:]),
			V: binary.LittleEndian.Uint16(buf[off+14:]),
		}
	}
	return out
}

// renderContext builds a started single-emitter instance whose particle
// list the test can poke directly.
func renderContext(t *testing.T, doc string) (*Context, Handle, *emitter) {
	t.Helper()
	c := NewContext(4, 256)
	p := mustPrototype(t, doc)
	h, err := c.CreateInstance(p)
	if err != nil {
		t.Fatal(err)
	}
	in, err := c.resolve(h)
	if err != nil {
		t.Fatal(err)
	}
	return c, h, in.emitters[0]
}

func TestVertexBufferSize(t *testing.T) {
	if VertexSize != 16 {
		t.Fatalf("VertexSize = %d, want 16", VertexSize)
	}
	if got := VertexBufferSize(3); got != 3*6*16 {
		t.Errorf("VertexBufferSize(3) = %d, want %d", got, 3*6*16)
	}
}

func TestRenderEmitsQuad(t *testing.T) {
	c, _, e := renderContext(t, `
emitters:
  - id: one
    spawn_rate: 1
`)
	e.particles = append(e.particles, particle{
		pos: Vec3{X: 10, Y: 20, Z: 3}, size: 4, angle: 0,
		life: 1, timeLeft: 1,
	})

	buf := make([]byte, VertexBufferSize(1))
	n, err := c.Render(buf, nil, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("wrote %d bytes, want %d", n, len(buf))
	}

	v := decodeVertices(buf)
	// 6-vertex N pattern: BL, TL, TR, TR, BL, BR around (10, 20) ± 2.
	wantPos := [6][2]float32{
		{8, 18}, {8, 22}, {12, 22}, {12, 22}, {8, 18}, {12, 18},
	}
	wantUV := [6][2]uint16{
		{0, 65535}, {0, 0}, {65535, 0}, {65535, 0}, {0, 65535}, {65535, 65535},
	}
	for i := range v {
		if v[i].X != wantPos[i][0] || v[i].Y != wantPos[i][1] {
			t.Errorf("vertex %d pos = (%v, %v), want (%v, %v)", i, v[i].X, v[i].Y, wantPos[i][0], wantPos[i][1])
		}
		if v[i].Z != 3 {
			t.Errorf("vertex %d z = %v, want 3", i, v[i].Z)
		}
		if v[i].U != wantUV[i][0] || v[i].V != wantUV[i][1] {
			t.Errorf("vertex %d uv = (%d, %d), want (%d, %d)", i, v[i].U, v[i].V, wantUV[i][0], wantUV[i][1])
		}
	}
}

func TestRenderRotatesQuad(t *testing.T) {
	c, _, e := renderContext(t, `
emitters:
  - id: one
    spawn_rate: 1
`)
	e.particles = append(e.particles, particle{
		size: 2, angle: math.Pi / 2, life: 1, timeLeft: 1,
	})

	buf := make([]byte, VertexBufferSize(1))
	if _, err := c.Render(buf, nil, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}
	v := decodeVertices(buf)
	// BL corner (-1,-1) rotated 90deg CCW lands at (1,-1).
	assertNear(t, "BL.X", float64(v[0].X), 1)
	assertNear(t, "BL.Y", float64(v[0].Y), -1)
}

func TestEmitterSpaceAppliesInstanceTransformAtRender(t *testing.T) {
	c, h, e := renderContext(t, `
emitters:
  - id: one
    space: emitter
    spawn_rate: 1
`)
	e.particles = append(e.particles, particle{
		pos: Vec3{X: 1}, size: 2, life: 1, timeLeft: 1,
	})
	c.SetPosition(h, Vec3{X: 100})
	c.SetScale(h, 2)

	buf := make([]byte, VertexBufferSize(1))
	if _, err := c.Render(buf, nil, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}
	v := decodeVertices(buf)
	// Center at 100 + 1*2 = 102, half-extent 2*2/2 = 2.
	assertNear(t, "BL.X", float64(v[0].X), 100)
	assertNear(t, "TR.X", float64(v[2].X), 104)
}

func TestRenderAspectCorrection(t *testing.T) {
	c, _, e := renderContext(t, `
emitters:
  - id: one
    spawn_rate: 1
    tile_source: src
    animation: anim
`)
	e.animOK = true
	e.anim = AnimationData{
		TexCoords:  []float32{0.25, 0.25, 0.75, 0.75},
		TileWidth:  32,
		TileHeight: 16,
		StartTile:  1,
		EndTile:    1,
	}
	e.particles = append(e.particles, particle{size: 4, life: 1, timeLeft: 1})

	buf := make([]byte, VertexBufferSize(1))
	if _, err := c.Render(buf, nil, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}
	v := decodeVertices(buf)
	// A 32x16 tile keeps full width and halves the height.
	assertNear(t, "TR.X", float64(v[2].X), 2)
	assertNear(t, "TR.Y", float64(v[2].Y), 1)
	// Tile texture coordinates, quantized to 16 bits.
	if v[2].U != uint16(math.Round(0.75*65535)) || v[2].V != uint16(math.Round(0.25*65535)) {
		t.Errorf("TR uv = (%d, %d)", v[2].U, v[2].V)
	}
}

func TestRenderBufferTruncation(t *testing.T) {
	c, _, e := renderContext(t, `
emitters:
  - id: one
    spawn_rate: 1
`)
	const k = 3
	for i := 0; i < k+1; i++ {
		e.particles = append(e.particles, particle{
			size: 1, life: 1, timeLeft: float64(k+1-i), pos: Vec3{X: float64(i)},
		})
	}

	buf := make([]byte, VertexBufferSize(k)+5) // room for k quads plus slack
	sentinel := buf[VertexBufferSize(k):]
	for i := range sentinel {
		sentinel[i] = 0xAB
	}

	n, err := c.Render(buf, nil, nil)
	var tooSmall *BufferTooSmallError
	if !errors.As(err, &tooSmall) {
		t.Fatalf("Render error = %v, want BufferTooSmallError", err)
	}
	if n != VertexBufferSize(k) {
		t.Errorf("wrote %d bytes, want %d", n, VertexBufferSize(k))
	}
	if tooSmall.Written != VertexBufferSize(k) || tooSmall.Required != VertexBufferSize(k+1) {
		t.Errorf("error = %+v", tooSmall)
	}
	for i, b := range sentinel {
		if b != 0xAB {
			t.Fatalf("byte %d past the whole-particle boundary was written", i)
		}
	}
}

func TestRenderSortsNewestFirst(t *testing.T) {
	c, _, e := renderContext(t, `
emitters:
  - id: one
    spawn_rate: 1
`)
	// Spawn order a, b, c with time_left 1, 3, 2.
	e.particles = append(e.particles,
		particle{pos: Vec3{X: 1}, size: 1, life: 3, timeLeft: 1},
		particle{pos: Vec3{X: 2}, size: 1, life: 3, timeLeft: 3},
		particle{pos: Vec3{X: 3}, size: 1, life: 3, timeLeft: 2},
	)
	buf := make([]byte, VertexBufferSize(3))
	if _, err := c.Render(buf, nil, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}
	// Quad centers recoverable as midpoint of BL and TR.
	centers := quadCenters(buf)
	want := []float64{2, 3, 1}
	for i, x := range want {
		assertNear(t, "center", centers[i], x)
	}
}

func TestRenderSortIsStable(t *testing.T) {
	c, _, e := renderContext(t, `
emitters:
  - id: one
    spawn_rate: 1
`)
	// Four particles with equal time_left keep spawn order.
	for i := 0; i < 4; i++ {
		e.particles = append(e.particles, particle{
			pos: Vec3{X: float64(i)}, size: 1, life: 1, timeLeft: 1,
		})
	}
	buf := make([]byte, VertexBufferSize(4))
	render := func() []float64 {
		if _, err := c.Render(buf, nil, nil); err != nil {
			t.Fatalf("Render: %v", err)
		}
		return quadCenters(buf)
	}

	centers := render()
	for i, x := range []float64{0, 1, 2, 3} {
		assertNear(t, "stable order", centers[i], x)
	}

	// Aging one particle moves only it; the tie group keeps its order.
	e.particles[1].timeLeft = 0.5
	centers = render()
	for i, x := range []float64{0, 2, 3, 1} {
		assertNear(t, "disturbed order", centers[i], x)
	}
}

func quadCenters(buf []byte) []float64 {
	v := decodeVertices(buf)
	var out []float64
	for i := 0; i+5 < len(v); i += 6 {
		out = append(out, float64(v[i].X+v[i+2].X)/2)
	}
	return out
}

type batchRecord struct {
	material, texture any
	blend             BlendMode
	offset, count     int
	constants         []RenderConstant
}

func collectBatches(dst *[]batchRecord) RenderFunc {
	return func(userCtx any, material, texture any, blend BlendMode, off, count int, constants []RenderConstant) {
		*dst = append(*dst, batchRecord{material, texture, blend, off, count, constants})
	}
}

const tripleDoc = `
emitters:
  - id: a
    spawn_rate: 1
  - id: b
    spawn_rate: 1
  - id: c
    spawn_rate: 1
    blend_mode: add
`

func seedOneParticleEach(c *Context, h Handle) {
	in, _ := c.resolve(h)
	for _, e := range in.emitters {
		e.particles = append(e.particles, particle{size: 1, life: 1, timeLeft: 1})
	}
}

func TestRenderBatchesAdjacentEmitters(t *testing.T) {
	c := NewContext(4, 64)
	p := mustPrototype(t, tripleDoc)
	h, err := c.CreateInstance(p)
	if err != nil {
		t.Fatal(err)
	}
	seedOneParticleEach(c, h)

	var batches []batchRecord
	buf := make([]byte, VertexBufferSize(3))
	if _, err := c.Render(buf, nil, collectBatches(&batches)); err != nil {
		t.Fatalf("Render: %v", err)
	}

	// a and b share material/texture/blend; c blends additively.
	if len(batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(batches))
	}
	if batches[0].count != 12 || batches[0].offset != 0 {
		t.Errorf("batch 0 = %+v", batches[0])
	}
	if batches[1].count != 6 || batches[1].blend != BlendAdd {
		t.Errorf("batch 1 = %+v", batches[1])
	}
	if batches[1].offset != VertexBufferSize(2) {
		t.Errorf("batch 1 offset = %d", batches[1].offset)
	}
}

func TestRenderSplitsOnMaterial(t *testing.T) {
	c := NewContext(4, 64)
	p := mustPrototype(t, `
emitters:
  - id: a
    spawn_rate: 1
  - id: b
    spawn_rate: 1
`)
	p.SetMaterial(1, "other")
	h, err := c.CreateInstance(p)
	if err != nil {
		t.Fatal(err)
	}
	seedOneParticleEach(c, h)

	var batches []batchRecord
	buf := make([]byte, VertexBufferSize(2))
	if _, err := c.Render(buf, nil, collectBatches(&batches)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(batches))
	}
	if batches[1].material != "other" {
		t.Errorf("batch 1 material = %v", batches[1].material)
	}
}

func TestRenderConstantsForceOwnBatch(t *testing.T) {
	c := NewContext(4, 64)
	p := mustPrototype(t, tripleDoc)
	h, err := c.CreateInstance(p)
	if err != nil {
		t.Fatal(err)
	}
	seedOneParticleEach(c, h)

	tint := HashString("tint")
	v := Vector4{X: 1}
	if err := c.SetRenderConstant(h, HashString("a"), tint, v); err != nil {
		t.Fatal(err)
	}

	var batches []batchRecord
	buf := make([]byte, VertexBufferSize(3))
	if _, err := c.Render(buf, nil, collectBatches(&batches)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	// a is forced out of the a+b batch by its override.
	if len(batches) != 3 {
		t.Fatalf("batches = %d, want 3", len(batches))
	}
	if len(batches[0].constants) != 1 || batches[0].constants[0].Name != tint || batches[0].constants[0].Value != v {
		t.Errorf("batch 0 constants = %+v", batches[0].constants)
	}
	if len(batches[1].constants) != 0 {
		t.Errorf("batch 1 constants = %+v", batches[1].constants)
	}
}

func TestRenderSuppressesFailedFetch(t *testing.T) {
	c, _, e := renderContext(t, `
emitters:
  - id: one
    spawn_rate: 1
    tile_source: src
    animation: burn
`)
	e.particles = append(e.particles, particle{size: 1, life: 1, timeLeft: 1})
	e.animOK = false // unresolved fetch

	var batches []batchRecord
	buf := make([]byte, VertexBufferSize(1))
	n, err := c.Render(buf, nil, collectBatches(&batches))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if n != 0 || len(batches) != 0 {
		t.Errorf("suppressed emitter wrote %d bytes in %d batches", n, len(batches))
	}
}

func TestRenderBatchesAcrossInstances(t *testing.T) {
	c := NewContext(4, 64)
	p := mustPrototype(t, "emitters:\n  - id: a\n    spawn_rate: 1\n")
	h1, _ := c.CreateInstance(p)
	h2, _ := c.CreateInstance(p)
	seedOneParticleEach(c, h1)
	seedOneParticleEach(c, h2)

	var batches []batchRecord
	buf := make([]byte, VertexBufferSize(2))
	if _, err := c.Render(buf, nil, collectBatches(&batches)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(batches) != 1 || batches[0].count != 12 {
		t.Fatalf("batches = %+v, want one batch of 12 vertices", batches)
	}
}

func BenchmarkRender(b *testing.B) {
	c := NewContext(4, 1024)
	p, err := NewPrototype([]byte(`
emitters:
  - id: bench
    mode: loop
    duration: 1
    max_particles: 1024
    spawn_rate: 400
    particle_life: 2
    particle_speed: 20
`))
	if err != nil {
		b.Fatal(err)
	}
	h, _ := c.CreateInstance(p)
	c.StartInstance(h)
	for i := 0; i < 120; i++ {
		c.Update(1.0/60, nil)
	}
	buf := make([]byte, VertexBufferSize(1024))
	cb := func(any, any, any, BlendMode, int, int, []RenderConstant) {}
	for b.Loop() {
		if _, err := c.Render(buf, nil, cb); err != nil {
			b.Fatal(err)
		}
	}
}
