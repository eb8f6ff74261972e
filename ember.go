package ember

import (
	"hash/fnv"
	"math"
)

// Vec3 is a 3D vector used for positions, velocities, and directions
// throughout the API.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Length returns the Euclidean length of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalized returns v scaled to unit length, or the zero vector if v is
// shorter than eps.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l < eps {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// eps guards divisions by near-zero lengths and denominators.
const eps = 1e-6

// Vector4 is a 4-component vector, used for render constants.
type Vector4 struct {
	X, Y, Z, W float64
}

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default particle tint (no color modification).
var ColorWhite = Color{1, 1, 1, 1}

// Hash is a 64-bit name hash. Emitter ids, animation names, and render
// constant names are addressed by hash so callers never pass strings on the
// per-frame path.
type Hash uint64

// HashString returns the FNV-1a hash of s.
func HashString(s string) Hash {
	h := fnv.New64a()
	h.Write([]byte(s))
	return Hash(h.Sum64())
}

// BlendMode selects a compositing operation for an emitter's particles.
type BlendMode uint8

const (
	BlendNormal   BlendMode = iota // source-over (standard alpha blending)
	BlendAdd                       // additive
	BlendMultiply                  // multiplicative
	BlendScreen                    // screen
)

// transform is a position / rotation-about-Z / uniform-scale frame.
// Emitter and instance transforms compose through it.
type transform struct {
	pos   Vec3
	rot   float64 // radians
	scale float64
}

func identityTransform() transform {
	return transform{scale: 1}
}

// mul returns the composition t ∘ o (o applied first).
func (t transform) mul(o transform) transform {
	return transform{
		pos:   t.apply(o.pos),
		rot:   t.rot + o.rot,
		scale: t.scale * o.scale,
	}
}

// apply transforms the point p: scale, rotate, then translate.
func (t transform) apply(p Vec3) Vec3 {
	sin, cos := math.Sincos(t.rot)
	x := p.X * t.scale
	y := p.Y * t.scale
	return Vec3{
		X: cos*x - sin*y + t.pos.X,
		Y: sin*x + cos*y + t.pos.Y,
		Z: p.Z*t.scale + t.pos.Z,
	}
}

// applyVec transforms the direction v: scale and rotate, no translation.
func (t transform) applyVec(v Vec3) Vec3 {
	sin, cos := math.Sincos(t.rot)
	x := v.X * t.scale
	y := v.Y * t.scale
	return Vec3{
		X: cos*x - sin*y,
		Y: sin*x + cos*y,
		Z: v.Z * t.scale,
	}
}

// inverse returns the transform that undoes t.
func (t transform) inverse() transform {
	inv := transform{rot: -t.rot, scale: 1 / t.scale}
	inv.pos = inv.applyVec(t.pos).Scale(-1)
	return inv
}

// lerp linearly interpolates between a and b by t.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
