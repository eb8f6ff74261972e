package ember

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates up to 3 float64 components of an instance's world
// transform simultaneously. Create one via the convenience constructors
// (TweenPosition, TweenRotation, TweenScale) and call Update(dt) each
// frame. Values are applied through the owning Context; if the instance is
// destroyed mid-tween, the group stops immediately.
//
// There is no global animation manager — users call Update themselves.
type TweenGroup struct {
	tweens [3]*gween.Tween
	count  int
	ctx    *Context
	handle Handle
	apply  func(c *Context, h Handle, vals [3]float64) error
	Done   bool
}

// Update advances all tweens by dt seconds and applies the values to the
// target instance. If the instance's handle has gone stale, Done is set to
// true and no writes occur.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}

	var vals [3]float64
	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		vals[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	if err := g.apply(g.ctx, g.handle, vals); err != nil {
		g.Done = true
		return
	}
	g.Done = allDone
}

// TweenPosition creates a TweenGroup that animates the instance's world
// position to the given target over the specified duration using the easing
// function. A stale handle yields an already-finished group.
func TweenPosition(c *Context, h Handle, to Vec3, duration float32, fn ease.TweenFunc) *TweenGroup {
	from, err := c.GetPosition(h)
	if err != nil {
		return &TweenGroup{Done: true}
	}
	g := &TweenGroup{count: 3, ctx: c, handle: h}
	g.tweens[0] = gween.New(float32(from.X), float32(to.X), duration, fn)
	g.tweens[1] = gween.New(float32(from.Y), float32(to.Y), duration, fn)
	g.tweens[2] = gween.New(float32(from.Z), float32(to.Z), duration, fn)
	g.apply = func(c *Context, h Handle, vals [3]float64) error {
		return c.SetPosition(h, Vec3{X: vals[0], Y: vals[1], Z: vals[2]})
	}
	return g
}

// TweenRotation creates a TweenGroup that animates the instance's world
// rotation to the target angle in radians.
func TweenRotation(c *Context, h Handle, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	from, err := c.GetRotation(h)
	if err != nil {
		return &TweenGroup{Done: true}
	}
	g := &TweenGroup{count: 1, ctx: c, handle: h}
	g.tweens[0] = gween.New(float32(from), float32(to), duration, fn)
	g.apply = func(c *Context, h Handle, vals [3]float64) error {
		return c.SetRotation(h, vals[0])
	}
	return g
}

// TweenScale creates a TweenGroup that animates the instance's uniform
// world scale to the target value.
func TweenScale(c *Context, h Handle, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	from, err := c.GetScale(h)
	if err != nil {
		return &TweenGroup{Done: true}
	}
	g := &TweenGroup{count: 1, ctx: c, handle: h}
	g.tweens[0] = gween.New(float32(from), float32(to), duration, fn)
	g.apply = func(c *Context, h Handle, vals [3]float64) error {
		return c.SetScale(h, vals[0])
	}
	return g
}
