package ember

import "math"

// modifier is the per-emitter runtime state of one ModifierDef. The
// magnitude spread sample is drawn once when the emitter starts so a
// modifier's strength stays coherent for the whole emission; the spatial
// fields are re-resolved every update into the space the particles live in.
type modifier struct {
	def       *ModifierDef
	magSpread float64

	// resolved each update
	direction Vec3
	center    Vec3
	magnitude float64
	maxDistSq float64 // <= 0 means unbounded
}

// resolve maps the modifier into particle space and evaluates its magnitude
// at the emitter's current progress. For world-space particles with an
// emitter-space modifier (and vice versa) t carries the mapping between the
// two spaces; for matching spaces t is the identity.
func (m *modifier) resolve(t transform, progress float64) {
	m.center = t.apply(m.def.Center)
	m.direction = t.applyVec(m.def.Direction).Normalized()
	m.magnitude = m.def.Magnitude.Sample(progress, m.magSpread)
	if m.def.MaxDistance > 0 {
		d := m.def.MaxDistance * t.scale
		m.maxDistSq = d * d
	} else {
		m.maxDistSq = 0
	}
}

// velocityDelta computes the velocity change this modifier contributes over
// dt for a particle at pos moving with vel. Deltas from all modifiers are
// summed against the particle's velocity at the start of the step, so the
// order modifiers are listed in does not change the result.
func (m *modifier) velocityDelta(pos, vel Vec3, dt float64) Vec3 {
	if m.maxDistSq > 0 {
		d := pos.Sub(m.center)
		if d.Dot(d) > m.maxDistSq {
			return Vec3{}
		}
	}
	switch m.def.Kind {
	case ModifierAcceleration:
		return m.direction.Scale(m.magnitude * dt)
	case ModifierDrag:
		return m.dragDelta(vel, dt)
	case ModifierRadial:
		return m.radialDelta(pos, dt)
	case ModifierVortex:
		return m.vortexDelta(pos, dt)
	}
	return Vec3{}
}

// dragDelta opposes motion without ever reversing it. With a direction set
// only the velocity component along that axis is damped; otherwise the full
// velocity is. The reduction is clamped to the opposed speed so a large
// magnitude stops the particle dead instead of bouncing it backwards.
func (m *modifier) dragDelta(vel Vec3, dt float64) Vec3 {
	if m.direction.Length() >= eps {
		along := vel.Dot(m.direction)
		speed := math.Abs(along)
		if speed < eps {
			return Vec3{}
		}
		reduction := math.Min(m.magnitude*dt, speed)
		if along > 0 {
			reduction = -reduction
		}
		return m.direction.Scale(reduction)
	}
	speed := vel.Length()
	if speed < eps {
		return Vec3{}
	}
	reduction := math.Min(m.magnitude*dt, speed)
	return vel.Scale(-reduction / speed)
}

// radialDelta pushes particles straight away from the center. A negative
// magnitude attracts instead. A particle sitting exactly on the center has
// no meaningful outward direction; it is pushed along +X so the force stays
// finite.
func (m *modifier) radialDelta(pos Vec3, dt float64) Vec3 {
	d := pos.Sub(m.center)
	dist := d.Length()
	dir := Vec3{X: 1}
	if dist >= eps {
		dir = d.Scale(1 / dist)
	}
	return dir.Scale(m.magnitude * dt)
}

// vortexDelta pushes particles clockwise around the center in the XY plane.
// A particle on the center gets the tangent of a point just above it.
func (m *modifier) vortexDelta(pos Vec3, dt float64) Vec3 {
	d := pos.Sub(m.center)
	tangent := Vec3{X: d.Y, Y: -d.X}
	length := tangent.Length()
	if length < eps {
		tangent = Vec3{Y: -1}
	} else {
		tangent = tangent.Scale(1 / length)
	}
	return tangent.Scale(m.magnitude * dt)
}
