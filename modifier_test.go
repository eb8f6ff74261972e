package ember

import (
	"math"
	"testing"
)

func testModifier(def ModifierDef) *modifier {
	m := &modifier{def: &def}
	m.resolve(identityTransform(), 0)
	return m
}

func TestAccelerationDelta(t *testing.T) {
	m := testModifier(ModifierDef{
		Kind:      ModifierAcceleration,
		Direction: Vec3{Y: -2}, // non-unit, must be normalized
		Magnitude: ConstantProperty(10),
	})
	delta := m.velocityDelta(Vec3{}, Vec3{}, 0.5)
	assertVecNear(t, "delta", delta, Vec3{Y: -5})
}

func TestAccelerationInEmitterFrame(t *testing.T) {
	def := ModifierDef{
		Kind:      ModifierAcceleration,
		Direction: Vec3{Y: 1},
		Magnitude: ConstantProperty(10),
	}
	m := &modifier{def: &def}
	// Emitter frame rotated 90deg CCW: local +Y becomes world -X.
	m.resolve(transform{rot: math.Pi / 2, scale: 1}, 0)
	delta := m.velocityDelta(Vec3{}, Vec3{}, 1)
	assertVecNear(t, "delta", delta, Vec3{X: -10})
}

func TestDragReducesSpeed(t *testing.T) {
	m := testModifier(ModifierDef{
		Kind:      ModifierDrag,
		Magnitude: ConstantProperty(2),
	})
	vel := Vec3{X: 10}
	delta := m.velocityDelta(Vec3{}, vel, 0.5)
	assertVecNear(t, "delta", delta, Vec3{X: -1})
}

func TestDragNeverReverses(t *testing.T) {
	// A huge magnitude stops the particle dead instead of bouncing it.
	m := testModifier(ModifierDef{
		Kind:      ModifierDrag,
		Magnitude: ConstantProperty(1e6),
	})
	vel := Vec3{X: 3, Y: -4}
	delta := m.velocityDelta(Vec3{}, vel, 1)
	assertVecNear(t, "stopped", vel.Add(delta), Vec3{})
}

func TestDragAtRestIsInert(t *testing.T) {
	m := testModifier(ModifierDef{
		Kind:      ModifierDrag,
		Magnitude: ConstantProperty(100),
	})
	delta := m.velocityDelta(Vec3{}, Vec3{}, 1)
	assertVecNear(t, "delta", delta, Vec3{})
}

func TestDirectionalDragDampsOnlyAxis(t *testing.T) {
	m := testModifier(ModifierDef{
		Kind:      ModifierDrag,
		Direction: Vec3{X: 1},
		Magnitude: ConstantProperty(2),
	})
	vel := Vec3{X: 10, Y: 7}
	delta := m.velocityDelta(Vec3{}, vel, 1)
	assertVecNear(t, "delta", delta, Vec3{X: -2})

	// Clamped to the axis component even for huge magnitudes; the
	// cross-axis speed survives.
	m = testModifier(ModifierDef{
		Kind:      ModifierDrag,
		Direction: Vec3{X: 1},
		Magnitude: ConstantProperty(1e9),
	})
	after := vel.Add(m.velocityDelta(Vec3{}, vel, 1))
	assertVecNear(t, "clamped", after, Vec3{Y: 7})
}

func TestDirectionalDragOpposesNegativeComponent(t *testing.T) {
	m := testModifier(ModifierDef{
		Kind:      ModifierDrag,
		Direction: Vec3{X: 1},
		Magnitude: ConstantProperty(2),
	})
	vel := Vec3{X: -10}
	delta := m.velocityDelta(Vec3{}, vel, 1)
	assertVecNear(t, "delta", delta, Vec3{X: 2})
}

// Directional drag against a nearly perpendicular velocity must shrink the
// opposed component toward zero, never amplify it.
func TestDirectionalDragNearPerpendicular(t *testing.T) {
	m := testModifier(ModifierDef{
		Kind:      ModifierDrag,
		Direction: Vec3{X: 1},
		Magnitude: ConstantProperty(50),
	})
	r := newEmitterRand(123)
	for i := 0; i < 1000; i++ {
		// Velocities within a sliver of the Y axis, including exactly on it.
		angle := math.Pi/2 + 1e-7*r.spread()
		speed := 1 + 99*r.float64()
		vel := Vec3{X: speed * math.Cos(angle), Y: speed * math.Sin(angle)}

		after := vel.Add(m.velocityDelta(Vec3{}, vel, 1.0/60))
		if math.IsNaN(after.X) || math.IsNaN(after.Y) {
			t.Fatalf("NaN velocity for input %+v", vel)
		}
		if math.Abs(after.X) > math.Abs(vel.X)+1e-12 {
			t.Fatalf("axis component grew: |%v| -> |%v|", vel.X, after.X)
		}
		if after.X*vel.X < 0 {
			t.Fatalf("axis component reversed: %v -> %v", vel.X, after.X)
		}
		assertNear(t, "cross component", after.Y, vel.Y)
	}
}

func TestRadialPushesAway(t *testing.T) {
	m := testModifier(ModifierDef{
		Kind:      ModifierRadial,
		Center:    Vec3{X: 1},
		Magnitude: ConstantProperty(6),
	})
	delta := m.velocityDelta(Vec3{X: 4, Y: 4}, Vec3{}, 0.5)
	// Direction (3,4)/5 times 6*0.5.
	assertVecNear(t, "delta", delta, Vec3{X: 1.8, Y: 2.4})
}

func TestRadialNegativeMagnitudeAttracts(t *testing.T) {
	m := testModifier(ModifierDef{
		Kind:      ModifierRadial,
		Magnitude: ConstantProperty(-10),
	})
	delta := m.velocityDelta(Vec3{X: 5}, Vec3{}, 1)
	assertVecNear(t, "delta", delta, Vec3{X: -10})
}

func TestRadialAtCenterIsFinite(t *testing.T) {
	m := testModifier(ModifierDef{
		Kind:      ModifierRadial,
		Magnitude: ConstantProperty(10),
	})
	delta := m.velocityDelta(Vec3{}, Vec3{}, 1)
	if math.IsNaN(delta.X) || math.IsNaN(delta.Y) || math.IsNaN(delta.Z) {
		t.Fatal("radial at center produced NaN")
	}
	assertNear(t, "magnitude", delta.Length(), 10)
}

func TestVortexIsTangential(t *testing.T) {
	m := testModifier(ModifierDef{
		Kind:      ModifierVortex,
		Magnitude: ConstantProperty(4),
	})
	// At (1, 0) the clockwise tangent points along -Y.
	delta := m.velocityDelta(Vec3{X: 1}, Vec3{}, 1)
	assertVecNear(t, "delta@(1,0)", delta, Vec3{Y: -4})
	// At (0, 1) it points along +X.
	delta = m.velocityDelta(Vec3{Y: 1}, Vec3{}, 1)
	assertVecNear(t, "delta@(0,1)", delta, Vec3{X: 4})
}

func TestVortexAtCenterIsFinite(t *testing.T) {
	m := testModifier(ModifierDef{
		Kind:      ModifierVortex,
		Magnitude: ConstantProperty(4),
	})
	delta := m.velocityDelta(Vec3{}, Vec3{}, 1)
	if math.IsNaN(delta.X) || math.IsNaN(delta.Y) {
		t.Fatal("vortex at center produced NaN")
	}
	assertNear(t, "magnitude", delta.Length(), 4)
}

func TestMaxDistanceCutoff(t *testing.T) {
	m := testModifier(ModifierDef{
		Kind:        ModifierRadial,
		Magnitude:   ConstantProperty(10),
		MaxDistance: 5,
	})
	inside := m.velocityDelta(Vec3{X: 4.9}, Vec3{}, 1)
	if inside.Length() == 0 {
		t.Error("particle inside range should be affected")
	}
	outside := m.velocityDelta(Vec3{X: 5.1}, Vec3{}, 1)
	assertVecNear(t, "outside", outside, Vec3{})
}

func TestMaxDistanceScalesWithFrame(t *testing.T) {
	def := ModifierDef{
		Kind:        ModifierRadial,
		Magnitude:   ConstantProperty(10),
		MaxDistance: 5,
	}
	m := &modifier{def: &def}
	// An instance scale of 2 doubles the effective range.
	m.resolve(transform{scale: 2}, 0)
	if m.velocityDelta(Vec3{X: 8}, Vec3{}, 1).Length() == 0 {
		t.Error("scaled range should reach distance 8")
	}
	assertVecNear(t, "beyond scaled range", m.velocityDelta(Vec3{X: 11}, Vec3{}, 1), Vec3{})
}

func TestModifierMagnitudeSpreadSample(t *testing.T) {
	def := ModifierDef{
		Kind:      ModifierAcceleration,
		Direction: Vec3{Y: 1},
		Magnitude: Property{constant: 10, spread: 4},
	}
	m := &modifier{def: &def, magSpread: 0.5}
	m.resolve(identityTransform(), 0)
	assertNear(t, "magnitude", m.magnitude, 12)
}

func TestModifiersSumAgainstStepStartVelocity(t *testing.T) {
	// Two opposing accelerations cancel exactly regardless of listing order.
	e := newEmitter(testEmitterDef(func(d *EmitterDef) {
		d.SpawnRate = ConstantProperty(1)
		d.ParticleSpeed = ConstantProperty(3)
		d.ParticleLife = ConstantProperty(10)
		d.Modifiers = []ModifierDef{
			{Kind: ModifierAcceleration, Direction: Vec3{X: 1}, Magnitude: ConstantProperty(7)},
			{Kind: ModifierAcceleration, Direction: Vec3{X: -1}, Magnitude: ConstantProperty(7)},
		}
	}), 0, 0, 1)
	e.start()
	stepEmitter(e, 1, 1)
	if len(e.particles) != 1 {
		t.Fatalf("particles = %d, want 1", len(e.particles))
	}
	assertVecNear(t, "vel", e.particles[0].vel, Vec3{Y: 3})
}
