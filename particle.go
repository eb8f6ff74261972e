package ember

import "math"

// particle is one live particle. Source values are sampled once at spawn;
// the render values (size, angle, color, frame) are recomputed every step
// from the emitter's over-life curves.
type particle struct {
	pos Vec3
	vel Vec3

	life     float64
	timeLeft float64

	sourceSize     float64
	sourceRotation float64
	sourceColor    Color

	size  float64
	angle float64
	color Color
	frame int
}

type emitterState uint8

const (
	emitterSleeping emitterState = iota
	emitterSpawning
	emitterPostspawn
)

// emitter is the runtime of one EmitterDef inside an instance. Particles are
// pooled in a fixed-capacity slice and removed by swapping the last live
// particle into the dead slot, so update cost tracks the live count and the
// pool never reallocates.
type emitter struct {
	def     *EmitterDef
	index   int
	localXf transform

	rng        emitterRand
	state      emitterState
	timer      float64
	spawnAccum float64
	rateSpread float64

	particles []particle
	modifiers []modifier

	anim    AnimationData
	animOK  bool
	hasAnim bool
}

func newEmitter(def *EmitterDef, index int, maxParticles int, seed uint64) *emitter {
	capacity := def.MaxParticles
	if maxParticles > 0 && capacity > maxParticles {
		capacity = maxParticles
	}
	e := &emitter{
		def:       def,
		index:     index,
		localXf:   transform{pos: def.Position, rot: def.Rotation, scale: 1},
		rng:       newEmitterRand(seed),
		particles: make([]particle, 0, capacity),
		modifiers: make([]modifier, len(def.Modifiers)),
		hasAnim:   def.Animation != "",
	}
	for i := range e.modifiers {
		e.modifiers[i].def = &def.Modifiers[i]
	}
	return e
}

// start rewinds the emitter and draws the spread samples that stay fixed
// for the whole emission. Restarting an emitter replays the exact same
// particle stream because the generator is reseeded.
func (e *emitter) start() {
	e.rng.reset()
	e.timer = 0
	e.spawnAccum = 0
	e.rateSpread = e.rng.spread()
	for i := range e.modifiers {
		e.modifiers[i].magSpread = e.rng.spread()
	}
	e.state = emitterSpawning
}

// stop ends emission but lets live particles age out.
func (e *emitter) stop() {
	if e.state == emitterSpawning {
		e.state = emitterPostspawn
	}
}

// reset kills all particles and returns the emitter to sleep.
func (e *emitter) reset() {
	e.particles = e.particles[:0]
	e.state = emitterSleeping
	e.timer = 0
	e.spawnAccum = 0
}

func (e *emitter) sleeping() bool {
	return e.state == emitterSleeping ||
		(e.state == emitterPostspawn && len(e.particles) == 0)
}

// progress is the emitter's normalized position within its duration.
func (e *emitter) progress() float64 {
	return clamp01((e.timer - e.def.Delay) / e.def.Duration)
}

// update advances the emitter by dt. Spawning happens before aging, so a
// particle born this step is simulated this step and its first rendered
// frame already includes one step of motion.
func (e *emitter) update(dt float64, instXf transform, instVel Vec3, tileSource any, fetch FetchAnimationFunc) {
	e.resolveAnimation(tileSource, fetch)

	if e.state != emitterSleeping {
		prev := e.timer
		e.timer += dt
		active := e.advance(prev)
		e.accumulateSpawns(active, instXf, instVel)
	}

	e.simulate(dt, instXf)

	if e.state == emitterPostspawn && len(e.particles) == 0 {
		e.state = emitterSleeping
	}
}

func (e *emitter) resolveAnimation(tileSource any, fetch FetchAnimationFunc) {
	if !e.hasAnim {
		e.animOK = false
		return
	}
	if fetch == nil || tileSource == nil {
		e.animOK = false
		return
	}
	e.anim = AnimationData{}
	res := fetch(tileSource, e.def.animHash, &e.anim)
	e.animOK = res == FetchOK
	if !e.animOK {
		debugf("animation %q not resolved on emitter %q (result %d)", e.def.Animation, e.def.ID, res)
	}
}

// advance moves the state machine across the step [prev, timer] and returns
// how much of the step fell inside the emission window. An emitter whose
// delay swallows the whole step spawns nothing; an emitter crossing the
// delay boundary mid-step only counts the part past it.
func (e *emitter) advance(prev float64) float64 {
	start := e.def.Delay
	end := start + e.def.Duration

	if e.state != emitterSpawning {
		return 0
	}

	active := overlap(prev, e.timer, start, end)
	if e.timer < end {
		return active
	}
	if e.def.Mode == PlayOnce {
		e.timer = end
		e.state = emitterPostspawn
		return active
	}
	// Loop: count full extra cycles for oversized steps, then wrap the
	// timer back into the window. The delay applies only to the first pass.
	over := e.timer - end
	cycles := math.Floor(over / e.def.Duration)
	rem := over - cycles*e.def.Duration
	active += cycles*e.def.Duration + rem
	e.timer = start + rem
	return active
}

func overlap(a0, a1, b0, b1 float64) float64 {
	lo := math.Max(a0, b0)
	hi := math.Min(a1, b1)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// accumulateSpawns converts active emission time into whole particles. The
// fractional remainder carries over so low rates still emit at the right
// long-run frequency.
func (e *emitter) accumulateSpawns(active float64, instXf transform, instVel Vec3) {
	if active <= 0 {
		return
	}
	rate := e.def.SpawnRate.Sample(e.progress(), e.rateSpread)
	if rate <= 0 {
		return
	}
	e.spawnAccum += rate * active
	n := int(e.spawnAccum)
	e.spawnAccum -= float64(n)
	for range n {
		e.spawn(instXf, instVel)
	}
}

func (e *emitter) spawn(instXf transform, instVel Vec3) {
	if len(e.particles) == cap(e.particles) {
		debugf("emitter %q at particle capacity %d, spawn capped", e.def.ID, cap(e.particles))
		return
	}
	d := e.def
	t := e.progress()

	life := d.ParticleLife.Sample(t, e.rng.spread())
	speed := d.ParticleSpeed.Sample(t, e.rng.spread())
	size := d.ParticleSize.Sample(t, e.rng.spread())
	rotation := d.ParticleRotation.Sample(t, e.rng.spread())
	color := Color{
		R: d.ParticleRed.Sample(t, e.rng.spread()),
		G: d.ParticleGreen.Sample(t, e.rng.spread()),
		B: d.ParticleBlue.Sample(t, e.rng.spread()),
		A: d.ParticleAlpha.Sample(t, e.rng.spread()),
	}
	if life <= 0 {
		debugf("emitter %q sampled non-positive particle life, skipping spawn", d.ID)
		return
	}

	// Particles emit along the emitter's local +Y axis. World-space
	// emitters bake the full transform in at spawn and inherit a share of
	// the instance's measured velocity; emitter-space particles stay in
	// instance coordinates and pick up the instance transform at render
	// time.
	xf := e.localXf
	if d.Space == SpaceWorld {
		xf = instXf.mul(e.localXf)
		size *= instXf.scale
	}
	vel := xf.applyVec(Vec3{Y: speed})
	if d.Space == SpaceWorld {
		if inherit := d.InheritVelocity.Sample(t, e.rng.spread()); inherit != 0 {
			vel = vel.Add(instVel.Scale(inherit))
		}
	}
	p := particle{
		pos:            xf.apply(Vec3{}),
		vel:            vel,
		life:           life,
		timeLeft:       life,
		sourceSize:     size,
		sourceRotation: rotation + xf.rot,
		sourceColor:    color,
	}
	p.size = p.sourceSize
	p.angle = p.sourceRotation
	p.color = p.sourceColor
	e.particles = append(e.particles, p)
}

// simulate ages every live particle by dt: flipbook frame from the age at
// the start of the step, modifier forces summed against the start-of-step
// velocity, then over-life curves re-evaluated at the new progress. A
// particle whose time left reaches exactly zero still renders this step and
// is removed the next.
func (e *emitter) simulate(dt float64, instXf transform) {
	if len(e.particles) == 0 {
		return
	}
	e.resolveModifiers(instXf)

	d := e.def
	for i := 0; i < len(e.particles); i++ {
		p := &e.particles[i]

		if e.animOK {
			p.frame = e.anim.frame(p.life - p.timeLeft)
		}

		p.timeLeft -= dt
		if p.timeLeft < 0 {
			last := len(e.particles) - 1
			e.particles[i] = e.particles[last]
			e.particles = e.particles[:last]
			i--
			continue
		}

		var delta Vec3
		for mi := range e.modifiers {
			delta = delta.Add(e.modifiers[mi].velocityDelta(p.pos, p.vel, dt))
		}
		p.vel = p.vel.Add(delta)
		p.pos = p.pos.Add(p.vel.Scale(dt))

		lt := clamp01(1 - p.timeLeft/p.life)
		p.size = p.sourceSize * d.LifeScale.Evaluate(lt)
		p.angle = p.sourceRotation + d.LifeRotation.Evaluate(lt)
		p.color = Color{
			R: clamp01(p.sourceColor.R * d.LifeRed.Evaluate(lt)),
			G: clamp01(p.sourceColor.G * d.LifeGreen.Evaluate(lt)),
			B: clamp01(p.sourceColor.B * d.LifeBlue.Evaluate(lt)),
			A: clamp01(p.sourceColor.A * d.LifeAlpha.Evaluate(lt)),
		}
	}
}

// resolveModifiers maps every modifier into the space the particles live in
// for this step.
func (e *emitter) resolveModifiers(instXf transform) {
	if len(e.modifiers) == 0 {
		return
	}
	t := e.progress()
	for i := range e.modifiers {
		m := &e.modifiers[i]
		var xf transform
		if e.def.Space == SpaceWorld {
			// Particles in world space.
			if m.def.Space == SpaceEmitter {
				xf = instXf.mul(e.localXf)
			} else {
				xf = identityTransform()
			}
		} else {
			// Particles in instance space.
			if m.def.Space == SpaceEmitter {
				xf = e.localXf
			} else {
				xf = instXf.inverse()
			}
		}
		m.resolve(xf, t)
	}
}
