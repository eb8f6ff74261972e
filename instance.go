package ember

// renderConstantEntry is one sparse material-constant override. Entries are
// kept in set order so the render callback sees a deterministic sequence.
type renderConstantEntry struct {
	emitter Hash
	name    Hash
	value   Vector4
}

// RenderConstant is one named material-constant override surfaced to the
// render callback for the batch it applies to.
type RenderConstant struct {
	Name  Hash
	Value Vector4
}

// instance is one simulated emitter set sharing a world transform. It holds
// only a reference to its Prototype; the prototype's definitions stay owned
// by the caller and may be reloaded out from under the instance, which keeps
// running against its old definitions until reload remaps it.
type instance struct {
	prototype    *Prototype
	emitters     []*emitter
	xf           transform
	lastPos      Vec3
	seed         uint64
	maxParticles int
	playTime     float64
	constants    []renderConstantEntry
}

func newInstance(p *Prototype, seed uint64, maxParticles int) *instance {
	in := &instance{
		prototype:    p,
		xf:           identityTransform(),
		seed:         seed,
		maxParticles: maxParticles,
		emitters:     make([]*emitter, len(p.emitters)),
	}
	for i, def := range p.emitters {
		in.emitters[i] = newEmitter(def, i, maxParticles, emitterSeed(seed, i))
	}
	return in
}

// emitterSeed derives a stable per-emitter seed from the instance seed, so
// emitters stay decorrelated but the whole instance replays from one number.
func emitterSeed(instanceSeed uint64, index int) uint64 {
	return splitmix64(instanceSeed + uint64(index))
}

func (in *instance) start() {
	in.lastPos = in.xf.pos
	for _, e := range in.emitters {
		e.start()
	}
}

func (in *instance) stop() {
	for _, e := range in.emitters {
		e.stop()
	}
}

// reset clears all particles and timers but keeps the assigned seed, so a
// following start replays the same stream from t=0.
func (in *instance) reset() {
	for _, e := range in.emitters {
		e.reset()
	}
	in.lastPos = in.xf.pos
	in.playTime = 0
}

func (in *instance) sleeping() bool {
	for _, e := range in.emitters {
		if !e.sleeping() {
			return false
		}
	}
	return true
}

// update advances the instance by dt. The velocity of the instance's own
// transform is measured here from the position delta since the last update;
// world-space emitters blend a share of it into spawned particles.
func (in *instance) update(dt float64, fetch FetchAnimationFunc) {
	var vel Vec3
	if dt > 0 {
		vel = in.xf.pos.Sub(in.lastPos).Scale(1 / dt)
	}
	in.lastPos = in.xf.pos
	if in.sleeping() {
		return
	}
	in.playTime += dt
	for _, e := range in.emitters {
		e.update(dt, in.xf, vel, in.prototype.tileSourceAt(e.index), fetch)
	}
}

// reload remaps the instance onto its prototype's current definitions. New
// emitter runtimes are built fully off to the side and swapped in at the
// end, so a half-applied reload is never observable. Old emitters map onto
// new definitions by positional index; extra old emitters are dropped and
// extra new ones start asleep.
//
// With keepPlaying set, each surviving emitter's timer, generator state,
// spread samples and live particles carry over (particles up to the new
// capacity), which makes a reload with unchanged definitions invisible to
// the simulation. Without it the instance comes back reset.
func (in *instance) reload(keepPlaying bool) {
	p := in.prototype
	emitters := make([]*emitter, len(p.emitters))
	for i, def := range p.emitters {
		e := newEmitter(def, i, in.maxParticles, emitterSeed(in.seed, i))
		if keepPlaying && i < len(in.emitters) {
			old := in.emitters[i]
			e.state = old.state
			e.timer = old.timer
			e.spawnAccum = old.spawnAccum
			e.rng = old.rng
			e.rateSpread = old.rateSpread
			for mi := range e.modifiers {
				if mi < len(old.modifiers) {
					e.modifiers[mi].magSpread = old.modifiers[mi].magSpread
				}
			}
			n := len(old.particles)
			if n > cap(e.particles) {
				n = cap(e.particles)
			}
			e.particles = append(e.particles, old.particles[:n]...)
		}
		emitters[i] = e
	}
	in.emitters = emitters
	if !keepPlaying {
		in.reset()
	}
}

// setRenderConstant adds or replaces an override for the named constant on
// the named emitter. It reports whether any emitter carries that id.
func (in *instance) setRenderConstant(emitterID, name Hash, value Vector4) bool {
	if !in.hasEmitterID(emitterID) {
		return false
	}
	for i := range in.constants {
		c := &in.constants[i]
		if c.emitter == emitterID && c.name == name {
			c.value = value
			return true
		}
	}
	in.constants = append(in.constants, renderConstantEntry{emitter: emitterID, name: name, value: value})
	return true
}

func (in *instance) resetRenderConstant(emitterID, name Hash) bool {
	for i := range in.constants {
		c := &in.constants[i]
		if c.emitter == emitterID && c.name == name {
			in.constants = append(in.constants[:i], in.constants[i+1:]...)
			return true
		}
	}
	return false
}

func (in *instance) hasEmitterID(emitterID Hash) bool {
	for _, e := range in.emitters {
		if e.def.idHash == emitterID {
			return true
		}
	}
	return false
}

// emitterConstants collects the overrides that apply to one emitter, in the
// order they were set.
func (in *instance) emitterConstants(e *emitter) []RenderConstant {
	var out []RenderConstant
	for _, c := range in.constants {
		if c.emitter == e.def.idHash {
			out = append(out, RenderConstant{Name: c.name, Value: c.value})
		}
	}
	return out
}
