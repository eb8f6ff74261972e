package ember

// Handle identifies an Instance within a Context. The low 16 bits hold the
// pool index and the high 16 bits a per-slot generation counter, bumped on
// every destroy so a handle kept past its instance's death fails explicitly
// instead of touching whatever reused the slot. The zero Handle is never
// valid.
type Handle uint32

// InvalidHandle is the zero value of Handle; no operation ever returns it
// for a live instance.
const InvalidHandle Handle = 0

func makeHandle(index int, generation uint16) Handle {
	return Handle(uint32(index) | uint32(generation)<<16)
}

func (h Handle) index() int         { return int(h & 0xffff) }
func (h Handle) generation() uint16 { return uint16(h >> 16) }

// Stats reports context-wide load.
type Stats struct {
	// Particles is the number of live particles across all instances.
	Particles int
	// MaxParticles is the context's total particle capacity.
	MaxParticles int
}

// InstanceStats reports per-instance playback state.
type InstanceStats struct {
	// Time is the instance's accumulated playback time in seconds. It
	// stops advancing while every emitter sleeps.
	Time float64
}

// Context owns a fixed pool of particle effect instances and drives their
// simulation. All storage is allocated up front; nothing grows during
// Update or Render. A Context is not safe for concurrent use; the caller
// runs Update and Render from a single simulation goroutine.
type Context struct {
	maxInstances int
	maxParticles int // per-emitter cap

	slots       []*instance
	generations []uint16
	seedCounter uint64
}

// NewContext creates a pool for at most maxInstances live instances, with
// every emitter's particle capacity capped at maxParticles regardless of
// what its definition asks for. Non-positive bounds are clamped to 1.
func NewContext(maxInstances, maxParticles int) *Context {
	if maxInstances < 1 {
		maxInstances = 1
	}
	if maxParticles < 1 {
		maxParticles = 1
	}
	ctx := &Context{
		maxInstances: maxInstances,
		maxParticles: maxParticles,
		slots:        make([]*instance, maxInstances),
		generations:  make([]uint16, maxInstances),
	}
	for i := range ctx.generations {
		ctx.generations[i] = 1
	}
	return ctx
}

// CreateInstance builds one emitter runtime per definition in the prototype
// and places the instance in the first free pool slot. It returns
// ErrCapacityExceeded when the pool is full. The new instance is asleep
// until StartInstance.
func (c *Context) CreateInstance(p *Prototype) (Handle, error) {
	for i, slot := range c.slots {
		if slot != nil {
			continue
		}
		c.seedCounter++
		seed := splitmix64(c.seedCounter)
		c.slots[i] = newInstance(p, seed, c.maxParticles)
		return makeHandle(i, c.generations[i]), nil
	}
	return InvalidHandle, ErrCapacityExceeded
}

// DestroyInstance releases the instance's slot and invalidates every handle
// to it.
func (c *Context) DestroyInstance(h Handle) error {
	if _, err := c.resolve(h); err != nil {
		return err
	}
	i := h.index()
	c.slots[i] = nil
	c.generations[i]++
	if c.generations[i] == 0 {
		c.generations[i] = 1
	}
	return nil
}

// StartInstance begins (or restarts) playback on every emitter.
func (c *Context) StartInstance(h Handle) error {
	in, err := c.resolve(h)
	if err != nil {
		return err
	}
	in.start()
	return nil
}

// StopInstance ends emission; live particles age out naturally.
func (c *Context) StopInstance(h Handle) error {
	in, err := c.resolve(h)
	if err != nil {
		return err
	}
	in.stop()
	return nil
}

// ResetInstance kills all particles and rewinds every emitter to sleep. The
// instance keeps its seed, so a following StartInstance replays the exact
// same particle stream.
func (c *Context) ResetInstance(h Handle) error {
	in, err := c.resolve(h)
	if err != nil {
		return err
	}
	in.reset()
	return nil
}

// ReloadInstance remaps the instance onto its prototype's current emitter
// definitions, positionally. With keepPlaying the surviving emitters carry
// their timers, generator state and live particles over; reloading with
// unchanged definitions is then invisible to the simulation. Without
// keepPlaying the instance comes back reset.
func (c *Context) ReloadInstance(h Handle, keepPlaying bool) error {
	in, err := c.resolve(h)
	if err != nil {
		return err
	}
	in.reload(keepPlaying)
	return nil
}

// IsSleeping reports whether every emitter of the instance is asleep.
func (c *Context) IsSleeping(h Handle) (bool, error) {
	in, err := c.resolve(h)
	if err != nil {
		return false, err
	}
	return in.sleeping(), nil
}

// SetPosition moves the instance's world transform.
func (c *Context) SetPosition(h Handle, pos Vec3) error {
	in, err := c.resolve(h)
	if err != nil {
		return err
	}
	in.xf.pos = pos
	return nil
}

// SetRotation sets the instance's world rotation in radians.
func (c *Context) SetRotation(h Handle, radians float64) error {
	in, err := c.resolve(h)
	if err != nil {
		return err
	}
	in.xf.rot = radians
	return nil
}

// SetScale sets the instance's uniform world scale.
func (c *Context) SetScale(h Handle, scale float64) error {
	in, err := c.resolve(h)
	if err != nil {
		return err
	}
	in.xf.scale = scale
	return nil
}

// GetPosition returns the instance's world position.
func (c *Context) GetPosition(h Handle) (Vec3, error) {
	in, err := c.resolve(h)
	if err != nil {
		return Vec3{}, err
	}
	return in.xf.pos, nil
}

// GetRotation returns the instance's world rotation in radians.
func (c *Context) GetRotation(h Handle) (float64, error) {
	in, err := c.resolve(h)
	if err != nil {
		return 0, err
	}
	return in.xf.rot, nil
}

// GetScale returns the instance's uniform world scale.
func (c *Context) GetScale(h Handle) (float64, error) {
	in, err := c.resolve(h)
	if err != nil {
		return 0, err
	}
	return in.xf.scale, nil
}

// SetRenderConstant overrides the named material constant on the emitter
// with the given id hash, for this instance only. It returns
// ErrEmitterNotFound when no emitter carries that id.
func (c *Context) SetRenderConstant(h Handle, emitterID, name Hash, value Vector4) error {
	in, err := c.resolve(h)
	if err != nil {
		return err
	}
	if !in.setRenderConstant(emitterID, name, value) {
		return ErrEmitterNotFound
	}
	return nil
}

// ResetRenderConstant removes an override set by SetRenderConstant, so the
// material's baseline value applies again.
func (c *Context) ResetRenderConstant(h Handle, emitterID, name Hash) error {
	in, err := c.resolve(h)
	if err != nil {
		return err
	}
	if !in.resetRenderConstant(emitterID, name) {
		return ErrEmitterNotFound
	}
	return nil
}

// Update advances every live instance by dt seconds, in pool order. fetch
// resolves flipbook animations for emitters that bind one; it may be nil
// when no emitter does.
func (c *Context) Update(dt float64, fetch FetchAnimationFunc) {
	for _, in := range c.slots {
		if in != nil {
			in.update(dt, fetch)
		}
	}
}

// GetStats fills st with context-wide counts.
func (c *Context) GetStats(st *Stats) {
	st.Particles = 0
	st.MaxParticles = c.maxInstances * c.maxParticles
	for _, in := range c.slots {
		if in == nil {
			continue
		}
		for _, e := range in.emitters {
			st.Particles += len(e.particles)
		}
	}
}

// GetInstanceStats fills st for one instance.
func (c *Context) GetInstanceStats(h Handle, st *InstanceStats) error {
	in, err := c.resolve(h)
	if err != nil {
		return err
	}
	st.Time = in.playTime
	return nil
}

func (c *Context) resolve(h Handle) (*instance, error) {
	i := h.index()
	if i < 0 || i >= len(c.slots) {
		return nil, ErrStaleHandle
	}
	if c.slots[i] == nil || c.generations[i] != h.generation() {
		return nil, ErrStaleHandle
	}
	return c.slots[i], nil
}
