package ember

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// PlayMode controls how an emitter treats its duration.
type PlayMode uint8

const (
	// PlayOnce emits for one duration, then lets live particles age out.
	PlayOnce PlayMode = iota
	// PlayLoop re-enters the spawning state from the top of the duration
	// every time it elapses.
	PlayLoop
)

// EmissionSpace selects the coordinate space particles live in once spawned.
type EmissionSpace uint8

const (
	// SpaceWorld bakes the instance transform into each particle at spawn;
	// particles keep their world position when the instance moves.
	SpaceWorld EmissionSpace = iota
	// SpaceEmitter keeps particles in emitter-local coordinates; the
	// instance transform is applied at vertex emission time.
	SpaceEmitter
)

// ModifierKind tags the closed set of spatial force rules.
type ModifierKind uint8

const (
	ModifierAcceleration ModifierKind = iota
	ModifierDrag
	ModifierRadial
	ModifierVortex
)

// ModifierDef describes one spatial force applied to every particle of an
// emitter within range each step.
type ModifierDef struct {
	Kind        ModifierKind  `yaml:"type"`
	Space       EmissionSpace `yaml:"space"`
	Magnitude   Property      `yaml:"magnitude"`
	MaxDistance float64       `yaml:"max_distance"` // 0 = unbounded
	Direction   Vec3          `yaml:"direction"`    // acceleration, drag (zero = oppose full velocity)
	Center      Vec3          `yaml:"center"`       // radial, vortex
}

// EmitterDef is one immutable emitter definition within a Prototype.
//
// The properties prefixed "particle_" are sampled once per spawned particle
// at the emitter's spawn progress (with per-particle spread); the properties
// prefixed "life_" are re-evaluated every step at each particle's own
// normalized life progress and composed with the sampled source values.
type EmitterDef struct {
	ID           string        `yaml:"id"`
	Mode         PlayMode      `yaml:"mode"`
	Duration     float64       `yaml:"duration"`
	Delay        float64       `yaml:"delay"`
	Space        EmissionSpace `yaml:"space"`
	MaxParticles int           `yaml:"max_particles"`
	Material     string        `yaml:"material"`
	TileSource   string        `yaml:"tile_source"`
	Animation    string        `yaml:"animation"`
	BlendMode    BlendMode     `yaml:"blend_mode"`
	Position     Vec3          `yaml:"position"`
	Rotation     float64       `yaml:"rotation"` // radians

	// InheritVelocity is the share of the instance's own velocity given to
	// spawned particles. World-space emitters only.
	InheritVelocity Property `yaml:"inherit_velocity"`

	SpawnRate        Property `yaml:"spawn_rate"`
	ParticleLife     Property `yaml:"particle_life"`
	ParticleSpeed    Property `yaml:"particle_speed"`
	ParticleSize     Property `yaml:"particle_size"`
	ParticleRotation Property `yaml:"particle_rotation"`
	ParticleRed      Property `yaml:"particle_red"`
	ParticleGreen    Property `yaml:"particle_green"`
	ParticleBlue     Property `yaml:"particle_blue"`
	ParticleAlpha    Property `yaml:"particle_alpha"`

	LifeScale    Property `yaml:"life_scale"`
	LifeRotation Property `yaml:"life_rotation"`
	LifeRed      Property `yaml:"life_red"`
	LifeGreen    Property `yaml:"life_green"`
	LifeBlue     Property `yaml:"life_blue"`
	LifeAlpha    Property `yaml:"life_alpha"`

	Modifiers []ModifierDef `yaml:"modifiers"`

	idHash   Hash
	animHash Hash
}

// defaultEmitterDef carries the values a document may omit.
func defaultEmitterDef() EmitterDef {
	return EmitterDef{
		Duration:         1,
		MaxParticles:     128,
		ParticleLife:     ConstantProperty(1),
		ParticleSize:     ConstantProperty(1),
		ParticleRed:      ConstantProperty(1),
		ParticleGreen:    ConstantProperty(1),
		ParticleBlue:     ConstantProperty(1),
		ParticleAlpha:    ConstantProperty(1),
		LifeScale:        ConstantProperty(1),
		LifeRed:          ConstantProperty(1),
		LifeGreen:        ConstantProperty(1),
		LifeBlue:         ConstantProperty(1),
		LifeAlpha:        ConstantProperty(1),
		SpawnRate:        ConstantProperty(0),
		InheritVelocity:  ConstantProperty(0),
		ParticleSpeed:    ConstantProperty(0),
		ParticleRotation: ConstantProperty(0),
		LifeRotation:     ConstantProperty(0),
	}
}

var emitterFields = fieldSet(
	"id", "mode", "duration", "delay", "space", "max_particles",
	"material", "tile_source", "animation", "blend_mode", "position",
	"rotation", "inherit_velocity",
	"spawn_rate", "particle_life", "particle_speed", "particle_size",
	"particle_rotation", "particle_red", "particle_green", "particle_blue",
	"particle_alpha",
	"life_scale", "life_rotation", "life_red", "life_green", "life_blue",
	"life_alpha",
	"modifiers",
)

var modifierFields = fieldSet(
	"type", "space", "magnitude", "max_distance", "direction", "center",
)

func fieldSet(names ...string) map[string]bool {
	s := make(map[string]bool, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

// checkFields rejects unknown mapping keys. Decoder.KnownFields does not
// reach into nested UnmarshalYAML calls, so strictness is enforced here.
func checkFields(value *yaml.Node, allowed map[string]bool, kind string) error {
	if value.Kind != yaml.MappingNode {
		return formatErrorf("%s must be a mapping", kind)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if key := value.Content[i].Value; !allowed[key] {
			return formatErrorf("unknown %s field %q", kind, key)
		}
	}
	return nil
}

// UnmarshalYAML decodes an emitter mapping over the defaults.
func (d *EmitterDef) UnmarshalYAML(value *yaml.Node) error {
	if err := checkFields(value, emitterFields, "emitter"); err != nil {
		return err
	}
	type plain EmitterDef
	def := defaultEmitterDef()
	if err := value.Decode((*plain)(&def)); err != nil {
		return err
	}
	*d = def
	return nil
}

// UnmarshalYAML decodes a modifier mapping, rejecting unknown keys.
func (m *ModifierDef) UnmarshalYAML(value *yaml.Node) error {
	if err := checkFields(value, modifierFields, "modifier"); err != nil {
		return err
	}
	type plain ModifierDef
	var def plain
	if err := value.Decode(&def); err != nil {
		return err
	}
	*m = ModifierDef(def)
	return nil
}

func (d *EmitterDef) validate(index int) error {
	if d.Duration <= 0 {
		return formatErrorf("emitter %d (%q): duration must be positive", index, d.ID)
	}
	if d.Delay < 0 {
		return formatErrorf("emitter %d (%q): delay must not be negative", index, d.ID)
	}
	if d.MaxParticles <= 0 {
		return formatErrorf("emitter %d (%q): max_particles must be positive", index, d.ID)
	}
	if d.Animation != "" && d.TileSource == "" {
		return formatErrorf("emitter %d (%q): animation %q has no tile_source", index, d.ID, d.Animation)
	}
	for mi := range d.Modifiers {
		m := &d.Modifiers[mi]
		if m.Kind == ModifierAcceleration && m.Direction.Length() < eps {
			return formatErrorf("emitter %d (%q): acceleration modifier %d has no direction", index, d.ID, mi)
		}
		if m.MaxDistance < 0 {
			return formatErrorf("emitter %d (%q): modifier %d max_distance must not be negative", index, d.ID, mi)
		}
	}
	return nil
}

// Prototype is an immutable emitter-set definition, loaded from a YAML
// document and referenced (never owned) by every Instance created from it.
// Mutation happens only through Reload, which swaps the parsed definition
// wholesale; a failed Reload leaves the previous definition fully intact.
type Prototype struct {
	emitters    []*EmitterDef
	materials   []any
	tileSources []any
}

// NewPrototype parses and validates a prototype document. Malformed
// documents return a *FormatError.
func NewPrototype(data []byte) (*Prototype, error) {
	emitters, err := parseEmitterDefs(data)
	if err != nil {
		return nil, err
	}
	return &Prototype{
		emitters:    emitters,
		materials:   make([]any, len(emitters)),
		tileSources: make([]any, len(emitters)),
	}, nil
}

// Reload replaces the prototype's definitions with newly parsed ones. On
// parse or validation failure the prototype is untouched. Material and
// tile-source bindings are kept positionally up to the new emitter count;
// live instances keep simulating against their old definitions until
// Context.ReloadInstance remaps them.
func (p *Prototype) Reload(data []byte) error {
	emitters, err := parseEmitterDefs(data)
	if err != nil {
		return err
	}
	materials := make([]any, len(emitters))
	tileSources := make([]any, len(emitters))
	copy(materials, p.materials)
	copy(tileSources, p.tileSources)
	p.emitters = emitters
	p.materials = materials
	p.tileSources = tileSources
	return nil
}

// EmitterCount returns the number of emitter definitions.
func (p *Prototype) EmitterCount() int { return len(p.emitters) }

// EmitterID returns the id string of the emitter at index.
func (p *Prototype) EmitterID(index int) string { return p.emitters[index].ID }

// SetMaterial binds an opaque material handle to the emitter at index. The
// handle is passed through untouched to the render callback.
func (p *Prototype) SetMaterial(index int, material any) error {
	if index < 0 || index >= len(p.materials) {
		return fmt.Errorf("ember: material index %d out of range [0, %d)", index, len(p.materials))
	}
	p.materials[index] = material
	return nil
}

// SetTileSource binds an opaque tile-source handle to the emitter at index.
// The handle is passed to the animation fetch callback when the emitter has
// an animation bound.
func (p *Prototype) SetTileSource(index int, tileSource any) error {
	if index < 0 || index >= len(p.tileSources) {
		return fmt.Errorf("ember: tile source index %d out of range [0, %d)", index, len(p.tileSources))
	}
	p.tileSources[index] = tileSource
	return nil
}

// materialAt and tileSourceAt look up an emitter's bindings by index. A
// reload can shrink the prototype while an instance still runs emitters at
// old indices; those emitters see nil bindings until the instance reloads.
func (p *Prototype) materialAt(index int) any {
	if index >= len(p.materials) {
		return nil
	}
	return p.materials[index]
}

func (p *Prototype) tileSourceAt(index int) any {
	if index >= len(p.tileSources) {
		return nil
	}
	return p.tileSources[index]
}

func parseEmitterDefs(data []byte) ([]*EmitterDef, error) {
	var doc struct {
		Emitters []*EmitterDef `yaml:"emitters"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, &FormatError{Msg: "parse failed", Err: err}
	}
	for i, e := range doc.Emitters {
		if e == nil {
			return nil, formatErrorf("emitter %d is empty", i)
		}
		if err := e.validate(i); err != nil {
			return nil, err
		}
		e.idHash = HashString(e.ID)
		e.animHash = HashString(e.Animation)
	}
	return doc.Emitters, nil
}

// --- YAML enum and vector decoding ---

// UnmarshalYAML decodes a [x, y, z] sequence; y and z may be omitted.
func (v *Vec3) UnmarshalYAML(value *yaml.Node) error {
	var parts []float64
	if err := value.Decode(&parts); err != nil {
		return &FormatError{Msg: "vector must be a [x, y, z] sequence", Err: err}
	}
	if len(parts) == 0 || len(parts) > 3 {
		return formatErrorf("vector must have 1 to 3 components, got %d", len(parts))
	}
	*v = Vec3{}
	v.X = parts[0]
	if len(parts) > 1 {
		v.Y = parts[1]
	}
	if len(parts) > 2 {
		v.Z = parts[2]
	}
	return nil
}

func (m *PlayMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "once":
		*m = PlayOnce
	case "loop":
		*m = PlayLoop
	default:
		return formatErrorf("unknown play mode %q (want once or loop)", s)
	}
	return nil
}

func (sp *EmissionSpace) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "world":
		*sp = SpaceWorld
	case "emitter":
		*sp = SpaceEmitter
	default:
		return formatErrorf("unknown space %q (want world or emitter)", s)
	}
	return nil
}

func (k *ModifierKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "acceleration":
		*k = ModifierAcceleration
	case "drag":
		*k = ModifierDrag
	case "radial":
		*k = ModifierRadial
	case "vortex":
		*k = ModifierVortex
	default:
		return formatErrorf("unknown modifier type %q", s)
	}
	return nil
}

func (b *BlendMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "normal":
		*b = BlendNormal
	case "add":
		*b = BlendAdd
	case "multiply":
		*b = BlendMultiply
	case "screen":
		*b = BlendScreen
	default:
		return formatErrorf("unknown blend mode %q", s)
	}
	return nil
}
