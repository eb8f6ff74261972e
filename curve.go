package ember

import (
	"gonum.org/v1/gonum/interp"
	"gopkg.in/yaml.v3"
)

// ControlPoint is one knot of a piecewise cubic Hermite curve. X is the
// normalized time in [0, 1], Y the value, and (TX, TY) the tangent at the
// knot. TX must be positive; the slope used for fitting is TY/TX.
type ControlPoint struct {
	X  float64 `yaml:"x"`
	Y  float64 `yaml:"y"`
	TX float64 `yaml:"tx"`
	TY float64 `yaml:"ty"`
}

// Property is a curve-driven value with an optional spread. A Property is
// either a constant or a piecewise cubic Hermite curve over normalized time
// [0, 1]. Spread is a bounded random perturbation applied per instantiation:
// Sample adds spread*r for a caller-supplied r in [-1, 1], so randomness is
// always threaded in explicitly.
//
// In a prototype document a Property is written either as a bare scalar
// (constant, zero spread) or as a mapping:
//
//	spawn_rate: 10
//	particle_size:
//	  spread: 0.5
//	  points:
//	    - {x: 0, y: 0, tx: 1, ty: 0}
//	    - {x: 1, y: 1, tx: 1, ty: 0}
type Property struct {
	constant float64
	spread   float64
	curve    *interp.PiecewiseCubic // nil for constants
}

// ConstantProperty returns a Property with a fixed value and no spread.
func ConstantProperty(v float64) Property {
	return Property{constant: v}
}

// CurveProperty builds a Property from Hermite control points and a spread.
// Points must have strictly increasing X starting at 0 and ending at 1, and
// every TX must be positive. A single point degenerates to a constant.
func CurveProperty(points []ControlPoint, spread float64) (Property, error) {
	switch len(points) {
	case 0:
		return Property{}, formatErrorf("curve has no control points")
	case 1:
		return Property{constant: points[0].Y, spread: spread}, nil
	}
	if points[0].X != 0 {
		return Property{}, formatErrorf("curve must start at x=0, got x=%g", points[0].X)
	}
	if points[len(points)-1].X != 1 {
		return Property{}, formatErrorf("curve must end at x=1, got x=%g", points[len(points)-1].X)
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	dydxs := make([]float64, len(points))
	for i, p := range points {
		if i > 0 && p.X <= points[i-1].X {
			return Property{}, formatErrorf("curve x values must be strictly increasing at point %d", i)
		}
		if p.TX <= 0 {
			return Property{}, formatErrorf("curve tangent tx must be positive at point %d", i)
		}
		xs[i] = p.X
		ys[i] = p.Y
		dydxs[i] = p.TY / p.TX
	}
	// FitWithDerivatives panics on unsorted or mismatched input; the
	// validation above rules both out.
	var pc interp.PiecewiseCubic
	pc.FitWithDerivatives(xs, ys, dydxs)
	return Property{curve: &pc, spread: spread}, nil
}

// Evaluate returns the curve value at normalized time t, clamped to [0, 1].
func (p *Property) Evaluate(t float64) float64 {
	if p.curve == nil {
		return p.constant
	}
	return p.curve.Predict(clamp01(t))
}

// Derivative returns the curve slope at normalized time t. Constants have
// zero slope everywhere.
func (p *Property) Derivative(t float64) float64 {
	if p.curve == nil {
		return 0
	}
	return p.curve.PredictDerivative(clamp01(t))
}

// Sample evaluates the property at t and applies the spread with the
// perturbation r, which must be in [-1, 1].
func (p *Property) Sample(t, r float64) float64 {
	return p.Evaluate(t) + p.spread*r
}

// Spread returns the property's spread half-width.
func (p *Property) Spread() float64 { return p.spread }

var propertyFields = fieldSet("spread", "points")

// UnmarshalYAML accepts either a bare scalar (constant) or a mapping with
// "spread" and "points" keys.
func (p *Property) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var v float64
		if err := value.Decode(&v); err != nil {
			return &FormatError{Msg: "property must be a number or a curve mapping", Err: err}
		}
		*p = ConstantProperty(v)
		return nil
	}
	if err := checkFields(value, propertyFields, "property"); err != nil {
		return err
	}
	var doc struct {
		Spread float64        `yaml:"spread"`
		Points []ControlPoint `yaml:"points"`
	}
	if err := value.Decode(&doc); err != nil {
		return &FormatError{Msg: "malformed property curve", Err: err}
	}
	prop, err := CurveProperty(doc.Points, doc.Spread)
	if err != nil {
		return err
	}
	*p = prop
	return nil
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
