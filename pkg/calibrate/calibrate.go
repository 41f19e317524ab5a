// Package calibrate fits and applies correction models mapping raw sensor
// readings to reference truth values.
//
// All three model variants reduce to a polynomial correction
// a + b·x + c·x², so a Model is a kind tag plus immutable coefficients,
// dispatched through a single Correct operation:
//
//   - OnePoint: offset only (b fixed at 1, c at 0). Appropriate when the
//     sensor gain is known-correct and only the offset drifted.
//   - TwoPoint: affine fit through two reference points.
//   - ThreePoint: quadratic through three reference points by exact
//     interpolation, not least-squares.
//
// Fitting cost is paid once at construction; application is element-wise,
// length-preserving, and NaN-preserving.
package calibrate

import "fmt"

// Kind identifies a calibration strategy.
type Kind int

const (
	// KindOnePoint is an offset-only correction from one reference point.
	KindOnePoint Kind = iota + 1

	// KindTwoPoint is an affine correction through two reference points.
	KindTwoPoint

	// KindThreePoint is a quadratic correction through three reference points.
	KindThreePoint
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindOnePoint:
		return "one-point"
	case KindTwoPoint:
		return "two-point"
	case KindThreePoint:
		return "three-point"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ReferencePoint is an operator-supplied (measured, truth) pair. Points are
// consumed at model construction; only fit coefficients are retained.
type ReferencePoint struct {
	Measured float64
	Truth    float64
}

// DegenerateInputError reports reference points that do not define a unique
// fit. It is raised at construction time, before any data is corrected, so
// a bad calibration configuration never silently corrupts data.
type DegenerateInputError struct {
	Kind   Kind
	Reason string
}

// Error implements the error interface.
func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("%s calibration: degenerate reference points: %s", e.Kind, e.Reason)
}

// Model is a fitted correction function raw → calibrated. It is immutable
// after construction: calibrated = a + b·raw + c·raw².
type Model struct {
	kind    Kind
	a, b, c float64
}

// OnePoint constructs an offset-only model: calibrated = raw + (truth − measured).
func OnePoint(ref ReferencePoint) Model {
	return Model{
		kind: KindOnePoint,
		a:    ref.Truth - ref.Measured,
		b:    1,
	}
}

// TwoPoint constructs an affine model through two reference points. The
// points may arrive in any order. Equal measured values leave the slope
// undefined and are rejected.
func TwoPoint(p1, p2 ReferencePoint) (Model, error) {
	if p1.Measured == p2.Measured {
		return Model{}, &DegenerateInputError{
			Kind:   KindTwoPoint,
			Reason: fmt.Sprintf("measured values coincide at %g", p1.Measured),
		}
	}

	slope := (p2.Truth - p1.Truth) / (p2.Measured - p1.Measured)
	return Model{
		kind: KindTwoPoint,
		a:    p1.Truth - slope*p1.Measured,
		b:    slope,
	}, nil
}

// ThreePoint constructs a quadratic model through three reference points by
// exact interpolation. The points may arrive in any order. Measured values
// must be pairwise distinct or the underlying Vandermonde system is
// singular.
func ThreePoint(p1, p2, p3 ReferencePoint) (Model, error) {
	x1, x2, x3 := p1.Measured, p2.Measured, p3.Measured
	if x1 == x2 || x1 == x3 || x2 == x3 {
		return Model{}, &DegenerateInputError{
			Kind:   KindThreePoint,
			Reason: "measured values are not pairwise distinct",
		}
	}

	// Lagrange form of the interpolating quadratic, expanded into
	// monomial coefficients.
	l1 := p1.Truth / ((x1 - x2) * (x1 - x3))
	l2 := p2.Truth / ((x2 - x1) * (x2 - x3))
	l3 := p3.Truth / ((x3 - x1) * (x3 - x2))

	return Model{
		kind: KindThreePoint,
		a:    l1*x2*x3 + l2*x1*x3 + l3*x1*x2,
		b:    -(l1*(x2+x3) + l2*(x1+x3) + l3*(x1+x2)),
		c:    l1 + l2 + l3,
	}, nil
}

// Kind returns the model variant.
func (m Model) Kind() Kind {
	return m.kind
}

// Coefficients returns the fitted polynomial coefficients
// (constant, linear, quadratic).
func (m Model) Coefficients() (a, b, c float64) {
	return m.a, m.b, m.c
}

// Correct applies the model to one raw value. NaN input yields NaN output.
func (m Model) Correct(raw float64) float64 {
	return m.a + m.b*raw + m.c*raw*raw
}

// CorrectAll applies the model element-wise and returns a new slice of the
// same length. The input is not modified.
func (m Model) CorrectAll(raw []float64) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = m.Correct(v)
	}
	return out
}
