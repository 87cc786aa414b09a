package assembly

import (
	"fmt"
	"math"
	"strconv"

	"github.com/notargets/gospectral/bases"
)

// Measure is the weight x^Power, in the physical coordinate of the axis,
// multiplying the integrand of an inner product.
type Measure struct {
	Power int
}

var Unit = Measure{}

func R(power int) Measure { return Measure{Power: power} }

func (m Measure) IsUnit() bool { return m.Power == 0 }

// IsPolynomial is false for negative powers, which quadrature integrates
// only approximately.
func (m Measure) IsPolynomial() bool { return m.Power >= 0 }

func (m Measure) Eval(x float64) float64 {
	if m.Power == 0 {
		return 1
	}
	return math.Pow(x, float64(m.Power))
}

// Name is "1", "r", "r^2", "1/r", "1/r^2" and so on.
func (m Measure) Name() string {
	switch {
	case m.Power == 0:
		return "1"
	case m.Power == 1:
		return "r"
	case m.Power == -1:
		return "1/r"
	case m.Power > 0:
		return "r^" + strconv.Itoa(m.Power)
	}
	return "1/r^" + strconv.Itoa(-m.Power)
}

// Side identifies one operand of an inner product in the registry.
type Side struct {
	Family bases.Family
	BC     bases.BC
	Deriv  int
	Scaled bool
}

func (s Side) Short() string {
	if s.BC == bases.Orthogonal {
		return s.Family.Short()
	}
	return s.BC.Short()
}

// Key is the typed registry key of an operator.
type Key struct {
	Test, Trial Side
	Measure     Measure
}

// Operand is a basis together with the derivative order applied to it.
type Operand struct {
	Basis *bases.Basis
	Deriv int
}

func sideOf(o Operand) Side {
	return Side{
		Family: o.Basis.Family(),
		BC:     o.Basis.BC(),
		Deriv:  o.Deriv,
		Scaled: o.Basis.IsScaled(),
	}
}

func KeyFor(test, trial Operand, measure Measure) Key {
	return Key{Test: sideOf(test), Trial: sideOf(trial), Measure: measure}
}

var orderLetters = [...]string{"B", "C", "A", "D", "S"}

// String is the canonical name of the key, e.g. "BSDSDmat", "A1SDSDmat" or
// "BTTmat(r)". The scaled flag is not part of the name.
func (k Key) String() string {
	var (
		total  = k.Test.Deriv + k.Trial.Deriv
		letter string
	)
	if total < len(orderLetters) {
		letter = orderLetters[total]
	} else {
		letter = fmt.Sprintf("M%d", total)
	}
	if k.Test.Deriv > 0 {
		letter += strconv.Itoa(k.Test.Deriv)
	}
	s := letter + k.Test.Short() + k.Trial.Short() + "mat"
	if !k.Measure.IsUnit() {
		s += "(" + k.Measure.Name() + ")"
	}
	return s
}
