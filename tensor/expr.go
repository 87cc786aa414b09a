package tensor

import (
	"fmt"

	"github.com/notargets/gospectral/utils"
)

type Kind uint8

const (
	TestKind Kind = iota
	TrialKind
)

func (k Kind) String() string {
	if k == TestKind {
		return "test"
	}
	return "trial"
}

// Term is Coef * r^RPow * d^Deriv[0]/dq_0 ... d^Deriv[n-1]/dq_{n-1} applied
// to a test or trial function.
type Term struct {
	Coef  complex128
	Deriv []int
	RPow  int
}

func (t Term) copyTerm() Term {
	return Term{Coef: t.Coef, Deriv: append([]int{}, t.Deriv...), RPow: t.RPow}
}

// Expr is a linear differential expression of a test or trial function.
// Scalars have one component, vectors one per axis. Errors are carried
// along and reported by Inner.
type Expr struct {
	space *TensorProductSpace
	kind  Kind
	comps [][]Term
	err   error
}

func newFunction(s *TensorProductSpace, kind Kind) Expr {
	return Expr{
		space: s,
		kind:  kind,
		comps: [][]Term{{{Coef: 1, Deriv: make([]int, s.Ndim())}}},
	}
}

func TestFunction(s *TensorProductSpace) Expr  { return newFunction(s, TestKind) }
func TrialFunction(s *TensorProductSpace) Expr { return newFunction(s, TrialKind) }

func (e Expr) Space() *TensorProductSpace { return e.space }
func (e Expr) Kind() Kind                 { return e.kind }
func (e Expr) Err() error                 { return e.err }
func (e Expr) IsScalar() bool             { return len(e.comps) == 1 }
func (e Expr) NumComponents() int         { return len(e.comps) }

// Terms returns the terms of component c.
func (e Expr) Terms(c int) []Term { return e.comps[c] }

func (e Expr) failed(format string, args ...any) Expr {
	if e.err == nil {
		e.err = fmt.Errorf(format, args...)
	}
	return e
}

// diff differentiates one term along axis, using the product rule when the
// axis is radial and the term carries a power of r.
func (e Expr) diff(t Term, axis int) (out []Term) {
	if axis == e.space.coords.Radial && t.RPow != 0 {
		lower := t.copyTerm()
		lower.Coef *= complex(float64(t.RPow), 0)
		lower.RPow--
		out = append(out, lower)
	}
	d := t.copyTerm()
	d.Deriv[axis]++
	return append(out, d)
}

// Dx differentiates a scalar expression k times along axis.
func Dx(e Expr, axis, k int) Expr {
	if e.err != nil {
		return e
	}
	if !e.IsScalar() {
		return e.failed("Dx of a vector expression")
	}
	if axis < 0 || axis >= e.space.Ndim() {
		return e.failed("Dx along axis %d of a %d dimensional space", axis, e.space.Ndim())
	}
	terms := e.comps[0]
	for ; k > 0; k-- {
		var next []Term
		for _, t := range terms {
			next = append(next, e.diff(t, axis)...)
		}
		terms = next
	}
	e.comps = [][]Term{terms}
	return e
}

// Grad is the vector of physical components (1/h_i) d/dq_i.
func Grad(e Expr) Expr {
	if e.err != nil {
		return e
	}
	if !e.IsScalar() {
		return e.failed("Grad of a vector expression")
	}
	comps := make([][]Term, e.space.Ndim())
	for i := range comps {
		for _, t := range e.comps[0] {
			for _, d := range e.diff(t, i) {
				d.RPow -= e.space.coords.HPow[i]
				comps[i] = append(comps[i], d)
			}
		}
	}
	e.comps = comps
	return e
}

// Div is (1/J) sum_i d/dq_i (J/h_i v_i).
func Div(e Expr) Expr {
	if e.err != nil {
		return e
	}
	var (
		c  = e.space.coords
		nd = e.space.Ndim()
	)
	if len(e.comps) != nd {
		return e.failed("Div of an expression with %d components in %d dimensions", len(e.comps), nd)
	}
	var out []Term
	for i, comp := range e.comps {
		for _, t := range comp {
			s := t.copyTerm()
			s.RPow += c.JPow - c.HPow[i]
			for _, d := range e.diff(s, i) {
				d.RPow -= c.JPow
				out = append(out, d)
			}
		}
	}
	e.comps = [][]Term{out}
	return e
}

func Laplace(e Expr) Expr { return Div(Grad(e)) }

func Add(a, b Expr) Expr {
	switch {
	case a.err != nil:
		return a
	case b.err != nil:
		return b
	case a.space != b.space:
		return a.failed("%w: adding expressions of different spaces", utils.ErrShape)
	case a.kind != b.kind:
		return a.failed("adding a %v and a %v expression", a.kind, b.kind)
	case len(a.comps) != len(b.comps):
		return a.failed("%w: adding expressions with %d and %d components", utils.ErrShape,
			len(a.comps), len(b.comps))
	}
	comps := make([][]Term, len(a.comps))
	for i := range comps {
		comps[i] = append(append([]Term{}, a.comps[i]...), b.comps[i]...)
	}
	a.comps = comps
	return a
}

func Scale(e Expr, c complex128) Expr {
	if e.err != nil {
		return e
	}
	comps := make([][]Term, len(e.comps))
	for i, comp := range e.comps {
		for _, t := range comp {
			s := t.copyTerm()
			s.Coef *= c
			comps[i] = append(comps[i], s)
		}
	}
	e.comps = comps
	return e
}
