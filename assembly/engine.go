package assembly

import (
	"fmt"
	"log/slog"
	"math"
	"math/cmplx"

	"github.com/notargets/gospectral/bases"
	"github.com/notargets/gospectral/logger"
	"github.com/notargets/gospectral/matrix"
	"github.com/notargets/gospectral/utils"
	"gonum.org/v1/gonum/mat"
)

// CompressTol is the relative size below which assembled diagonals are dropped.
const CompressTol = 1.e-12

// Engine assembles inner product operators, preferring registered closed
// forms and falling back to over-integrated quadrature.
type Engine struct {
	registry *Registry
	log      *slog.Logger
}

type EngineOption func(e *Engine)

func WithRegistry(r *Registry) EngineOption { return func(e *Engine) { e.registry = r } }

func WithLogger(l *slog.Logger) EngineOption { return func(e *Engine) { e.log = l } }

func NewEngine(opts ...EngineOption) (e *Engine) {
	e = &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = DefaultRegistry()
	}
	if e.log == nil {
		e.log = logger.ForComponent("assembly")
	}
	return
}

func (e *Engine) Registry() *Registry { return e.registry }

// Assemble returns M[i][j] = int d^a phi_i d^b psi_j measure w dx with the
// test basis conjugated. The result carries the canonical key.
func (e *Engine) Assemble(test, trial Operand, measure Measure) (m *matrix.SparseMatrix, err error) {
	if err = checkOperands(test, trial); err != nil {
		return
	}
	key := KeyFor(test, trial, measure)
	if f, ok := e.registry.Lookup(key); ok {
		m = f(test.Basis, trial.Basis, test.Deriv, trial.Deriv)
	} else {
		e.log.Debug("no closed form, using quadrature", "key", key.String(),
			"test", test.Basis.String(), "trial", trial.Basis.String())
		if m, err = e.Quadrature(test, trial, measure); err != nil {
			return nil, err
		}
	}
	m.SetKey(key.String())
	return
}

func checkOperands(test, trial Operand) error {
	if test.Basis == nil || trial.Basis == nil {
		return fmt.Errorf("%w: missing basis", utils.ErrNotImplemented)
	}
	if test.Deriv < 0 || trial.Deriv < 0 {
		return fmt.Errorf("negative derivative order (%d, %d)", test.Deriv, trial.Deriv)
	}
	if !test.Basis.SameSpace(trial.Basis) {
		return fmt.Errorf("%w: inner product of %v and %v", utils.ErrNotImplemented,
			test.Basis, trial.Basis)
	}
	return nil
}

// quadraturePoints is the size of the Gauss rule that integrates the
// polynomial integrand exactly.
func quadraturePoints(n int, measure Measure) int {
	if !measure.IsPolynomial() {
		return 2*n + 8
	}
	return n + 2 + measure.Power/2
}

// Quadrature assembles the operator numerically, bypassing the registry.
func (e *Engine) Quadrature(test, trial Operand, measure Measure) (m *matrix.SparseMatrix, err error) {
	if err = checkOperands(test, trial); err != nil {
		return
	}
	tb, ub := test.Basis, trial.Basis
	if tb.IsPeriodic() {
		if !measure.IsUnit() {
			err = fmt.Errorf("%w: Fourier inner product with measure %s", utils.ErrNotImplemented,
				measure.Name())
			return
		}
		return fourierQuadrature(test, trial), nil
	}
	var (
		M       = quadraturePoints(tb.N(), measure)
		X, W    []float64
		Vt, Vu  *mat.Dense
		weights []float64
	)
	if X, W, err = tb.GaussRule(M); err != nil {
		return
	}
	if Vt, err = tb.Vandermonde(X, test.Deriv); err != nil {
		return
	}
	if Vu, err = ub.Vandermonde(X, trial.Deriv); err != nil {
		return
	}
	weights = make([]float64, len(X))
	for i, x := range X {
		weights[i] = W[i] * tb.DomainFactor() * measure.Eval(tb.Map(x))
	}
	WVu := mat.NewDense(len(X), ub.Dim(), nil)
	WVu.Apply(func(i, j int, v float64) float64 { return weights[i] * v }, Vu)
	A := mat.NewDense(tb.Dim(), ub.Dim(), nil)
	A.Mul(Vt.T(), WVu)
	m = matrix.FromDense(A, CompressTol)
	return
}

// fourierQuadrature evaluates the modes on a uniform grid that resolves
// every product of two modes.
func fourierQuadrature(test, trial Operand) *matrix.SparseMatrix {
	var (
		b        = test.Basis
		k        = b.Wavenumbers()
		lower, _ = b.Domain()
		M        = 2*b.N() + 2
		dx       = b.Length() / float64(M)
		phase    = utils.IPow(trial.Deriv) * utils.IPow(3*test.Deriv)
		A        = mat.NewDense(len(k), len(k), nil)
	)
	mode := func(kk, deriv int, x float64) complex128 {
		w := b.PhysicalWavenumber(kk)
		v := cmplx.Exp(complex(0, w*(x-lower)))
		for d := 0; d < deriv; d++ {
			v *= complex(0, w)
		}
		return v
	}
	for i, ki := range k {
		for j, kj := range k {
			var s complex128
			for q := 0; q < M; q++ {
				x := lower + float64(q)*dx
				s += cmplx.Conj(mode(ki, test.Deriv, x)) * mode(kj, trial.Deriv, x)
			}
			A.Set(i, j, real(s*complex(dx, 0)/phase))
		}
	}
	m := matrix.FromDense(A, CompressTol)
	m.SetScale(phase)
	return m.Simplify()
}

// CheckPair compares the registered closed form of a pair against
// quadrature: |a-b| <= tol max|b| elementwise.
func (e *Engine) CheckPair(test, trial Operand, tol float64) (err error) {
	key := KeyFor(test, trial, Unit)
	f, ok := e.registry.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: no closed form for %s", utils.ErrNotImplemented, key)
	}
	if err = checkOperands(test, trial); err != nil {
		return
	}
	closed := f(test.Basis, trial.Basis, test.Deriv, trial.Deriv)
	quad, err := e.Quadrature(test, trial, Unit)
	if err != nil {
		return
	}
	var (
		rows, cols = closed.Shape()
		limit      = tol * math.Max(quad.MaxAbs(), math.SmallestNonzeroFloat64)
	)
	if r, c := quad.Shape(); r != rows || c != cols {
		return fmt.Errorf("%w: %s closed form is %dx%d, quadrature %dx%d", utils.ErrSanity,
			key, rows, cols, r, c)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if d := cmplx.Abs(closed.Entry(i, j) - quad.Entry(i, j)); d > limit {
				return fmt.Errorf("%w: %s entry (%d, %d) differs by %.3g (closed %v, quadrature %v)",
					utils.ErrSanity, key, i, j, d, closed.Entry(i, j), quad.Entry(i, j))
			}
		}
	}
	return
}

// CheckSanity builds reference bases of size n for key and checks its
// closed form against quadrature.
func (e *Engine) CheckSanity(key Key, n int, tol float64) (err error) {
	var test, trial *bases.Basis
	if test, err = basisFor(key.Test, n); err != nil {
		return
	}
	if trial, err = basisFor(key.Trial, n); err != nil {
		return
	}
	return e.CheckPair(Operand{test, key.Test.Deriv}, Operand{trial, key.Trial.Deriv}, tol)
}

func basisFor(s Side, n int) (*bases.Basis, error) {
	opts := []bases.Option{bases.WithBC(s.BC)}
	if s.Scaled {
		opts = append(opts, bases.Scaled())
	}
	return bases.New(s.Family, n, opts...)
}
