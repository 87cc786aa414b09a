package la

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/notargets/gospectral/bases"
	"github.com/notargets/gospectral/pencil"
	"github.com/notargets/gospectral/tensor"
	"github.com/notargets/gospectral/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type basisSpec struct {
	family bases.Family
	n      int
	opts   []bases.Option
}

func newSpace(comm pencil.Comm, specs []basisSpec, opts ...tensor.Option) (*tensor.TensorProductSpace, error) {
	bs := make([]*bases.Basis, len(specs))
	for i, s := range specs {
		b, err := bases.New(s.family, s.n, s.opts...)
		if err != nil {
			return nil, err
		}
		bs[i] = b
	}
	return tensor.NewTensorProductSpace(comm, bs, opts...)
}

func dirichlet(f bases.Family, n int, opts ...bases.Option) basisSpec {
	return basisSpec{f, n, append([]bases.Option{bases.WithBC(bases.Dirichlet)}, opts...)}
}

func fourier(n int, opts ...bases.Option) basisSpec { return basisSpec{bases.Fourier, n, opts} }

// randomFunction fills the local part of a seeded global coefficient array.
func randomFunction(T *tensor.TensorProductSpace, seed int64) (*tensor.Function, error) {
	var (
		rnd = rand.New(rand.NewSource(seed))
		G   = utils.NewNDArray(T.GlobalShape(true)...)
	)
	for i := range G.Data {
		G.Data[i] = complex(rnd.Float64()-0.5, rnd.Float64()-0.5)
	}
	local, err := T.Slab(true).Local(G, T.Comm().Rank())
	if err != nil {
		return nil, err
	}
	return T.WrapFunction(local)
}

// roundTrip checks Solve(Matvec(u)) against u relative to the size of u.
func roundTrip(s Solver, T *tensor.TensorProductSpace, seed int64, tol float64) error {
	u, err := randomFunction(T, seed)
	if err != nil {
		return err
	}
	f, err := s.Matvec(u, nil)
	if err != nil {
		return err
	}
	v, err := s.Solve(f, nil)
	if err != nil {
		return err
	}
	if d := v.MaxAbsDiff(u.NDArray) / u.MaxAbs(); d > tol {
		return fmt.Errorf("solve of matvec differs by %v relative", d)
	}
	return nil
}

func helmholtzForm(T *tensor.TensorProductSpace, alpha complex128) ([]*tensor.TPMatrix, error) {
	var (
		v = tensor.TestFunction(T)
		u = tensor.TrialFunction(T)
	)
	return tensor.Inner(v, tensor.Add(tensor.Scale(tensor.Laplace(u), -1), tensor.Scale(u, alpha)))
}

// u = (1 - x^2)(1 + cos(theta) + sin(2 theta)) solves -u'' + alpha u = f.
func helmholtzExact(q []float64) complex128 {
	g := 1 + math.Cos(q[0]) + math.Sin(2*q[0])
	return complex((1-q[1]*q[1])*g, 0)
}

func helmholtzForcing(alpha float64) func(q []float64) complex128 {
	return func(q []float64) complex128 {
		var (
			x = q[1]
			g = 1 + math.Cos(q[0]) + math.Sin(2*q[0])
			h = math.Cos(q[0]) + 4*math.Sin(2*q[0])
		)
		return complex((1-x*x)*h+2*g+alpha*(1-x*x)*g, 0)
	}
}

func TestHelmholtz2D(t *testing.T) {
	const alpha = 2.
	check := func(comm pencil.Comm) error {
		T, err := newSpace(comm, []basisSpec{fourier(12), dirichlet(bases.Legendre, 14)})
		if err != nil {
			return err
		}
		mats, err := helmholtzForm(T, alpha)
		if err != nil {
			return err
		}
		H, err := NewHelmholtz(mats)
		if err != nil {
			return err
		}
		if H.A.Key() != "ASDSDmat" || H.B.Key() != "BSDSDmat" {
			return fmt.Errorf("unexpected operators %s and %s", H.A.Key(), H.B.Key())
		}
		b, err := T.ScalarProduct(T.ArrayFrom(helmholtzForcing(alpha)))
		if err != nil {
			return err
		}
		uh, err := H.Solve(b, nil)
		if err != nil {
			return err
		}
		a, err := T.Backward(uh)
		if err != nil {
			return err
		}
		if d := a.MaxAbsDiff(T.ArrayFrom(helmholtzExact).NDArray); d > 1.e-10 {
			return fmt.Errorf("solution error %v", d)
		}
		return roundTrip(H, T, 1, 1.e-8)
	}
	require.NoError(t, check(pencil.Self()))
	for _, np := range []int{2, 3} {
		require.NoError(t, pencil.Run(np, check), "np=%d", np)
	}
}

func TestHelmholtz3D(t *testing.T) {
	check := func(comm pencil.Comm) error {
		T, err := newSpace(comm, []basisSpec{fourier(8), fourier(6), dirichlet(bases.Chebyshev, 12)})
		if err != nil {
			return err
		}
		mats, err := helmholtzForm(T, 1)
		if err != nil {
			return err
		}
		H, err := NewHelmholtz(mats)
		if err != nil {
			return err
		}
		return roundTrip(H, T, 2, 1.e-8)
	}
	require.NoError(t, check(pencil.Self()))
	require.NoError(t, pencil.Run(2, check))
}

func biharmonic(f bases.Family, n int) basisSpec {
	return basisSpec{f, n, []bases.Option{bases.WithBC(bases.Biharmonic)}}
}

func TestBiharmonic(t *testing.T) {
	T, err := newSpace(nil, []basisSpec{fourier(8), biharmonic(bases.Legendre, 16)})
	require.NoError(t, err)
	var (
		v = tensor.TestFunction(T)
		u = tensor.TrialFunction(T)
	)
	mats, err := tensor.Inner(v, tensor.Add(tensor.Laplace(tensor.Laplace(u)), tensor.Scale(u, 3)))
	require.NoError(t, err)
	B, err := NewBiharmonic(mats)
	require.NoError(t, err)
	assert.Equal(t, "SSBSBmat", B.S.Key())
	assert.Equal(t, "ASBSBmat", B.A.Key())
	assert.Equal(t, "BSBSBmat", B.B.Key())
	require.NoError(t, roundTrip(B, T, 3, 1.e-6))

	_, err = NewHelmholtz(mats)
	assert.True(t, errors.Is(err, utils.ErrOperatorKeys))
}

func TestChebyshevBiharmonic(t *testing.T) {
	for _, specs := range [][]basisSpec{
		{fourier(8), biharmonic(bases.Chebyshev, 16)},
		{fourier(8), fourier(6), biharmonic(bases.Chebyshev, 14)},
	} {
		check := func(comm pencil.Comm) error {
			T, err := newSpace(comm, specs)
			if err != nil {
				return err
			}
			var (
				v = tensor.TestFunction(T)
				u = tensor.TrialFunction(T)
			)
			mats, err := tensor.Inner(v, tensor.Add(tensor.Laplace(tensor.Laplace(u)), tensor.Scale(u, 3)))
			if err != nil {
				return err
			}
			B, err := NewBiharmonic(mats)
			if err != nil {
				return err
			}
			if B.S.Key() != "SSBSBmat" || B.A.Key() != "ASBSBmat" || B.B.Key() != "BSBSBmat" {
				return fmt.Errorf("unexpected operators %s, %s and %s", B.S.Key(), B.A.Key(), B.B.Key())
			}
			return roundTrip(B, T, 7, 1.e-6)
		}
		require.NoError(t, check(pencil.Self()), "dims=%d", len(specs))
		require.NoError(t, pencil.Run(2, check), "dims=%d np=2", len(specs))
	}
}

func TestOperatorKeys(t *testing.T) {
	T, err := newSpace(nil, []basisSpec{fourier(8), dirichlet(bases.Legendre, 10)})
	require.NoError(t, err)
	var (
		v = tensor.TestFunction(T)
		u = tensor.TrialFunction(T)
	)
	mass, err := tensor.Inner(v, u)
	require.NoError(t, err)
	_, err = NewHelmholtz(mass)
	assert.True(t, errors.Is(err, utils.ErrOperatorKeys))
	_, err = NewBiharmonic(mass)
	assert.True(t, errors.Is(err, utils.ErrOperatorKeys))
	_, err = NewSolver2D(mass)
	assert.True(t, errors.Is(err, utils.ErrOperatorKeys))
	_, err = NewHelmholtz(nil)
	assert.True(t, errors.Is(err, utils.ErrOperatorKeys))

	// Orthogonal bases carry no boundary condition and have no structured solver
	for _, f := range []bases.Family{bases.Chebyshev, bases.Legendre} {
		O, err := newSpace(nil, []basisSpec{fourier(8), {f, 10, nil}})
		require.NoError(t, err)
		mats, err := helmholtzForm(O, 1)
		require.NoError(t, err)
		require.Len(t, mats, 2)
		_, err = NewHelmholtz(mats)
		assert.True(t, errors.Is(err, utils.ErrOperatorKeys), "%v", f)
		_, err = NewBiharmonic(mats)
		assert.True(t, errors.Is(err, utils.ErrOperatorKeys), "%v", f)
	}

	// A first derivative term leaves only the generic solver
	mats, err := tensor.Inner(v, tensor.Add(tensor.Laplace(u), tensor.Add(tensor.Dx(u, 1, 1), tensor.Scale(u, -2))))
	require.NoError(t, err)
	require.Len(t, mats, 3)
	_, err = NewHelmholtz(mats)
	assert.True(t, errors.Is(err, utils.ErrOperatorKeys))
	G, err := NewSolverGeneric1NP(mats)
	require.NoError(t, err)
	require.NoError(t, roundTrip(G, T, 4, 1.e-8))
}

func TestShapeErrors(t *testing.T) {
	T, err := newSpace(nil, []basisSpec{fourier(8), dirichlet(bases.Legendre, 10)})
	require.NoError(t, err)
	S, err := newSpace(nil, []basisSpec{fourier(8), dirichlet(bases.Legendre, 12)})
	require.NoError(t, err)
	mats, err := helmholtzForm(T, 1)
	require.NoError(t, err)
	H, err := NewHelmholtz(mats)
	require.NoError(t, err)
	_, err = H.Solve(S.NewFunction(), nil)
	assert.True(t, errors.Is(err, utils.ErrShape))
	_, err = H.Solve(T.NewFunction(), S.NewFunction())
	assert.True(t, errors.Is(err, utils.ErrShape))
	_, err = H.Matvec(S.NewFunction(), nil)
	assert.True(t, errors.Is(err, utils.ErrShape))
}

func TestSolver2D(t *testing.T) {
	T, err := newSpace(nil, []basisSpec{dirichlet(bases.Legendre, 10), dirichlet(bases.Legendre, 12)})
	require.NoError(t, err)
	var (
		v = tensor.TestFunction(T)
		u = tensor.TrialFunction(T)
	)
	mats, err := tensor.Inner(v, tensor.Scale(tensor.Laplace(u), -1))
	require.NoError(t, err)
	require.Len(t, mats, 2)
	assert.ElementsMatch(t, []string{"ASDSDmat*BSDSDmat", "BSDSDmat*ASDSDmat"},
		[]string{mats[0].Key(), mats[1].Key()})
	_, err = NewSolverGeneric1NP(mats)
	assert.True(t, errors.Is(err, utils.ErrOperatorKeys))

	P, err := NewSolver2D(mats)
	require.NoError(t, err)
	b, err := T.ScalarProduct(T.ArrayFrom(func(q []float64) complex128 {
		return complex(2*(1-q[0]*q[0])+2*(1-q[1]*q[1]), 0)
	}))
	require.NoError(t, err)
	uh, err := P.Solve(b, nil)
	require.NoError(t, err)
	a, err := T.Backward(uh)
	require.NoError(t, err)
	exact := T.ArrayFrom(func(q []float64) complex128 {
		return complex((1-q[0]*q[0])*(1-q[1]*q[1]), 0)
	})
	assert.Less(t, a.MaxAbsDiff(exact.NDArray), 1.e-10)
	require.NoError(t, roundTrip(P, T, 5, 1.e-8))

	// With a Fourier axis every mode gets its own 2D system
	check := func(comm pencil.Comm) error {
		T, err := newSpace(comm, []basisSpec{
			dirichlet(bases.Legendre, 8), fourier(6), dirichlet(bases.Chebyshev, 9),
		}, tensor.WithAxes(0, 1, 2))
		if err != nil {
			return err
		}
		mats, err := helmholtzForm(T, 1)
		if err != nil {
			return err
		}
		P, err := NewSolver2D(mats)
		if err != nil {
			return err
		}
		return roundTrip(P, T, 6, 1.e-8)
	}
	require.NoError(t, check(pencil.Self()))
	require.NoError(t, pencil.Run(2, check))

	err = pencil.Run(2, func(comm pencil.Comm) error {
		T, err := newSpace(comm, []basisSpec{dirichlet(bases.Legendre, 8), dirichlet(bases.Legendre, 8)})
		if err != nil {
			return err
		}
		mats, err := helmholtzForm(T, 1)
		if err != nil {
			return err
		}
		_, err = NewSolver2D(mats)
		return err
	})
	assert.True(t, errors.Is(err, utils.ErrNotImplemented))
}

// The unit disc problem -lap u + alpha u = f with
// u = (1 - r^2)(1 + r cos(theta)) and u = 0 on r = 1.
func unitDiscSolver(comm pencil.Comm, alpha float64) (solver *Axisymmetric, err error) {
	var (
		T, T0       *tensor.TensorProductSpace
		mats, mats0 []*tensor.TPMatrix
	)
	if T, err = newSpace(comm, []basisSpec{
		fourier(8, bases.Real()),
		dirichlet(bases.Legendre, 16, bases.WithDomain(0, 1)),
	}, tensor.WithCoordinates(tensor.Polar()), tensor.ExcludeZeroMode(0)); err != nil {
		return
	}
	if T0, err = newSpace(pencil.Self(), []basisSpec{
		fourier(1, bases.Real()),
		{bases.Legendre, 16, []bases.Option{bases.WithBC(bases.UpperDirichlet), bases.WithDomain(0, 1)}},
	}, tensor.WithCoordinates(tensor.Polar())); err != nil {
		return
	}
	form := func(T *tensor.TensorProductSpace) (mats []*tensor.TPMatrix, err error) {
		var (
			v = tensor.TestFunction(T)
			u = tensor.TrialFunction(T)
		)
		stiff, err := tensor.Inner(tensor.Grad(v), tensor.Grad(u))
		if err != nil {
			return nil, err
		}
		mass, err := tensor.Inner(v, tensor.Scale(u, complex(alpha, 0)))
		if err != nil {
			return nil, err
		}
		return append(stiff, mass...), nil
	}
	if mats, err = form(T); err != nil {
		return
	}
	if mats0, err = form(T0); err != nil {
		return
	}
	if len(mats) != 3 || len(mats0) != 2 {
		return nil, fmt.Errorf("got %d and %d operators", len(mats), len(mats0))
	}
	return NewAxisymmetric(mats, mats0)
}

func unitDisc(comm pencil.Comm, alpha float64) (err error) {
	solver, err := unitDiscSolver(comm, alpha)
	if err != nil {
		return
	}
	T, T0 := solver.T, solver.T0
	b, err := T.ScalarProduct(T.ArrayFrom(func(q []float64) complex128 {
		r := q[1]
		return complex(4+8*r*math.Cos(q[0])+alpha*(1-r*r)*(1+r*math.Cos(q[0])), 0)
	}))
	if err != nil {
		return
	}
	b0, err := T0.ScalarProduct(T0.ArrayFrom(func(q []float64) complex128 {
		return complex(4+alpha*(1-q[1]*q[1]), 0)
	}))
	if err != nil {
		return
	}
	u, u0, err := solver.Solve(b, b0)
	if err != nil {
		return
	}
	a, err := solver.Backward(u, u0)
	if err != nil {
		return
	}
	exact := T.ArrayFrom(func(q []float64) complex128 {
		return complex((1-q[1]*q[1])*(1+q[1]*math.Cos(q[0])), 0)
	})
	if d := a.MaxAbsDiff(exact.NDArray); d > 1.e-9 {
		return fmt.Errorf("unit disc solution error %v", d)
	}
	return nil
}

func TestAxisymmetric(t *testing.T) {
	require.NoError(t, unitDisc(pencil.Self(), 1))
	for _, np := range []int{2, 3} {
		require.NoError(t, pencil.Run(np, func(c pencil.Comm) error { return unitDisc(c, 1) }), "np=%d", np)
	}

	T, err := newSpace(nil, []basisSpec{fourier(8), dirichlet(bases.Legendre, 10)})
	require.NoError(t, err)
	mats, err := helmholtzForm(T, 1)
	require.NoError(t, err)
	_, err = NewAxisymmetric(mats, mats)
	assert.Error(t, err)
}

func TestAxisymmetricFailsOnEveryRank(t *testing.T) {
	for _, np := range []int{2, 3} {
		var failed [3]bool
		err := pencil.Run(np, func(c pencil.Comm) error {
			solver, err := unitDiscSolver(c, 1)
			if err != nil {
				return err
			}
			// rank 0 has no zero mode right hand side
			_, _, err = solver.Solve(solver.T.NewFunction(), nil)
			failed[c.Rank()] = err != nil
			if c.Rank() == 0 && !errors.Is(err, utils.ErrShape) {
				return fmt.Errorf("rank 0: expected a shape error, got %v", err)
			}
			// a wrong right hand side on the last rank only
			b := solver.T.NewFunction()
			if c.Rank() == c.Size()-1 {
				b = &tensor.Function{NDArray: utils.NewNDArray(2, 3)}
			}
			b0 := solver.T0.NewFunction()
			if _, _, err = solver.Solve(b, b0); err == nil {
				return fmt.Errorf("rank %d: solve succeeded", c.Rank())
			}
			return nil
		})
		require.NoError(t, err, "np=%d", np)
		for r := 0; r < np; r++ {
			assert.True(t, failed[r], "np=%d rank %d", np, r)
		}
	}
}
