package assembly

import (
	"sort"
	"sync"

	"github.com/notargets/gospectral/bases"
)

// Registry maps operator keys to closed forms. It is never mutated after
// construction; Extend returns a new registry.
type Registry struct {
	forms map[Key]ClosedForm
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the shared registry of closed forms.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = &Registry{forms: make(map[Key]ClosedForm)}
		defaultRegistry.populate()
	})
	return defaultRegistry
}

func (r *Registry) HasClosedForm(k Key) bool {
	_, ok := r.forms[k]
	return ok
}

func (r *Registry) Lookup(k Key) (f ClosedForm, ok bool) {
	f, ok = r.forms[k]
	return
}

// Extend returns a copy of r with k bound to f.
func (r *Registry) Extend(k Key, f ClosedForm) *Registry {
	n := &Registry{forms: make(map[Key]ClosedForm, len(r.forms)+1)}
	for kk, ff := range r.forms {
		n.forms[kk] = ff
	}
	n.forms[k] = f
	return n
}

// Keys lists the registered keys in canonical name order.
func (r *Registry) Keys() (keys []Key) {
	keys = make([]Key, 0, len(r.forms))
	for k := range r.forms {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		si, sj := keys[i].String(), keys[j].String()
		if si != sj {
			return si < sj
		}
		return !keys[i].Test.Scaled && keys[j].Test.Scaled
	})
	return
}

func (r *Registry) put(f ClosedForm, family bases.Family, test, trial bases.BC, a, b int, scaled bool) {
	k := Key{
		Test:  Side{Family: family, BC: test, Deriv: a, Scaled: scaled},
		Trial: Side{Family: family, BC: trial, Deriv: b, Scaled: scaled},
	}
	r.forms[k] = f
}

// sym registers f for (a, b) on a basis paired with itself.
func (r *Registry) sym(f func(t, u *bases.Basis, b *builder), family bases.Family, bc bases.BC, a, b int) {
	r.put(reference(f), family, bc, bc, a, b, false)
}

func (r *Registry) populate() {
	var (
		B  = bases.Orthogonal
		SD = bases.Dirichlet
		SB = bases.Biharmonic
	)
	mass := reference(stencilMass)
	for _, family := range []bases.Family{bases.Chebyshev, bases.Legendre, bases.Jacobi,
		bases.Laguerre, bases.Hermite} {
		bcs := bases.SupportedBCs(family)
		for _, test := range bcs {
			for _, trial := range bcs {
				r.put(mass, family, test, trial, 0, 0, false)
			}
		}
	}
	r.put(mass, bases.Legendre, SD, SD, 0, 0, true)

	r.sym(chebyshevD1, bases.Chebyshev, B, 0, 1)
	r.sym(chebyshevD2, bases.Chebyshev, B, 0, 2)
	r.sym(chebyshevDirichletD1, bases.Chebyshev, SD, 0, 1)
	r.sym(chebyshevDirichletD2, bases.Chebyshev, SD, 0, 2)

	r.sym(legendreD1, bases.Legendre, B, 0, 1)
	r.sym(legendreD2, bases.Legendre, B, 0, 2)
	for _, scaled := range []bool{false, true} {
		r.put(reference(legendreDirichletStiffness), bases.Legendre, SD, SD, 1, 1, scaled)
		r.put(reference(negate(legendreDirichletStiffness)), bases.Legendre, SD, SD, 0, 2, scaled)
	}
	r.sym(legendreBiharmonicD2, bases.Legendre, SB, 0, 2)
	r.sym(negate(legendreBiharmonicD2), bases.Legendre, SB, 1, 1)
	r.sym(legendreBiharmonicD4, bases.Legendre, SB, 0, 4)
	r.sym(legendreBiharmonicD4, bases.Legendre, SB, 2, 2)
	r.sym(legendrePhi1Stiffness, bases.Legendre, bases.Phi1, 1, 1)
	r.sym(negate(legendrePhi1Stiffness), bases.Legendre, bases.Phi1, 0, 2)

	r.sym(laguerreD1, bases.Laguerre, B, 0, 1)
	r.sym(laguerreDirichletStiffness, bases.Laguerre, SD, 1, 1)
	r.sym(negate(laguerreDirichletStiffness), bases.Laguerre, SD, 0, 2)

	r.sym(hermiteD1, bases.Hermite, B, 0, 1)
	r.sym(hermiteStiffness, bases.Hermite, B, 1, 1)
	r.sym(negate(hermiteStiffness), bases.Hermite, B, 0, 2)

	for a := 0; a <= 4; a++ {
		for b := 0; b <= 4; b++ {
			r.put(fourier, bases.Fourier, B, B, a, b, false)
		}
	}
}
