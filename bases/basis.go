package bases

import (
	"fmt"
	"math"
	"strings"

	"github.com/notargets/gospectral/utils"
)

type Family uint8

const (
	Chebyshev Family = iota
	Legendre
	Jacobi
	Laguerre
	Hermite
	Fourier
)

func (f Family) String() string {
	switch f {
	case Chebyshev:
		return "Chebyshev"
	case Legendre:
		return "Legendre"
	case Jacobi:
		return "Jacobi"
	case Laguerre:
		return "Laguerre"
	case Hermite:
		return "Hermite"
	case Fourier:
		return "Fourier"
	}
	return fmt.Sprintf("Family(%d)", uint8(f))
}

// Short is the registry name of the orthogonal member of the family.
func (f Family) Short() string {
	switch f {
	case Chebyshev:
		return "T"
	case Legendre:
		return "L"
	case Jacobi:
		return "J"
	case Laguerre:
		return "La"
	case Hermite:
		return "H"
	case Fourier:
		return "F"
	}
	return "?"
}

func ParseFamily(s string) (f Family, err error) {
	switch strings.ToLower(s) {
	case "chebyshev", "t", "c":
		return Chebyshev, nil
	case "legendre", "l":
		return Legendre, nil
	case "jacobi", "j":
		return Jacobi, nil
	case "laguerre", "la":
		return Laguerre, nil
	case "hermite", "h":
		return Hermite, nil
	case "fourier", "f":
		return Fourier, nil
	}
	err = fmt.Errorf("unknown basis family %q", s)
	return
}

// BC selects the boundary condition variant. Everything but Orthogonal is a
// composite basis built from a stencil over the parent family.
type BC uint8

const (
	Orthogonal BC = iota
	Dirichlet
	Neumann
	Biharmonic
	UpperDirichlet
	LowerDirichlet
	DirichletNeumann
	NeumannDirichlet
	Phi1
	Phi2
	Phi3
	Phi4
	CompactDirichlet
	CompactNeumann
	UpperDirichletNeumann
	LowerDirichletNeumann
)

func (bc BC) String() string {
	switch bc {
	case Orthogonal:
		return "Orthogonal"
	case Dirichlet:
		return "Dirichlet"
	case Neumann:
		return "Neumann"
	case Biharmonic:
		return "Biharmonic"
	case UpperDirichlet:
		return "UpperDirichlet"
	case LowerDirichlet:
		return "LowerDirichlet"
	case DirichletNeumann:
		return "DirichletNeumann"
	case NeumannDirichlet:
		return "NeumannDirichlet"
	case Phi1:
		return "Phi1"
	case Phi2:
		return "Phi2"
	case Phi3:
		return "Phi3"
	case Phi4:
		return "Phi4"
	case CompactDirichlet:
		return "CompactDirichlet"
	case CompactNeumann:
		return "CompactNeumann"
	case UpperDirichletNeumann:
		return "UpperDirichletNeumann"
	case LowerDirichletNeumann:
		return "LowerDirichletNeumann"
	}
	return fmt.Sprintf("BC(%d)", uint8(bc))
}

func (bc BC) Short() string {
	switch bc {
	case Dirichlet:
		return "SD"
	case Neumann:
		return "SN"
	case Biharmonic:
		return "SB"
	case UpperDirichlet:
		return "UD"
	case LowerDirichlet:
		return "LD"
	case DirichletNeumann:
		return "DN"
	case NeumannDirichlet:
		return "ND"
	case Phi1:
		return "P1"
	case Phi2:
		return "P2"
	case Phi3:
		return "P3"
	case Phi4:
		return "P4"
	case CompactDirichlet:
		return "CD"
	case CompactNeumann:
		return "CN"
	case UpperDirichletNeumann:
		return "UDN"
	case LowerDirichletNeumann:
		return "LDN"
	}
	return ""
}

// NumConstraints is the number of boundary conditions the variant enforces
// on a bounded interval.
func (bc BC) NumConstraints() int {
	switch bc {
	case Orthogonal:
		return 0
	case UpperDirichlet, LowerDirichlet:
		return 1
	case Biharmonic, Phi2:
		return 4
	case Phi3:
		return 6
	case Phi4:
		return 8
	}
	return 2
}

// PhiOrder is n for the Phi_n bases, whose functions and first n-1
// derivatives vanish at both ends, and 0 otherwise.
func (bc BC) PhiOrder() int {
	switch bc {
	case Phi1:
		return 1
	case Phi2:
		return 2
	case Phi3:
		return 3
	case Phi4:
		return 4
	}
	return 0
}

func ParseBC(s string) (bc BC, err error) {
	switch strings.ToLower(s) {
	case "", "orthogonal", "none":
		return Orthogonal, nil
	case "dirichlet", "sd":
		return Dirichlet, nil
	case "neumann", "sn":
		return Neumann, nil
	case "biharmonic", "sb":
		return Biharmonic, nil
	case "upperdirichlet", "ud":
		return UpperDirichlet, nil
	case "lowerdirichlet", "ld":
		return LowerDirichlet, nil
	case "dirichletneumann", "dn":
		return DirichletNeumann, nil
	case "neumanndirichlet", "nd":
		return NeumannDirichlet, nil
	case "phi1", "p1":
		return Phi1, nil
	case "phi2", "p2":
		return Phi2, nil
	case "phi3", "p3":
		return Phi3, nil
	case "phi4", "p4":
		return Phi4, nil
	case "compactdirichlet", "cd":
		return CompactDirichlet, nil
	case "compactneumann", "cn":
		return CompactNeumann, nil
	case "upperdirichletneumann", "udn":
		return UpperDirichletNeumann, nil
	case "lowerdirichletneumann", "ldn":
		return LowerDirichletNeumann, nil
	}
	err = fmt.Errorf("unknown boundary condition %q", s)
	return
}

type Quad uint8

const (
	QuadDefault Quad = iota
	GC               // Chebyshev-Gauss
	GL               // Gauss-Lobatto, Chebyshev or Legendre
	LG               // Legendre-Gauss
	JG               // Jacobi-Gauss
	LAG              // Laguerre-Gauss
	HG               // Hermite-Gauss
	Uniform
)

func (q Quad) String() string {
	return [...]string{"default", "GC", "GL", "LG", "JG", "LAG", "HG", "uniform"}[q]
}

func ParseQuad(s string) (q Quad, err error) {
	switch strings.ToUpper(s) {
	case "":
		return QuadDefault, nil
	case "GC":
		return GC, nil
	case "GL":
		return GL, nil
	case "LG":
		return LG, nil
	case "JG":
		return JG, nil
	case "LAG":
		return LAG, nil
	case "HG":
		return HG, nil
	case "UNIFORM":
		return Uniform, nil
	}
	err = fmt.Errorf("unknown quadrature %q", s)
	return
}

// Basis is one immutable one dimensional function space.
type Basis struct {
	family      Family
	bc          BC
	quad        Quad
	n           int
	domain      [2]float64
	scaled      bool
	alpha, beta float64
	realFFT     bool
}

type Option func(b *Basis)

func WithBC(bc BC) Option { return func(b *Basis) { b.bc = bc } }

func WithQuad(q Quad) Option { return func(b *Basis) { b.quad = q } }

func WithDomain(lower, upper float64) Option {
	return func(b *Basis) { b.domain = [2]float64{lower, upper} }
}

// Scaled normalizes the Legendre Dirichlet stencil so that its stiffness
// matrix is the identity.
func Scaled() Option { return func(b *Basis) { b.scaled = true } }

func WithJacobiParams(alpha, beta float64) Option {
	return func(b *Basis) { b.alpha, b.beta = alpha, beta }
}

// Real selects the real-to-complex Fourier basis.
func Real() Option { return func(b *Basis) { b.realFFT = true } }

func New(family Family, n int, opts ...Option) (b *Basis, err error) {
	b = &Basis{family: family, n: n}
	switch family {
	case Fourier:
		b.domain = [2]float64{0, 2 * math.Pi}
	case Laguerre:
		b.domain = [2]float64{0, math.Inf(1)}
	case Hermite:
		b.domain = [2]float64{math.Inf(-1), math.Inf(1)}
	default:
		b.domain = [2]float64{-1, 1}
	}
	for _, opt := range opts {
		opt(b)
	}
	if err = b.validate(); err != nil {
		return nil, err
	}
	return
}

var supportedBCs = map[Family][]BC{
	Chebyshev: {Orthogonal, Dirichlet, Neumann, Biharmonic, UpperDirichlet, LowerDirichlet,
		DirichletNeumann, NeumannDirichlet, UpperDirichletNeumann, LowerDirichletNeumann,
		Phi1, Phi2, Phi3, Phi4},
	Legendre: {Orthogonal, Dirichlet, Neumann, Biharmonic, UpperDirichlet, LowerDirichlet,
		DirichletNeumann, NeumannDirichlet, Phi1, Phi2, Phi3, Phi4},
	Jacobi:   {Orthogonal, CompactDirichlet, CompactNeumann, Phi1, Phi2, Phi3, Phi4},
	Laguerre: {Orthogonal, Dirichlet, CompactNeumann},
	Hermite:  {Orthogonal},
	Fourier:  {Orthogonal},
}

var supportedQuads = map[Family][]Quad{
	Chebyshev: {GC, GL},
	Legendre:  {LG, GL},
	Jacobi:    {JG},
	Laguerre:  {LAG},
	Hermite:   {HG},
	Fourier:   {Uniform},
}

// SupportedBCs lists the boundary conditions available for a family.
func SupportedBCs(f Family) []BC {
	return append([]BC{}, supportedBCs[f]...)
}

func (b *Basis) validate() (err error) {
	bcs, ok := supportedBCs[b.family]
	if !ok {
		return fmt.Errorf("%w: basis family %v", utils.ErrNotImplemented, b.family)
	}
	if !containsBC(bcs, b.bc) {
		return fmt.Errorf("%w: %v basis with %v boundary condition", utils.ErrNotImplemented, b.family, b.bc)
	}
	if b.quad == QuadDefault {
		b.quad = supportedQuads[b.family][0]
	}
	if !containsQuad(supportedQuads[b.family], b.quad) {
		return fmt.Errorf("%w: %v basis with %v quadrature", utils.ErrNotImplemented, b.family, b.quad)
	}
	if b.n < b.numConstraints()+1 {
		return fmt.Errorf("basis size %d too small for %v boundary condition", b.n, b.bc)
	}
	if b.scaled && !(b.family == Legendre && b.bc == Dirichlet) {
		return fmt.Errorf("%w: scaled %v %v basis", utils.ErrNotImplemented, b.family, b.bc)
	}
	if b.realFFT && b.family != Fourier {
		return fmt.Errorf("real-to-complex option requires a Fourier basis, got %v", b.family)
	}
	switch b.family {
	case Laguerre:
		if b.domain != [2]float64{0, math.Inf(1)} {
			return fmt.Errorf("%w: Laguerre basis on domain %v", utils.ErrNotImplemented, b.domain)
		}
	case Hermite:
		if b.domain != [2]float64{math.Inf(-1), math.Inf(1)} {
			return fmt.Errorf("%w: Hermite basis on domain %v", utils.ErrNotImplemented, b.domain)
		}
	default:
		if !(b.domain[0] < b.domain[1]) || math.IsInf(b.domain[0], 0) || math.IsInf(b.domain[1], 0) {
			return fmt.Errorf("invalid domain %v: lower bound must be below upper bound", b.domain)
		}
	}
	if b.family == Jacobi {
		if b.alpha <= -1 || b.beta <= -1 || math.Abs(b.alpha+b.beta+1) < 1.e-12 {
			return fmt.Errorf("%w: Jacobi parameters (%v, %v)", utils.ErrNotImplemented, b.alpha, b.beta)
		}
	}
	return
}

func containsBC(list []BC, bc BC) bool {
	for _, l := range list {
		if l == bc {
			return true
		}
	}
	return false
}

func containsQuad(list []Quad, q Quad) bool {
	for _, l := range list {
		if l == q {
			return true
		}
	}
	return false
}

func (b *Basis) Family() Family                      { return b.family }
func (b *Basis) BC() BC                              { return b.bc }
func (b *Basis) Quad() Quad                          { return b.quad }
func (b *Basis) N() int                              { return b.n }
func (b *Basis) Domain() (lower, upper float64)      { return b.domain[0], b.domain[1] }
func (b *Basis) IsScaled() bool                      { return b.scaled }
func (b *Basis) JacobiParams() (alpha, beta float64) { return b.alpha, b.beta }
func (b *Basis) IsReal() bool                        { return b.realFFT }
func (b *Basis) IsPeriodic() bool                    { return b.family == Fourier }
func (b *Basis) IsOrthogonal() bool                  { return b.bc == Orthogonal }

// Dim is the number of basis functions, the length of a coefficient vector.
func (b *Basis) Dim() int {
	if b.family == Fourier && b.realFFT {
		return b.n/2 + 1
	}
	return b.n - b.numConstraints()
}

// numConstraints is one for the composite Laguerre bases, which are
// constrained at x = 0 only.
func (b *Basis) numConstraints() int {
	if b.family == Laguerre && b.bc != Orthogonal {
		return 1
	}
	return b.bc.NumConstraints()
}

// Short is the registry name of the basis, e.g. "T", "SD" or "SB".
func (b *Basis) Short() string {
	if b.bc == Orthogonal {
		return b.family.Short()
	}
	return b.bc.Short()
}

// Identity is the registry identity of a basis.
type Identity struct {
	Family Family
	BC     BC
}

func (b *Basis) Identity() Identity { return Identity{Family: b.family, BC: b.bc} }

func (b *Basis) Length() float64 { return b.domain[1] - b.domain[0] }

// HasFiniteDomain is false for Laguerre and Hermite functions, which live on
// their natural unbounded domains and are never mapped.
func (b *Basis) HasFiniteDomain() bool {
	return b.family != Laguerre && b.family != Hermite
}

// DomainFactor is dx/dX for the affine map from the reference interval.
func (b *Basis) DomainFactor() float64 {
	if !b.HasFiniteDomain() || b.family == Fourier {
		return 1
	}
	return b.Length() / 2
}

// Map takes reference coordinates to physical coordinates.
func (b *Basis) Map(X float64) float64 {
	if !b.HasFiniteDomain() || b.family == Fourier {
		return X
	}
	return b.domain[0] + (X+1)*b.Length()/2
}

func (b *Basis) InverseMap(x float64) float64 {
	if !b.HasFiniteDomain() || b.family == Fourier {
		return x
	}
	return 2*(x-b.domain[0])/b.Length() - 1
}

// SameSpace reports whether two bases share family, domain and size. Only
// such pairs can be assembled.
func (b *Basis) SameSpace(o *Basis) bool {
	return b.family == o.family && b.domain == o.domain && b.n == o.n &&
		b.alpha == o.alpha && b.beta == o.beta && b.realFFT == o.realFFT
}

// WithN returns a copy of the basis with a different size.
func (b *Basis) WithN(n int) (nb *Basis, err error) {
	nb = &Basis{}
	*nb = *b
	nb.n = n
	if err = nb.validate(); err != nil {
		return nil, err
	}
	return
}

func (b *Basis) String() string {
	s := fmt.Sprintf("%s(N=%d, bc=%v, quad=%v, domain=%v)", b.family, b.n, b.bc, b.quad, b.domain)
	if b.scaled {
		s += " scaled"
	}
	if b.realFFT {
		s += " real"
	}
	return s
}
