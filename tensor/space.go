package tensor

import (
	"fmt"
	"math"

	"github.com/notargets/gospectral/assembly"
	"github.com/notargets/gospectral/bases"
	"github.com/notargets/gospectral/pencil"
	"github.com/notargets/gospectral/transform"
	"github.com/notargets/gospectral/utils"
)

// TensorProductSpace is the tensor product of one dimensional bases, with
// array axis i spanned by bases[i]. Physical data is distributed along
// axes[0] and spectral data along axes[1]; a forward transform works through
// axes from last to first with one slab transpose before axes[0].
type TensorProductSpace struct {
	comm     pencil.Comm
	bases    []*bases.Basis
	axes     []int
	coords   Coordinates
	excluded map[int]bool
	tcfg     transform.Config
	plans    []transform.Axis
	engine   *assembly.Engine

	distributed        bool
	physical, spectral *pencil.Slab
	mixedP, mixedS     *pencil.Slab
}

type Option func(s *TensorProductSpace)

// WithAxes sets the transform order. By default non-periodic axes come
// first, so that they are local in spectral space.
func WithAxes(axes ...int) Option {
	return func(s *TensorProductSpace) { s.axes = append([]int{}, axes...) }
}

func WithCoordinates(c Coordinates) Option {
	return func(s *TensorProductSpace) { s.coords = c }
}

func WithTransformConfig(cfg transform.Config) Option {
	return func(s *TensorProductSpace) { s.tcfg = cfg }
}

func WithEngine(e *assembly.Engine) Option {
	return func(s *TensorProductSpace) { s.engine = e }
}

// ExcludeZeroMode drops the wavenumber zero of a Fourier axis from the
// space; forward transforms and scalar products zero those coefficients.
func ExcludeZeroMode(axis int) Option {
	return func(s *TensorProductSpace) { s.excluded[axis] = true }
}

func NewTensorProductSpace(comm pencil.Comm, bs []*bases.Basis, opts ...Option) (s *TensorProductSpace, err error) {
	if len(bs) == 0 {
		err = fmt.Errorf("tensor product space needs at least one basis")
		return
	}
	if comm == nil {
		comm = pencil.Self()
	}
	s = &TensorProductSpace{
		comm:     comm,
		bases:    append([]*bases.Basis{}, bs...),
		coords:   Cartesian(len(bs)),
		excluded: make(map[int]bool),
		tcfg:     transform.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.axes == nil {
		s.axes = defaultAxes(bs)
	}
	if err = s.validate(); err != nil {
		return nil, err
	}
	if s.engine == nil {
		s.engine = assembly.NewEngine()
	}
	planner := transform.NewPlanner(s.tcfg)
	s.plans = make([]transform.Axis, len(bs))
	for i, b := range bs {
		if s.plans[i], err = planner.Plan(b); err != nil {
			return nil, err
		}
	}
	s.layout()
	return
}

func defaultAxes(bs []*bases.Basis) (axes []int) {
	for i, b := range bs {
		if !b.IsPeriodic() {
			axes = append(axes, i)
		}
	}
	for i, b := range bs {
		if b.IsPeriodic() {
			axes = append(axes, i)
		}
	}
	return
}

func (s *TensorProductSpace) validate() error {
	n := len(s.bases)
	if len(s.axes) != n {
		return fmt.Errorf("%w: %d axes for %d bases", utils.ErrShape, len(s.axes), n)
	}
	seen := make([]bool, n)
	for _, a := range s.axes {
		if a < 0 || a >= n || seen[a] {
			return fmt.Errorf("axes %v are not a permutation of 0..%d", s.axes, n-1)
		}
		seen[a] = true
	}
	if s.coords.Ndim() != n {
		return fmt.Errorf("%w: %s coordinates have %d dimensions, space has %d", utils.ErrShape,
			s.coords.Name, s.coords.Ndim(), n)
	}
	if r := s.coords.Radial; r >= 0 && s.bases[r].IsPeriodic() {
		return fmt.Errorf("%w: periodic radial axis", utils.ErrNotImplemented)
	}
	for a := range s.excluded {
		if a < 0 || a >= n || !s.bases[a].IsPeriodic() {
			return fmt.Errorf("zero mode exclusion needs a Fourier axis, got axis %d", a)
		}
	}
	return nil
}

func (s *TensorProductSpace) layout() {
	var (
		np    = s.comm.Size()
		phys  = s.GlobalShape(false)
		spec  = s.GlobalShape(true)
		mixed = append([]int{}, spec...)
	)
	s.distributed = len(s.bases) > 1 && np > 1
	if !s.distributed {
		s.physical = pencil.NewSlab(phys, -1, np)
		s.spectral = pencil.NewSlab(spec, -1, np)
		return
	}
	mixed[s.axes[0]] = phys[s.axes[0]]
	s.physical = pencil.NewSlab(phys, s.axes[0], np)
	s.spectral = pencil.NewSlab(spec, s.axes[1], np)
	s.mixedP = pencil.NewSlab(mixed, s.axes[0], np)
	s.mixedS = pencil.NewSlab(mixed, s.axes[1], np)
}

func (s *TensorProductSpace) Comm() pencil.Comm            { return s.comm }
func (s *TensorProductSpace) Bases() []*bases.Basis        { return s.bases }
func (s *TensorProductSpace) Basis(axis int) *bases.Basis  { return s.bases[axis] }
func (s *TensorProductSpace) Ndim() int                    { return len(s.bases) }
func (s *TensorProductSpace) Axes() []int                  { return append([]int{}, s.axes...) }
func (s *TensorProductSpace) Coordinates() Coordinates     { return s.coords }
func (s *TensorProductSpace) Engine() *assembly.Engine     { return s.engine }
func (s *TensorProductSpace) IsDistributed() bool          { return s.distributed }
func (s *TensorProductSpace) Plan(axis int) transform.Axis { return s.plans[axis] }
func (s *TensorProductSpace) IsExcluded(axis int) bool     { return s.excluded[axis] }

func (s *TensorProductSpace) Slab(spectral bool) *pencil.Slab {
	if spectral {
		return s.spectral
	}
	return s.physical
}

// DistributedAxis is the distributed axis of the spectral or physical
// layout, or -1.
func (s *TensorProductSpace) DistributedAxis(spectral bool) int {
	if !s.distributed {
		return -1
	}
	if spectral {
		return s.axes[1]
	}
	return s.axes[0]
}

func (s *TensorProductSpace) GlobalShape(spectral bool) (shape []int) {
	shape = make([]int, len(s.bases))
	for i, b := range s.bases {
		if spectral {
			shape[i] = b.Dim()
		} else {
			shape[i] = b.N()
		}
	}
	return
}

func (s *TensorProductSpace) LocalShape(spectral bool) []int {
	return s.Slab(spectral).LocalShape(s.comm.Rank())
}

// LocalStart is the global index of the first local element on every axis.
func (s *TensorProductSpace) LocalStart(spectral bool) []int {
	return s.Slab(spectral).Start(s.comm.Rank())
}

func (s *TensorProductSpace) PeriodicAxes() (axes []int) {
	for i, b := range s.bases {
		if b.IsPeriodic() {
			axes = append(axes, i)
		}
	}
	return
}

func (s *TensorProductSpace) NonPeriodicAxes() (axes []int) {
	for i, b := range s.bases {
		if !b.IsPeriodic() {
			axes = append(axes, i)
		}
	}
	return
}

// LocalWavenumbers returns the integer wavenumbers of the local spectral
// indices of a Fourier axis.
func (s *TensorProductSpace) LocalWavenumbers(axis int) []int {
	var (
		k     = s.bases[axis].Wavenumbers()
		start = s.LocalStart(true)[axis]
		n     = s.LocalShape(true)[axis]
	)
	return k[start : start+n]
}

// ExcludedMode reports whether the local spectral multi-index idx lies on
// an excluded zero mode.
func (s *TensorProductSpace) ExcludedMode(idx []int) bool {
	start := s.LocalStart(true)
	for a := range s.excluded {
		if s.bases[a].Wavenumbers()[start[a]+idx[a]] == 0 {
			return true
		}
	}
	return false
}

// LocalMesh returns the local physical points of every axis in the
// computational coordinates.
func (s *TensorProductSpace) LocalMesh() (mesh [][]float64) {
	var (
		start = s.LocalStart(false)
		shape = s.LocalShape(false)
	)
	mesh = make([][]float64, len(s.bases))
	for i, b := range s.bases {
		mesh[i] = b.Mesh()[start[i] : start[i]+shape[i]]
	}
	return
}

// CartesianMesh returns, for each Cartesian direction, the coordinate of
// every local physical point in row-major order.
func (s *TensorProductSpace) CartesianMesh() (xyz [][]float64) {
	var (
		mesh = s.LocalMesh()
		a    = utils.NewNDArray(s.LocalShape(false)...)
		q    = make([]float64, len(mesh))
	)
	xyz = make([][]float64, len(mesh))
	for d := range xyz {
		xyz[d] = make([]float64, a.Size())
	}
	for flat := range a.Data {
		for d, i := range a.Unravel(flat) {
			q[d] = mesh[d][i]
		}
		for d, x := range s.coords.ToCartesian(q) {
			xyz[d][flat] = x
		}
	}
	return
}

// Function holds the local spectral coefficients of a field.
type Function struct {
	*utils.NDArray
	space *TensorProductSpace
}

// Array holds the local physical samples of a field.
type Array struct {
	*utils.NDArray
	space *TensorProductSpace
}

func (f *Function) Space() *TensorProductSpace { return f.space }
func (a *Array) Space() *TensorProductSpace    { return a.space }

func (f *Function) Backward() (*Array, error) { return f.space.Backward(f) }
func (a *Array) Forward() (*Function, error)  { return a.space.Forward(a) }

func (s *TensorProductSpace) NewFunction() *Function {
	return &Function{NDArray: utils.NewNDArray(s.LocalShape(true)...), space: s}
}

func (s *TensorProductSpace) NewArray() *Array {
	return &Array{NDArray: utils.NewNDArray(s.LocalShape(false)...), space: s}
}

// WrapFunction ties a local spectral array to the space.
func (s *TensorProductSpace) WrapFunction(a *utils.NDArray) (*Function, error) {
	if !utils.SameShape(a.Shape, s.LocalShape(true)) {
		return nil, fmt.Errorf("%w: spectral array %v, space expects %v", utils.ErrShape,
			a.Shape, s.LocalShape(true))
	}
	return &Function{NDArray: a, space: s}, nil
}

func (s *TensorProductSpace) WrapArray(a *utils.NDArray) (*Array, error) {
	if !utils.SameShape(a.Shape, s.LocalShape(false)) {
		return nil, fmt.Errorf("%w: physical array %v, space expects %v", utils.ErrShape,
			a.Shape, s.LocalShape(false))
	}
	return &Array{NDArray: a, space: s}, nil
}

// ArrayFrom samples fn at the local physical points; fn receives the
// computational coordinates of a point.
func (s *TensorProductSpace) ArrayFrom(fn func(q []float64) complex128) (a *Array) {
	var (
		mesh = s.LocalMesh()
		q    = make([]float64, len(mesh))
	)
	a = s.NewArray()
	for flat := range a.Data {
		for d, i := range a.Unravel(flat) {
			q[d] = mesh[d][i]
		}
		a.Data[flat] = fn(q)
	}
	return
}

type lineOp func(ax transform.Axis, in, out []complex128) error

func forwardOp(ax transform.Axis, in, out []complex128) error  { return ax.Forward(in, out) }
func backwardOp(ax transform.Axis, in, out []complex128) error { return ax.Backward(in, out) }
func scalarOp(ax transform.Axis, in, out []complex128) error   { return ax.ScalarProduct(in, out) }

func (s *TensorProductSpace) mapAxis(a *utils.NDArray, axis int, spectral bool, op lineOp) (*utils.NDArray, error) {
	plan := s.plans[axis]
	n := plan.PhysicalLen()
	if spectral {
		n = plan.SpectralLen()
	}
	return a.MapAxis(axis, n, func(in, out []complex128) error { return op(plan, in, out) })
}

func (s *TensorProductSpace) toSpectral(a *utils.NDArray, op lineOp) (r *utils.NDArray, err error) {
	if !utils.SameShape(a.Shape, s.LocalShape(false)) {
		err = fmt.Errorf("%w: physical array %v, space expects %v", utils.ErrShape, a.Shape,
			s.LocalShape(false))
		return
	}
	r = a
	for i := len(s.axes) - 1; i >= 1; i-- {
		if r, err = s.mapAxis(r, s.axes[i], true, op); err != nil {
			return
		}
	}
	if s.distributed {
		if r, err = pencil.Transpose(s.comm, r, s.mixedP, s.mixedS); err != nil {
			return
		}
	}
	if r, err = s.mapAxis(r, s.axes[0], true, op); err != nil {
		return
	}
	s.zeroExcluded(r)
	return
}

func (s *TensorProductSpace) zeroExcluded(r *utils.NDArray) {
	if len(s.excluded) == 0 {
		return
	}
	for flat := range r.Data {
		if s.ExcludedMode(r.Unravel(flat)) {
			r.Data[flat] = 0
		}
	}
}

func (s *TensorProductSpace) Forward(a *Array) (f *Function, err error) {
	var r *utils.NDArray
	if r, err = s.toSpectral(a.NDArray, forwardOp); err != nil {
		return
	}
	return &Function{NDArray: r, space: s}, nil
}

// ScalarProduct computes (u, phi)_w including the Jacobian of curvilinear
// coordinates.
func (s *TensorProductSpace) ScalarProduct(a *Array) (f *Function, err error) {
	in := a.NDArray
	if !s.coords.IsCartesian() && s.coords.JPow != 0 {
		var (
			rad  = s.coords.Radial
			mesh = s.LocalMesh()[rad]
		)
		in = a.NDArray.Copy()
		for flat := range in.Data {
			r := mesh[in.Unravel(flat)[rad]]
			in.Data[flat] *= complex(math.Pow(r, float64(s.coords.JPow)), 0)
		}
	}
	var r *utils.NDArray
	if r, err = s.toSpectral(in, scalarOp); err != nil {
		return
	}
	return &Function{NDArray: r, space: s}, nil
}

func (s *TensorProductSpace) Backward(f *Function) (a *Array, err error) {
	if !utils.SameShape(f.Shape, s.LocalShape(true)) {
		err = fmt.Errorf("%w: spectral array %v, space expects %v", utils.ErrShape, f.Shape,
			s.LocalShape(true))
		return
	}
	r := f.NDArray
	if r, err = s.mapAxis(r, s.axes[0], false, backwardOp); err != nil {
		return
	}
	if s.distributed {
		if r, err = pencil.Transpose(s.comm, r, s.mixedS, s.mixedP); err != nil {
			return
		}
	}
	for i := 1; i < len(s.axes); i++ {
		if r, err = s.mapAxis(r, s.axes[i], false, backwardOp); err != nil {
			return
		}
	}
	return &Array{NDArray: r, space: s}, nil
}
