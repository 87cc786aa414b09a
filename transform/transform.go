package transform

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/notargets/gospectral/bases"
	"github.com/notargets/gospectral/logger"
	"github.com/notargets/gospectral/utils"
)

// Axis transforms lines along one axis between physical samples at the
// native quadrature points and expansion coefficients. Lines are passed as
// slices of length PhysicalLen or SpectralLen.
type Axis interface {
	Basis() *bases.Basis
	PhysicalLen() int
	SpectralLen() int
	// Forward computes coefficients c with Backward(c) == u for
	// representable u.
	Forward(u, c []complex128) error
	Backward(c, u []complex128) error
	// ScalarProduct computes (u, phi_k)_w with the native quadrature.
	ScalarProduct(u, s []complex128) error
	Method() string
}

type Effort uint8

const (
	Estimate Effort = iota
	Measure
)

func (e Effort) String() string {
	if e == Measure {
		return "measure"
	}
	return "estimate"
}

func ParseEffort(s string) (e Effort, err error) {
	switch strings.ToLower(s) {
	case "estimate", "":
		return Estimate, nil
	case "measure":
		return Measure, nil
	}
	err = fmt.Errorf("unknown planner effort %q", s)
	return
}

type Config struct {
	Effort Effort
}

func DefaultConfig() Config { return Config{Effort: Estimate} }

// Planner creates axis transforms. With Measure effort it times the
// candidate plans of a basis and keeps the fastest.
type Planner struct {
	cfg Config
	log *slog.Logger
}

func NewPlanner(cfg Config) *Planner {
	return &Planner{cfg: cfg, log: logger.ForComponent("transform")}
}

func (p *Planner) Config() Config { return p.cfg }

func (p *Planner) Plan(b *bases.Basis) (ax Axis, err error) {
	var candidates []Axis
	if candidates, err = p.candidates(b); err != nil {
		return
	}
	ax = candidates[0]
	if p.cfg.Effort == Measure && len(candidates) > 1 {
		best := time.Duration(1<<63 - 1)
		for _, c := range candidates {
			if d := timeAxis(c); d < best {
				best, ax = d, c
			}
		}
	}
	p.log.Debug("planned axis transform", "basis", b.String(), "method", ax.Method(),
		"effort", p.cfg.Effort.String())
	return
}

// candidates lists the plans able to transform b, preferred first.
func (p *Planner) candidates(b *bases.Basis) (axes []Axis, err error) {
	if b.IsPeriodic() {
		var ax Axis
		if ax, err = newFourier(b); err != nil {
			return
		}
		return []Axis{ax}, nil
	}
	if b.Family() == bases.Chebyshev && b.Quad() == bases.GL && b.IsOrthogonal() && b.N() > 1 {
		axes = append(axes, newChebyshevDCT(b))
	}
	var v Axis
	if v, err = newVandermonde(b); err != nil {
		return
	}
	axes = append(axes, v)
	return
}

func timeAxis(ax Axis) time.Duration {
	var (
		u = make([]complex128, ax.PhysicalLen())
		c = make([]complex128, ax.SpectralLen())
		r = rand.New(rand.NewSource(1))
	)
	for i := range u {
		u[i] = complex(r.Float64(), 0)
	}
	start := time.Now()
	for i := 0; i < 4; i++ {
		_ = ax.Forward(u, c)
		_ = ax.Backward(c, u)
	}
	return time.Since(start)
}

func checkLens(ax Axis, in, out []complex128, nIn, nOut int) error {
	if len(in) != nIn || len(out) != nOut {
		return fmt.Errorf("%w: %s transform of %v: lengths (%d, %d), expected (%d, %d)",
			utils.ErrShape, ax.Method(), ax.Basis(), len(in), len(out), nIn, nOut)
	}
	return nil
}
