package InputParameters

import (
	"fmt"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/notargets/gospectral/bases"
)

// Parameters of one axis of the tensor product space
type AxisParameters struct {
	Family string    `json:"Family"`
	Size   int       `json:"Size"`   // Number of quadrature points
	BC     string    `json:"BC"`     // Orthogonal when empty
	Quad   string    `json:"Quad"`   // Family default when empty
	Domain []float64 `json:"Domain"` // Family reference domain when empty
	Scaled bool      `json:"Scaled"`
	Real   bool      `json:"Real"` // Real to complex Fourier
}

// Parameters obtained from the YAML problem file
type InputParameters struct {
	Title   string           `json:"Title"`
	Problem string           `json:"Problem"`
	Alpha   float64          `json:"Alpha"`
	Ranks   int              `json:"Ranks"`
	Axes    []AxisParameters `json:"Axes"`
}

func (ip *InputParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *InputParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%s]\t\t= Problem\n", ip.Problem)
	fmt.Printf("%8.5f\t\t= Alpha\n", ip.Alpha)
	fmt.Printf("[%d]\t\t\t= Ranks\n", ip.Ranks)
	for i, ax := range ip.Axes {
		fmt.Printf("Axes[%d] = %s\n", i, ax.String())
	}
}

func (ap AxisParameters) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Size=%d", ap.Family, ap.Size)
	if ap.BC != "" {
		fmt.Fprintf(&b, " BC=%s", ap.BC)
	}
	if ap.Quad != "" {
		fmt.Fprintf(&b, " Quad=%s", ap.Quad)
	}
	if len(ap.Domain) != 0 {
		fmt.Fprintf(&b, " Domain=%v", ap.Domain)
	}
	if ap.Scaled {
		b.WriteString(" scaled")
	}
	if ap.Real {
		b.WriteString(" real")
	}
	return b.String()
}

func (ap AxisParameters) Basis() (b *bases.Basis, err error) {
	var (
		family bases.Family
		bc     bases.BC
		quad   bases.Quad
		opts   []bases.Option
	)
	if family, err = bases.ParseFamily(ap.Family); err != nil {
		return
	}
	if ap.Size <= 0 {
		err = fmt.Errorf("%s axis needs a positive Size, got %d", ap.Family, ap.Size)
		return
	}
	if ap.BC != "" {
		if bc, err = bases.ParseBC(ap.BC); err != nil {
			return
		}
		opts = append(opts, bases.WithBC(bc))
	}
	if quad, err = bases.ParseQuad(ap.Quad); err != nil {
		return
	}
	opts = append(opts, bases.WithQuad(quad))
	switch len(ap.Domain) {
	case 0:
	case 2:
		opts = append(opts, bases.WithDomain(ap.Domain[0], ap.Domain[1]))
	default:
		err = fmt.Errorf("domain needs two bounds, got %v", ap.Domain)
		return
	}
	if ap.Scaled {
		opts = append(opts, bases.Scaled())
	}
	if ap.Real {
		opts = append(opts, bases.Real())
	}
	return bases.New(family, ap.Size, opts...)
}

// Bases builds the basis of every axis in order.
func (ip *InputParameters) Bases() (bs []*bases.Basis, err error) {
	if len(ip.Axes) == 0 {
		return nil, fmt.Errorf("problem %q has no axes", ip.Title)
	}
	bs = make([]*bases.Basis, len(ip.Axes))
	for i, ax := range ip.Axes {
		if bs[i], err = ax.Basis(); err != nil {
			return nil, fmt.Errorf("axis %d: %w", i, err)
		}
	}
	return
}
