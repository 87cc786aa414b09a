package transform

import (
	"math"

	"github.com/notargets/gospectral/bases"
	"gonum.org/v1/gonum/dsp/fourier"
)

// chebyshevDCT transforms orthogonal Chebyshev series on Gauss-Lobatto
// points x_j = cos(pi j / (N-1)) with the unnormalized DCT-I
// y_k = x_0 + (-1)^k x_{N-1} + 2 sum_{j=1}^{N-2} x_j cos(pi j k / (N-1)).
type chebyshevDCT struct {
	b        *bases.Basis
	n        int
	dct      *fourier.DCT
	src, dst []float64
}

func newChebyshevDCT(b *bases.Basis) *chebyshevDCT {
	return &chebyshevDCT{
		b:   b,
		n:   b.N(),
		dct: fourier.NewDCT(b.N()),
		src: make([]float64, b.N()),
		dst: make([]float64, b.N()),
	}
}

func (ax *chebyshevDCT) Basis() *bases.Basis { return ax.b }
func (ax *chebyshevDCT) PhysicalLen() int    { return ax.n }
func (ax *chebyshevDCT) SpectralLen() int    { return ax.n }
func (ax *chebyshevDCT) Method() string      { return "dct-I" }

// apply runs the DCT on real and imaginary parts, then out[k] = y[k]*w(k).
func (ax *chebyshevDCT) apply(in, out []complex128, pre, post func(k int) float64) {
	var re, im []float64
	for part := 0; part < 2; part++ {
		for j, v := range in {
			x := real(v)
			if part == 1 {
				x = imag(v)
			}
			ax.src[j] = x * pre(j)
		}
		ax.dct.Transform(ax.dst, ax.src)
		if part == 0 {
			re = append(re[:0], ax.dst...)
		} else {
			im = append(im[:0], ax.dst...)
		}
	}
	for k := range out {
		out[k] = complex(re[k]*post(k), im[k]*post(k))
	}
}

func one(int) float64 { return 1 }

// cbar is 2 at both ends of the spectrum, 1 elsewhere.
func (ax *chebyshevDCT) cbar(k int) float64 {
	if k == 0 || k == ax.n-1 {
		return 2
	}
	return 1
}

func (ax *chebyshevDCT) Forward(u, c []complex128) (err error) {
	if err = checkLens(ax, u, c, ax.n, ax.n); err != nil {
		return
	}
	m := float64(ax.n - 1)
	ax.apply(u, c, one, func(k int) float64 { return 1 / (ax.cbar(k) * m) })
	return
}

func (ax *chebyshevDCT) Backward(c, u []complex128) (err error) {
	if err = checkLens(ax, c, u, ax.n, ax.n); err != nil {
		return
	}
	ax.apply(c, u, func(k int) float64 { return ax.cbar(k) / 2 }, one)
	return
}

func (ax *chebyshevDCT) ScalarProduct(u, s []complex128) (err error) {
	if err = checkLens(ax, u, s, ax.n, ax.n); err != nil {
		return
	}
	fac := ax.b.DomainFactor() * math.Pi / (2 * float64(ax.n-1))
	ax.apply(u, s, one, func(int) float64 { return fac })
	return
}
