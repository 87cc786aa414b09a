package transform

import (
	"fmt"

	"github.com/notargets/gospectral/bases"
	"github.com/notargets/gospectral/utils"
	"gonum.org/v1/gonum/dsp/fourier"
)

// fourierAxis wraps the gonum FFTs. Coefficients are those of
// exp(i k (x - lower)), in transform order, with the 1/N normalization on
// the forward transform.
type fourierAxis struct {
	b    *bases.Basis
	n    int
	c2c  *fourier.CmplxFFT
	r2c  *fourier.FFT
	re   []float64
	spec []complex128
}

func newFourier(b *bases.Basis) (ax *fourierAxis, err error) {
	if b.Quad() != bases.Uniform {
		err = fmt.Errorf("%w: Fourier transform on %v points", utils.ErrNotImplemented, b.Quad())
		return
	}
	ax = &fourierAxis{b: b, n: b.N()}
	if ax.n == 1 {
		return
	}
	if b.IsReal() {
		ax.r2c = fourier.NewFFT(ax.n)
		ax.re = make([]float64, ax.n)
		ax.spec = make([]complex128, ax.n/2+1)
	} else {
		ax.c2c = fourier.NewCmplxFFT(ax.n)
	}
	return
}

func (ax *fourierAxis) Basis() *bases.Basis { return ax.b }
func (ax *fourierAxis) PhysicalLen() int    { return ax.n }
func (ax *fourierAxis) SpectralLen() int    { return ax.b.Dim() }

func (ax *fourierAxis) Method() string {
	if ax.r2c != nil {
		return "fft-r2c"
	}
	return "fft-c2c"
}

func (ax *fourierAxis) Forward(u, c []complex128) (err error) {
	if err = checkLens(ax, u, c, ax.n, ax.SpectralLen()); err != nil {
		return
	}
	scale := complex(1/float64(ax.n), 0)
	switch {
	case ax.n == 1:
		c[0] = u[0]
		if ax.b.IsReal() {
			c[0] = complex(real(u[0]), 0)
		}
		return
	case ax.r2c != nil:
		for i, v := range u {
			ax.re[i] = real(v)
		}
		ax.r2c.Coefficients(c, ax.re)
	default:
		ax.c2c.Coefficients(c, u)
	}
	for k := range c {
		c[k] *= scale
	}
	return
}

func (ax *fourierAxis) Backward(c, u []complex128) (err error) {
	if err = checkLens(ax, c, u, ax.SpectralLen(), ax.n); err != nil {
		return
	}
	switch {
	case ax.n == 1:
		u[0] = c[0]
	case ax.r2c != nil:
		copy(ax.spec, c)
		ax.r2c.Sequence(ax.re, ax.spec)
		for i, v := range ax.re {
			u[i] = complex(v, 0)
		}
	default:
		ax.c2c.Sequence(u, c)
	}
	return
}

// ScalarProduct is L times the forward transform for the uniform rule.
func (ax *fourierAxis) ScalarProduct(u, s []complex128) (err error) {
	if err = ax.Forward(u, s); err != nil {
		return
	}
	L := complex(ax.b.Length(), 0)
	for k := range s {
		s[k] *= L
	}
	return
}
