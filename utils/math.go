package utils

import (
	"math"
	"math/cmplx"
)

func ConstArray(N int, val float64) (v []float64) {
	v = make([]float64, N)
	for i := range v {
		v[i] = val
	}
	return
}

func Arange(N int) (v []float64) {
	v = make([]float64, N)
	for i := range v {
		v[i] = float64(i)
	}
	return
}

func POW(x float64, pp int) (y float64) {
	var (
		p       = pp
		flipped bool
	)
	if pp > 8 || pp < -8 {
		goto MATHPOW
	}

	if p < 0 {
		p = -pp
		flipped = true
	}
	switch p {
	case 0:
		y = 1
	case 1:
		y = x
	case 2:
		y = x * x
	case 3:
		y = x * x * x
	case 4:
		y = x * x
		y = y * y
	case 5:
		y = x * x
		y = y * y * x
	case 6:
		y = x * x
		y = y * y * y
	case 7:
		y = x * x
		y = y * y * y * x
	case 8:
		y = x * x
		y = y * y * y * y
	}
	if flipped {
		y = 1. / y
	}
	return

MATHPOW:
	y = math.Pow(x, float64(pp))
	return
}

// IPow returns i**p for the imaginary unit.
func IPow(p int) complex128 {
	switch ((p % 4) + 4) % 4 {
	case 0:
		return 1
	case 1:
		return 1i
	case 2:
		return -1
	default:
		return -1i
	}
}

func Binomial(n, k int) (c float64) {
	if k < 0 || k > n {
		return 0
	}
	c = 1
	for i := 1; i <= k; i++ {
		c = c * float64(n-k+i) / float64(i)
	}
	return
}

func MaxAbs(v []float64) (m float64) {
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return
}

func MaxAbsComplex(v []complex128) (m float64) {
	for _, x := range v {
		m = math.Max(m, cmplx.Abs(x))
	}
	return
}

// IsReal reports whether c has a negligible imaginary part relative to its size.
func IsReal(c complex128) bool {
	return math.Abs(imag(c)) <= 1.e-14*math.Max(1, cmplx.Abs(c))
}
