package matrix

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/notargets/gospectral/utils"
)

// SparseLU is a row-oriented sparse LU factorization with partial pivoting.
// Multipliers stay attached to their original row, so the permutation only
// needs to be applied to the right hand side.
type SparseLU struct {
	n    int
	L, U []map[int]complex128 // keyed by original row
	P    []int                 // P[k] is the original row eliminated at step k
}

// NewSparseLU factors the n x n matrix given as row maps. The rows are
// consumed and become the U factor.
func NewSparseLU(n int, rows []map[int]complex128) (lu *SparseLU, err error) {
	if len(rows) != n {
		return nil, fmt.Errorf("%w: %d rows for a system of size %d", utils.ErrShape, len(rows), n)
	}
	lu = &SparseLU{
		n: n,
		L: make([]map[int]complex128, n),
		U: rows,
		P: make([]int, n),
	}
	var normA float64
	for i := 0; i < n; i++ {
		lu.P[i] = i
		lu.L[i] = make(map[int]complex128)
		for _, v := range rows[i] {
			normA = math.Max(normA, cmplx.Abs(v))
		}
	}
	tol := 1.e-14 * normA
	for k := 0; k < n; k++ {
		// Pick the largest entry in column k among the remaining rows
		maxRow, maxVal := k, -1.
		for i := k; i < n; i++ {
			if v, ok := lu.U[lu.P[i]][k]; ok && cmplx.Abs(v) > maxVal {
				maxRow, maxVal = i, cmplx.Abs(v)
			}
		}
		if maxVal <= tol {
			return nil, fmt.Errorf("%w: no pivot in column %d", utils.ErrSingular, k)
		}
		lu.P[k], lu.P[maxRow] = lu.P[maxRow], lu.P[k]
		pivotRow := lu.U[lu.P[k]]
		pivot := pivotRow[k]
		for i := k + 1; i < n; i++ {
			row := lu.U[lu.P[i]]
			v, ok := row[k]
			if !ok {
				continue
			}
			factor := v / pivot
			lu.L[lu.P[i]][k] = factor
			delete(row, k)
			for j, pv := range pivotRow {
				if j > k {
					row[j] -= factor * pv
				}
			}
		}
	}
	return
}

// NewSparseLUFromCSR factors a compressed sparse row matrix.
func NewSparseLUFromCSR(A utils.ComplexCSR) (*SparseLU, error) {
	nr, nc := A.Dims()
	if nr != nc {
		return nil, fmt.Errorf("%w: sparse LU needs a square matrix, got (%d, %d)", utils.ErrShape, nr, nc)
	}
	return NewSparseLU(nr, A.Rows())
}

func (lu *SparseLU) Size() int { return lu.n }

func (lu *SparseLU) Solve(b, x []complex128) error {
	if len(b) != lu.n || len(x) != lu.n {
		return fmt.Errorf("%w: vectors of length %d and %d for system of size %d",
			utils.ErrShape, len(b), len(x), lu.n)
	}
	y := make([]complex128, lu.n)
	for k := 0; k < lu.n; k++ {
		s := b[lu.P[k]]
		for j, l := range lu.L[lu.P[k]] {
			s -= l * y[j]
		}
		y[k] = s
	}
	for k := lu.n - 1; k >= 0; k-- {
		s := y[k]
		row := lu.U[lu.P[k]]
		for j, u := range row {
			if j > k {
				s -= u * x[j]
			}
		}
		x[k] = s / row[k]
	}
	return nil
}
