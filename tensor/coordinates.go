package tensor

import "math"

// Coordinates describes an orthogonal curvilinear coordinate system whose
// scale factors and Jacobian are powers of one radial coordinate r:
// h_i = r^HPow[i] and J = r^JPow. Cartesian systems have Radial == -1.
type Coordinates struct {
	Name   string
	Radial int
	HPow   []int
	JPow   int
	// ToCartesian maps computational coordinates to Cartesian ones.
	ToCartesian func(q []float64) []float64
}

func Cartesian(ndim int) Coordinates {
	return Coordinates{
		Name:        "cartesian",
		Radial:      -1,
		HPow:        make([]int, ndim),
		ToCartesian: func(q []float64) []float64 { return append([]float64{}, q...) },
	}
}

// Polar coordinates (theta, r).
func Polar() Coordinates {
	return Coordinates{
		Name:   "polar",
		Radial: 1,
		HPow:   []int{1, 0},
		JPow:   1,
		ToCartesian: func(q []float64) []float64 {
			return []float64{q[1] * math.Cos(q[0]), q[1] * math.Sin(q[0])}
		},
	}
}

// Cylindrical coordinates (theta, r, z).
func Cylindrical() Coordinates {
	return Coordinates{
		Name:   "cylindrical",
		Radial: 1,
		HPow:   []int{1, 0, 0},
		JPow:   1,
		ToCartesian: func(q []float64) []float64 {
			return []float64{q[1] * math.Cos(q[0]), q[1] * math.Sin(q[0]), q[2]}
		},
	}
}

func (c Coordinates) Ndim() int { return len(c.HPow) }

func (c Coordinates) IsCartesian() bool { return c.Radial < 0 }
