/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"math"

	"github.com/notargets/gospectral/InputParameters"
	"github.com/notargets/gospectral/bases"
	"github.com/notargets/gospectral/la"
	"github.com/notargets/gospectral/pencil"
	"github.com/notargets/gospectral/tensor"
	"github.com/spf13/cobra"
)

// unitDiscCmd represents the unitdisc command
var unitDiscCmd = &cobra.Command{
	Use:   "unitdisc",
	Short: "Helmholtz problem on the unit disc in polar coordinates",
	Long: `
Solves -lap u + alpha u = f on the unit disc with u = 0 at r = 1, for
u = (1 - r^2)(1 + r cos(theta)). The zero Fourier mode is solved separately
on a basis that is free at r = 0.

gospectral unitdisc -n 8,24 --ranks 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ip, err := problemInput(cmd, "UnitDisc", func(n []int, family string) []InputParameters.AxisParameters {
			n = axesOrDefault(n, 8, 16)
			return []InputParameters.AxisParameters{
				{Family: "Fourier", Size: n[0], Real: true},
				{Family: family, Size: n[1], BC: "Dirichlet", Domain: []float64{0, 1}},
			}
		})
		if err != nil {
			return err
		}
		_, err = run(ip, 2, solveUnitDisc)
		return err
	},
}

func init() {
	rootCmd.AddCommand(unitDiscCmd)
	problemFlags(unitDiscCmd, []int{8, 16}, "Legendre", 1)
}

func unitDiscExact(q []float64) complex128 {
	r := q[1]
	return complex((1-r*r)*(1+r*math.Cos(q[0])), 0)
}

// zeroModeBases returns the bases carrying the zero Fourier mode: one
// Fourier mode and a radial basis without a condition at r = 0.
func zeroModeBases(bs []*bases.Basis) (b0 []*bases.Basis, err error) {
	var (
		r      = bs[1]
		lo, hi = r.Domain()
		f, rad *bases.Basis
	)
	if r.BC() != bases.Dirichlet || lo != 0 {
		return nil, fmt.Errorf("radial basis must be Dirichlet on (0, R), got %s", r)
	}
	if f, err = bases.New(bases.Fourier, 1, bases.Real()); err != nil {
		return
	}
	if rad, err = bases.New(r.Family(), r.N(), bases.WithBC(bases.UpperDirichlet), bases.WithDomain(lo, hi),
		bases.WithQuad(r.Quad())); err != nil {
		return
	}
	return []*bases.Basis{f, rad}, nil
}

func solveUnitDisc(comm pencil.Comm, bs []*bases.Basis, ip *InputParameters.InputParameters) (maxErr float64, err error) {
	var (
		T, T0       *tensor.TensorProductSpace
		b0s         []*bases.Basis
		mats, mats0 []*tensor.TPMatrix
		solver      *la.Axisymmetric
		b, b0       *tensor.Function
		u, u0       *tensor.Function
		a           *tensor.Array
		alpha       = ip.Alpha
	)
	if b0s, err = zeroModeBases(bs); err != nil {
		return
	}
	polar := tensor.WithCoordinates(tensor.Polar())
	if T, err = newSpace(comm, bs, polar, tensor.ExcludeZeroMode(0)); err != nil {
		return
	}
	if T0, err = newSpace(pencil.Self(), b0s, polar); err != nil {
		return
	}
	if mats, err = helmholtzForms(T, alpha); err != nil {
		return
	}
	if mats0, err = helmholtzForms(T0, alpha); err != nil {
		return
	}
	if solver, err = la.NewAxisymmetric(mats, mats0); err != nil {
		return
	}
	if b, err = T.ScalarProduct(T.ArrayFrom(func(q []float64) complex128 {
		r, c := q[1], math.Cos(q[0])
		return complex(4+8*r*c+alpha*(1-r*r)*(1+r*c), 0)
	})); err != nil {
		return
	}
	if b0, err = T0.ScalarProduct(T0.ArrayFrom(func(q []float64) complex128 {
		return complex(4+alpha*(1-q[1]*q[1]), 0)
	})); err != nil {
		return
	}
	if u, u0, err = solver.Solve(b, b0); err != nil {
		return
	}
	if a, err = solver.Backward(u, u0); err != nil {
		return
	}
	return maxError(a, unitDiscExact), nil
}

// helmholtzForms is the weak form (grad v, grad u) + alpha (v, u).
func helmholtzForms(T *tensor.TensorProductSpace, alpha float64) (mats []*tensor.TPMatrix, err error) {
	var (
		v    = tensor.TestFunction(T)
		u    = tensor.TrialFunction(T)
		mass []*tensor.TPMatrix
	)
	if mats, err = tensor.Inner(tensor.Grad(v), tensor.Grad(u)); err != nil {
		return
	}
	if mass, err = tensor.Inner(v, tensor.Scale(u, complex(alpha, 0))); err != nil {
		return
	}
	return append(mats, mass...), nil
}
