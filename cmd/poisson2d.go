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
	"github.com/notargets/gospectral/InputParameters"
	"github.com/notargets/gospectral/bases"
	"github.com/notargets/gospectral/la"
	"github.com/notargets/gospectral/pencil"
	"github.com/notargets/gospectral/tensor"
	"github.com/spf13/cobra"
)

// poisson2DCmd represents the poisson2d command
var poisson2DCmd = &cobra.Command{
	Use:   "poisson2d",
	Short: "Poisson problem on a square with two bounded axes",
	Long: `
Solves -lap u + alpha u = f on [-1, 1] x [-1, 1] with u = 0 on the boundary,
for u = (1 - x^2)(1 - y^2). Both axes are non-periodic so the problem is
assembled as one Kronecker system and factored by sparse LU. Runs serially.

gospectral poisson2d -n 20,24`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ip, err := problemInput(cmd, "Poisson2D", func(n []int, family string) []InputParameters.AxisParameters {
			n = axesOrDefault(n, 16, 16)
			return []InputParameters.AxisParameters{
				{Family: family, Size: n[0], BC: "Dirichlet"},
				{Family: family, Size: n[1], BC: "Dirichlet"},
			}
		})
		if err != nil {
			return err
		}
		_, err = run(ip, 2, solvePoisson2D)
		return err
	},
}

func init() {
	rootCmd.AddCommand(poisson2DCmd)
	problemFlags(poisson2DCmd, []int{16, 16}, "Legendre", 0)
}

func poisson2DExact(q []float64) complex128 {
	return complex((1-q[0]*q[0])*(1-q[1]*q[1]), 0)
}

func poisson2DForcing(alpha float64) func(q []float64) complex128 {
	return func(q []float64) complex128 {
		var (
			px = 1 - q[0]*q[0]
			py = 1 - q[1]*q[1]
		)
		return complex(2*px+2*py+alpha*px*py, 0)
	}
}

func solvePoisson2D(comm pencil.Comm, bs []*bases.Basis, ip *InputParameters.InputParameters) (maxErr float64, err error) {
	var (
		T    *tensor.TensorProductSpace
		mats []*tensor.TPMatrix
		P    *la.Solver2D
		b, u *tensor.Function
		a    *tensor.Array
	)
	if T, err = newSpace(comm, bs); err != nil {
		return
	}
	v, w := tensor.TestFunction(T), tensor.TrialFunction(T)
	rhs := tensor.Scale(tensor.Laplace(w), -1)
	if ip.Alpha != 0 {
		rhs = tensor.Add(rhs, tensor.Scale(w, complex(ip.Alpha, 0)))
	}
	if mats, err = tensor.Inner(v, rhs); err != nil {
		return
	}
	if P, err = la.NewSolver2D(mats); err != nil {
		return
	}
	if b, err = T.ScalarProduct(T.ArrayFrom(poisson2DForcing(ip.Alpha))); err != nil {
		return
	}
	if u, err = P.Solve(b, nil); err != nil {
		return
	}
	if a, err = T.Backward(u); err != nil {
		return
	}
	return maxError(a, poisson2DExact), nil
}
