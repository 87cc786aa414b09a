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
	"math"

	"github.com/notargets/gospectral/InputParameters"
	"github.com/notargets/gospectral/bases"
	"github.com/notargets/gospectral/la"
	"github.com/notargets/gospectral/pencil"
	"github.com/notargets/gospectral/tensor"
	"github.com/spf13/cobra"
)

// helmholtzCmd represents the helmholtz command
var helmholtzCmd = &cobra.Command{
	Use:   "helmholtz",
	Short: "Helmholtz problem on a periodic channel",
	Long: `
Solves -lap u + alpha u = f on [0, 2pi) x [-1, 1] with u = 0 at x = -1 and 1,
for u = (1 - x^2)(1 + cos(theta) + sin(2 theta)).

gospectral helmholtz -n 16,24 -f Chebyshev --ranks 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ip, err := problemInput(cmd, "Helmholtz", func(n []int, family string) []InputParameters.AxisParameters {
			n = axesOrDefault(n, 16, 24)
			return []InputParameters.AxisParameters{
				{Family: "Fourier", Size: n[0]},
				{Family: family, Size: n[1], BC: "Dirichlet"},
			}
		})
		if err != nil {
			return err
		}
		_, err = run(ip, 2, solveHelmholtz)
		return err
	},
}

func init() {
	rootCmd.AddCommand(helmholtzCmd)
	problemFlags(helmholtzCmd, []int{16, 24}, "Legendre", 2)
}

func helmholtzExact(q []float64) complex128 {
	g := 1 + math.Cos(q[0]) + math.Sin(2*q[0])
	return complex((1-q[1]*q[1])*g, 0)
}

func helmholtzForcing(alpha float64) func(q []float64) complex128 {
	return func(q []float64) complex128 {
		var (
			x = q[1]
			g = 1 + math.Cos(q[0]) + math.Sin(2*q[0])
			h = math.Cos(q[0]) + 4*math.Sin(2*q[0])
		)
		return complex((1-x*x)*(h+alpha*g)+2*g, 0)
	}
}

func solveHelmholtz(comm pencil.Comm, bs []*bases.Basis, ip *InputParameters.InputParameters) (maxErr float64, err error) {
	var (
		T    *tensor.TensorProductSpace
		mats []*tensor.TPMatrix
		H    *la.Helmholtz
		b, u *tensor.Function
		a    *tensor.Array
	)
	if T, err = newSpace(comm, bs); err != nil {
		return
	}
	v, w := tensor.TestFunction(T), tensor.TrialFunction(T)
	rhs := tensor.Add(tensor.Scale(tensor.Laplace(w), -1), tensor.Scale(w, complex(ip.Alpha, 0)))
	if mats, err = tensor.Inner(v, rhs); err != nil {
		return
	}
	if H, err = la.NewHelmholtz(mats); err != nil {
		return
	}
	if b, err = T.ScalarProduct(T.ArrayFrom(helmholtzForcing(ip.Alpha))); err != nil {
		return
	}
	if u, err = H.Solve(b, nil); err != nil {
		return
	}
	if a, err = T.Backward(u); err != nil {
		return
	}
	return maxError(a, helmholtzExact), nil
}
