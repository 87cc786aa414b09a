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

// biharmonicCmd represents the biharmonic command
var biharmonicCmd = &cobra.Command{
	Use:   "biharmonic",
	Short: "Biharmonic problem on a periodic channel",
	Long: `
Solves lap lap u + alpha u = f on [0, 2pi) x [-1, 1] with u = u' = 0 at x = -1
and 1, for u = (1 - x^2)^2 (1 + cos(theta)).

gospectral biharmonic -n 8,24`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ip, err := problemInput(cmd, "Biharmonic", func(n []int, family string) []InputParameters.AxisParameters {
			n = axesOrDefault(n, 8, 24)
			return []InputParameters.AxisParameters{
				{Family: "Fourier", Size: n[0]},
				{Family: family, Size: n[1], BC: "Biharmonic"},
			}
		})
		if err != nil {
			return err
		}
		_, err = run(ip, 2, solveBiharmonic)
		return err
	},
}

func init() {
	rootCmd.AddCommand(biharmonicCmd)
	problemFlags(biharmonicCmd, []int{8, 24}, "Legendre", 1)
}

func biharmonicExact(q []float64) complex128 {
	p := 1 - q[1]*q[1]
	return complex(p*p*(1+math.Cos(q[0])), 0)
}

func biharmonicForcing(alpha float64) func(q []float64) complex128 {
	return func(q []float64) complex128 {
		var (
			x   = q[1]
			p   = (1 - x*x) * (1 - x*x)
			c   = math.Cos(q[0])
			g   = 1 + c
			d2p = 12*x*x - 4
		)
		return complex(c*p-2*c*d2p+24*g+alpha*g*p, 0)
	}
}

func solveBiharmonic(comm pencil.Comm, bs []*bases.Basis, ip *InputParameters.InputParameters) (maxErr float64, err error) {
	var (
		T    *tensor.TensorProductSpace
		mats []*tensor.TPMatrix
		B    *la.Biharmonic
		b, u *tensor.Function
		a    *tensor.Array
	)
	if T, err = newSpace(comm, bs); err != nil {
		return
	}
	v, w := tensor.TestFunction(T), tensor.TrialFunction(T)
	rhs := tensor.Add(tensor.Laplace(tensor.Laplace(w)), tensor.Scale(w, complex(ip.Alpha, 0)))
	if mats, err = tensor.Inner(v, rhs); err != nil {
		return
	}
	if B, err = la.NewBiharmonic(mats); err != nil {
		return
	}
	if b, err = T.ScalarProduct(T.ArrayFrom(biharmonicForcing(ip.Alpha))); err != nil {
		return
	}
	if u, err = B.Solve(b, nil); err != nil {
		return
	}
	if a, err = T.Backward(u); err != nil {
		return
	}
	return maxError(a, biharmonicExact), nil
}
