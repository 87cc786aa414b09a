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
	"os"
	"strings"

	"github.com/notargets/gospectral/InputParameters"
	"github.com/notargets/gospectral/bases"
	"github.com/notargets/gospectral/pencil"
	"github.com/notargets/gospectral/logger"
	"github.com/notargets/gospectral/tensor"
	"github.com/notargets/gospectral/utils"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
)

var log = logger.ForComponent("cmd")

// solveFunc solves a problem on one rank and returns the local max error.
type solveFunc func(comm pencil.Comm, bs []*bases.Basis, ip *InputParameters.InputParameters) (float64, error)

// problemFlags adds the flags shared by the problem commands.
func problemFlags(c *cobra.Command, n []int, family string, alpha float64) {
	c.Flags().StringP("inputFile", "I", "", "YAML problem file, overrides the other problem flags")
	c.Flags().IntSliceP("n", "n", n, "number of quadrature points per axis")
	c.Flags().StringP("family", "f", family, "polynomial family of the bounded axes: Legendre or Chebyshev")
	c.Flags().Float64P("alpha", "a", alpha, "coefficient of the zeroth order term")
	c.Flags().IntP("ranks", "r", 1, "number of simulated ranks")
}

// problemInput reads the problem file named by -I or builds the parameters
// from the flags, laying out the axes with layout.
func problemInput(c *cobra.Command, title string,
	layout func(n []int, family string) []InputParameters.AxisParameters) (ip *InputParameters.InputParameters, err error) {
	var file string
	if file, err = c.Flags().GetString("inputFile"); err != nil {
		return
	}
	ip = &InputParameters.InputParameters{Title: title, Problem: c.Name()}
	if len(file) != 0 {
		var data []byte
		if data, err = os.ReadFile(file); err != nil {
			return
		}
		if err = ip.Parse(data); err != nil {
			return
		}
		if ip.Problem != "" && !strings.EqualFold(ip.Problem, c.Name()) {
			return nil, fmt.Errorf("problem file %s is for %q, not %q", file, ip.Problem, c.Name())
		}
		ip.Print()
		return
	}
	var (
		n      []int
		family string
	)
	if n, err = c.Flags().GetIntSlice("n"); err != nil {
		return
	}
	if family, err = c.Flags().GetString("family"); err != nil {
		return
	}
	if ip.Alpha, err = c.Flags().GetFloat64("alpha"); err != nil {
		return
	}
	if ip.Ranks, err = c.Flags().GetInt("ranks"); err != nil {
		return
	}
	ip.Axes = layout(n, family)
	return
}

// run solves ip on its ranks and prints the largest error over all ranks.
func run(ip *InputParameters.InputParameters, ndim int, solve solveFunc) (maxErr float64, err error) {
	var bs []*bases.Basis
	if bs, err = ip.Bases(); err != nil {
		return
	}
	if len(bs) != ndim {
		return 0, fmt.Errorf("%s needs %d axes, got %d", ip.Title, ndim, len(bs))
	}
	ranks := ip.Ranks
	if ranks < 1 {
		ranks = 1
	}
	errs := make([]float64, ranks)
	err = pencil.Run(ranks, func(comm pencil.Comm) (err error) {
		errs[comm.Rank()], err = solve(comm, bs, ip)
		return
	})
	if err != nil {
		return
	}
	if utils.IsNan(errs) {
		return 0, fmt.Errorf("%s: solution has NaN entries", ip.Title)
	}
	maxErr = floats.Max(errs)
	log.Info("solved", "problem", ip.Title, "ranks", ranks, "memory", utils.GetMemUsage())
	fmt.Printf("%s: max error %8.3e on %d ranks\n", ip.Title, maxErr, ranks)
	return
}

// axesOrDefault pads n with def up to the number of axes.
func axesOrDefault(n []int, def ...int) []int {
	out := append([]int{}, def...)
	copy(out, n)
	return out
}

func newSpace(comm pencil.Comm, bs []*bases.Basis, opts ...tensor.Option) (*tensor.TensorProductSpace, error) {
	return tensor.NewTensorProductSpace(comm, bs, append([]tensor.Option{tensor.WithTransformConfig(transformConfig)},
		opts...)...)
}

// maxError is the local max norm of the difference between the solution
// and the exact solution sampled on the local mesh.
func maxError(a *tensor.Array, exact func(q []float64) complex128) float64 {
	return a.MaxAbsDiff(a.Space().ArrayFrom(exact).NDArray)
}
