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
	"errors"
	"fmt"
	"strings"

	"github.com/notargets/gospectral/assembly"
	"github.com/notargets/gospectral/utils"
	"github.com/spf13/cobra"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check every registered closed form against quadrature",
	Long: `
Builds reference bases of size n for every key of the operator registry and
compares the closed form matrix with the one assembled by quadrature.

gospectral check -n 12 --match SD`,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("n")
		tol, _ := cmd.Flags().GetFloat64("tol")
		match, _ := cmd.Flags().GetString("match")
		failed, err := checkRegistry(assembly.NewEngine(), n, tol, match)
		if err != nil {
			return err
		}
		if failed != 0 {
			return fmt.Errorf("%d closed forms failed the check", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().IntP("n", "n", 12, "size of the reference bases")
	checkCmd.Flags().Float64P("tol", "t", 1.e-8, "relative tolerance")
	checkCmd.Flags().StringP("match", "m", "", "only check keys whose name contains this string")
}

// checkRegistry checks the closed forms of e and returns how many failed.
// Keys whose reference bases cannot be built are skipped.
func checkRegistry(e *assembly.Engine, n int, tol float64, match string) (failed int, err error) {
	var checked int
	for _, key := range e.Registry().Keys() {
		name := key.String()
		if !strings.Contains(name, match) {
			continue
		}
		if key.Test.Scaled {
			name += " (scaled)"
		}
		switch cerr := e.CheckSanity(key, n, tol); {
		case cerr == nil:
			checked++
		case errors.Is(cerr, utils.ErrSanity):
			failed++
			fmt.Printf("%-16s FAILED %v\n", name, cerr)
		default:
			fmt.Printf("%-16s skipped: %v\n", name, cerr)
		}
	}
	if checked+failed == 0 {
		return 0, fmt.Errorf("no registered closed form matches %q", match)
	}
	fmt.Printf("%d of %d closed forms agree with quadrature\n", checked, checked+failed)
	return
}
