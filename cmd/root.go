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

	"github.com/notargets/gospectral/config"
	"github.com/notargets/gospectral/logger"
	"github.com/notargets/gospectral/transform"
	"github.com/notargets/gospectral/utils"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

var (
	cfgDir      string
	profileMode string
	stopProfile interface{ Stop() }
	// Planner settings for every space the commands build
	transformConfig = transform.DefaultConfig()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gospectral",
	Short: "Spectral Galerkin solvers for manufactured model problems",
	Long: `
Builds tensor product function spaces, assembles the weak forms of a model
problem and solves them with the structured per mode solvers. Every command
compares the solution with a manufactured exact solution.

gospectral helmholtz -n 16,24 --ranks 2`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopProfile != nil {
			stopProfile.Stop()
		}
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "",
		"directory with a gospectral.yaml merged last (default search: executable dir, $HOME/.gospectral, cwd)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&profileMode, "profile", "",
		"write a cpu or mem profile to the working directory")
}

// initConfig reads the layered config files and applies them to the logger
// and transform planner.
func initConfig(cmd *cobra.Command) (err error) {
	var (
		v    = config.New()
		dirs = config.SearchPath()
		cfg  config.Config
	)
	if cfgDir != "" {
		dirs = append(dirs, cfgDir)
	}
	if err = config.Merge(v, dirs...); err != nil {
		return
	}
	if err = v.BindPFlag(config.KeyLogLevel, cmd.Flags().Lookup("log-level")); err != nil {
		return
	}
	if cfg, err = config.Decode(v); err != nil {
		return
	}
	logger.Init(cfg.Log)
	transformConfig = cfg.Transform
	log.Debug("configured", "planner_effort", cfg.Transform.Effort.String(), "netlib_blas", utils.NetlibBLAS)
	switch profileMode {
	case "":
	case "cpu":
		stopProfile = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	case "mem":
		stopProfile = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		return fmt.Errorf("unknown profile mode %q, use cpu or mem", profileMode)
	}
	return
}
