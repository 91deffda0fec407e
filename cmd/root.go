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
	"context"
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/notargets/picval/InputParameters"
	"github.com/notargets/picval/checksum"
	"github.com/notargets/picval/regression_tests"
	"github.com/notargets/picval/utils"
)

var (
	cfgFile  string
	logger   = zap.NewNop()
	profiler interface{ Stop() }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "picval",
	Short: "Validation analyses for particle-in-cell regression runs",
	Long: `
Checks the output of a single regression run (AMReX plotfiles and openPMD series)
against analytic or fitted expectations, then compares its checksums with the
stored benchmark of the test.

picval <analysis> <plotfile>`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		config := zap.NewProductionConfig()
		if viper.GetBool("verbose") {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		if logger, err = config.Build(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		switch mode := viper.GetString("profile"); mode {
		case "":
		case "cpu":
			profiler = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet)
		case "mem":
			profiler = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet)
		default:
			return fmt.Errorf("unknown profile mode %q, use cpu or mem", mode)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if profiler != nil {
			profiler.Stop()
			profiler = nil
		}
		logger.Debug("memory", zap.String("usage", utils.GetMemUsage()))
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.picval.yaml)")
	rootCmd.PersistentFlags().StringP("benchmarks", "b", "benchmarks_json", "directory of the checksum benchmark files")
	rootCmd.PersistentFlags().Bool("reset", false, "rewrite the checksum benchmark from this run instead of comparing")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringP("test-name", "t", "", "name of the regression test (default is the working directory name)")
	rootCmd.PersistentFlags().StringP("params", "p", "", "YAML file overriding analysis constants and checksum tolerances")
	rootCmd.PersistentFlags().String("profile", "", "write a cpu or mem profile to the working directory")
	for _, name := range []string{"benchmarks", "reset", "verbose", "test-name", "params", "profile"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".picval" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".picval")
	}

	viper.SetEnvPrefix("picval")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// testName is the --test-name flag, or the working directory name as the
// regression suite runs each analysis from the test's own directory
func testName() (name string, err error) {
	if name = viper.GetString("test-name"); name != "" {
		return
	}
	var wd string
	if wd, err = os.Getwd(); err != nil {
		return
	}
	return filepath.Base(wd), nil
}

func newConfig() (cfg *regression_tests.Config, err error) {
	cfg = &regression_tests.Config{
		Logger:   logger,
		Checksum: checksum.NewChecker(viper.GetString("benchmarks"), viper.GetBool("reset"), logger),
	}
	if cfg.TestName, err = testName(); err != nil {
		return nil, err
	}
	if params := viper.GetString("params"); params != "" {
		if cfg.Params, err = InputParameters.Read(params); err != nil {
			return nil, err
		}
		if viper.GetBool("verbose") {
			cfg.Params.Print()
		}
	}
	return
}
