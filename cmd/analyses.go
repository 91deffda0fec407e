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
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notargets/picval/regression_tests"
	"github.com/notargets/picval/regression_tests/Collision3D"
	"github.com/notargets/picval/regression_tests/ElectrostaticSphere"
	"github.com/notargets/picval/regression_tests/FieldIonization"
	"github.com/notargets/picval/regression_tests/OpenPMDRegression"
	"github.com/notargets/picval/regression_tests/RefinedInjection"
	"github.com/notargets/picval/regression_tests/ScrapingRZ"
	"github.com/notargets/picval/regression_tests/SpaceChargeInit"
)

type analysisCmd struct {
	use, short string
	build      func(cfg *regression_tests.Config, filename string) regression_tests.Analysis
}

var analyses = []analysisCmd{
	{"field_ionization", "N5+ fraction after field ionization of a nitrogen plasma",
		func(cfg *regression_tests.Config, fn string) regression_tests.Analysis {
			return FieldIonization.New(cfg, fn)
		}},
	{"collision_3d", "Electron-ion temperature relaxation and diagnostic particle filters",
		func(cfg *regression_tests.Config, fn string) regression_tests.Analysis {
			return Collision3D.New(cfg, fn)
		}},
	{"space_charge_initialization", "Space charge field of a Gaussian beam",
		func(cfg *regression_tests.Config, fn string) regression_tests.Analysis {
			return SpaceChargeInit.New(cfg, fn)
		}},
	{"electrostatic_sphere", "Coulomb expansion of a uniformly charged sphere",
		func(cfg *regression_tests.Config, fn string) regression_tests.Analysis {
			return ElectrostaticSphere.New(cfg, fn)
		}},
	{"scraping_rz", "Particle scraping on an embedded boundary in RZ",
		func(cfg *regression_tests.Config, fn string) regression_tests.Analysis {
			return ScrapingRZ.New(cfg, fn)
		}},
	{"refined_injection", "Electron count and rho uniformity with refined plasma injection",
		func(cfg *regression_tests.Config, fn string) regression_tests.Analysis {
			return RefinedInjection.New(cfg, fn)
		}},
	{"openpmd_regression", "Checksum regression of openPMD output",
		func(cfg *regression_tests.Config, fn string) regression_tests.Analysis {
			return OpenPMDRegression.New(cfg, fn)
		}},
}

func (ac analysisCmd) command() *cobra.Command {
	return &cobra.Command{
		Use:   ac.use + " <plotfile>",
		Short: ac.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var cfg *regression_tests.Config
			if cfg, err = newConfig(); err != nil {
				return
			}
			logger.Info("running analysis", zap.String("analysis", ac.use),
				zap.String("test", cfg.TestName), zap.String("output", args[0]))
			if err = ac.build(cfg, args[0]).Run(cmd.Context()); err != nil {
				logger.Error("analysis failed", zap.String("analysis", ac.use), zap.Error(err))
				return
			}
			logger.Info("analysis passed", zap.String("analysis", ac.use), zap.String("test", cfg.TestName))
			return
		},
	}
}

func init() {
	for _, ac := range analyses {
		rootCmd.AddCommand(ac.command())
	}
}
