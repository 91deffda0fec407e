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

	"github.com/notargets/picval/checksum"
	"github.com/notargets/picval/regression_tests"
)

// ChecksumCmd evaluates or resets the checksum benchmark of a run without any physics check
var ChecksumCmd = &cobra.Command{
	Use:   "checksum <output>",
	Short: "Compare the checksums of a plotfile or openPMD series with the test's benchmark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var cfg *regression_tests.Config
		if cfg, err = newConfig(); err != nil {
			return
		}
		opts := cfg.ChecksumOptions()
		format, _ := cmd.Flags().GetString("format")
		if format != "" {
			opts.OutputFormat = checksum.OutputFormat(format)
		}
		skipFields, _ := cmd.Flags().GetBool("skip-fields")
		skipParticles, _ := cmd.Flags().GetBool("skip-particles")
		opts.DoFields = !skipFields
		opts.DoParticles = !skipParticles
		if cmd.Flags().Changed("rtol") {
			opts.Rtol, _ = cmd.Flags().GetFloat64("rtol")
		}
		if cmd.Flags().Changed("atol") {
			opts.Atol, _ = cmd.Flags().GetFloat64("atol")
		}
		return cfg.EvaluateChecksum(cmd.Context(), args[0], opts)
	},
}

func init() {
	rootCmd.AddCommand(ChecksumCmd)
	ChecksumCmd.Flags().StringP("format", "f", "", "output format: plotfile or openpmd (default plotfile)")
	ChecksumCmd.Flags().Bool("skip-fields", false, "leave the fields out of the checksum")
	ChecksumCmd.Flags().Bool("skip-particles", false, "leave the particles out of the checksum")
	ChecksumCmd.Flags().Float64("rtol", checksum.DefaultRtol, "relative tolerance of the comparison")
	ChecksumCmd.Flags().Float64("atol", checksum.DefaultAtol, "absolute tolerance of the comparison")
}
