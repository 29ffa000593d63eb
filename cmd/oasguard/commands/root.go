// SPDX-License-Identifier: AGPL-3.0-or-later

/*
oasguard - OpenAPI consistency guard.
It regenerates the committed OpenAPI document, fails on drift, and trips when the number of API paths changes without a review of the read-only routing tables.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package commands contains the Cobra commands of the oasguard CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd constructs the oasguard root Cobra command. Run without
// arguments it performs the consistency check.
func NewRootCmd() *cobra.Command {
	version := os.Getenv("OASGUARD_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	cmd := &cobra.Command{
		Use:   "oasguard",
		Short: "Check the committed OpenAPI document against the generator",
		Long: `oasguard regenerates docs/redoc/master/openapi.json with
tools/generate_openapi_models.sh, fails when the result differs from the
committed document, and fails when the number of API paths is not the
reviewed one.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of oasguard",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "oasguard version %s\n", version)
		},
	})

	return cmd
}
