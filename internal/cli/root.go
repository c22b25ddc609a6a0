package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/btcsaas/eps-generator/internal/eps"
)

// Execute runs the eps-generator CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eps-generator",
		Short: "Generate TypeScript API clients from Swagger/OpenAPI documents",
		Long: "eps-generator reads a Swagger 2.0 or OpenAPI 3.x document and writes TypeScript " +
			"types, one axios service class per tag, optional CRUD clients and an aggregating index.ts.",
		Version:       eps.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	cmd.SetFlagErrorFunc(flagUsageError)

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (JSON or YAML)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

	for _, sub := range []*cobra.Command{newGenerateCmd(), newInitCmd(), newValidateCmd(), newCleanCmd()} {
		sub.SetFlagErrorFunc(flagUsageError)
		cmd.AddCommand(sub)
	}

	return cmd
}

func flagUsageError(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}
