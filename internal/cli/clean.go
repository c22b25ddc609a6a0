package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/btcsaas/eps-generator/internal/config"
	"github.com/btcsaas/eps-generator/internal/emitter"
)

func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete a generated output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := trimmedString(cmd.Flags(), "output")
			if err != nil {
				return err
			}
			if dir == "" {
				return newUsageError("clean: --output must not be empty")
			}
			removed, err := emitter.RemoveDir(dir)
			if err != nil {
				return fmt.Errorf("clean: %w", err)
			}
			if removed {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", dir)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing to clean: %s does not exist\n", dir)
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir, "Output directory to delete")
	return cmd
}
