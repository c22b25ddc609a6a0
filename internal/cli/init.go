package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/btcsaas/eps-generator/internal/config"
	"github.com/btcsaas/eps-generator/internal/emitter"
)

const defaultConfigFile = "./eps.config.json"

// InitOptions captures the options for the init command.
type InitOptions struct {
	OutputPath string
	Force      bool
	Verbose    bool

	Stdout io.Writer
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default eps-generator configuration file",
		Long:  "Write a JSON configuration file holding every option with its default value.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("output")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			return initRunner(cmd.Context(), &InitOptions{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
				Stdout:     cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringP("output", "o", defaultConfigFile, "Where to write the config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, opts *InitOptions) error {
	_ = ctx

	out := strings.TrimSpace(opts.OutputPath)
	if out == "" {
		out = defaultConfigFile
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil {
		if st.IsDir() {
			return newUsageError(fmt.Sprintf("init: %q is a directory", absPath))
		}
		if !opts.Force {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}

	content, err := config.DefaultJSON()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	w, err := emitter.New(filepath.Dir(absPath))
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if _, err := w.Write(filepath.Base(absPath), content); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write %s: %v\nHint: choose a different --output or check directory permissions.", absPath, err))
	}
	fmt.Fprintf(opts.Stdout, "Wrote default config to %s\n", absPath)
	return nil
}
