package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/btcsaas/eps-generator/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <configPath>",
		Short: "Check a configuration file",
		Long:  "Load a configuration file as written, without defaults, and report every rule it breaks.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), cmd.ErrOrStderr(), strings.TrimSpace(args[0]))
		},
	}
}

func runValidate(stdout, stderr io.Writer, path string) error {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("validate: %v", err))
	}
	res := config.Validate(cfg)
	if !res.Valid {
		fmt.Fprintf(stderr, "Config %s is invalid:\n", path)
		for _, e := range res.Errors {
			fmt.Fprintf(stderr, "  - %s\n", e)
		}
		return ErrInvalidConfig
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	fmt.Fprintf(stdout, "Config %s is valid\n", path)
	fmt.Fprintf(stdout, "  - baseURL: %s\n", cfg.BaseURL)
	fmt.Fprintf(stdout, "  - timeout: %dms\n", timeout)
	fmt.Fprintf(stdout, "  - outputDir: %s\n", cfg.OutputDir)
	fmt.Fprintf(stdout, "  - types: %t\n", cfg.TypesEnabled())
	fmt.Fprintf(stdout, "  - services: %t\n", cfg.ServicesEnabled())
	fmt.Fprintf(stdout, "  - crud: %t (%d entities)\n", cfg.CrudEnabled(), len(cfg.CrudConfigs))
	return nil
}
