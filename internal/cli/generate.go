package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/btcsaas/eps-generator/internal/config"
	"github.com/btcsaas/eps-generator/internal/eps"
	"github.com/btcsaas/eps-generator/internal/logging"
)

// GenerateOptions captures everything the generate command resolved from
// defaults, the config file, the environment and flags.
type GenerateOptions struct {
	URL            string
	File           string
	Mock           string
	ConfigPath     string
	CrudConfigPath string
	DryRun         bool
	Verbose        bool
	Config         *config.Config

	Stdout io.Writer
	Stderr io.Writer
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate TypeScript clients from an API document",
		Long: "Generate TypeScript types, services and CRUD clients from a Swagger/OpenAPI document. " +
			"Exactly one of --url, --file or --mock selects the source.",
		Example: strings.TrimSpace(`  eps-generator generate --file openapi.yaml --output ./src/services/auto
  eps-generator generate --url https://api.example.com/swagger.json --base-url /api
  eps-generator --config eps.config.json generate --file openapi.yaml --crud --dry-run`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolveGenerateOptions(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringP("url", "u", "", "Fetch the API document from an http(s) URL")
	flags.StringP("file", "f", "", "Read the API document from a local file")
	flags.StringP("mock", "m", "", "Use an inline JSON document")
	flags.StringP("output", "o", "", "Output directory (default "+config.DefaultOutputDir+")")
	flags.StringP("base-url", "b", "", "Base URL baked into generated clients (default "+config.DefaultBaseURL+")")
	flags.IntP("timeout", "t", 0, "Request timeout in milliseconds (default 30000)")
	flags.Bool("no-types", false, "Skip type generation")
	flags.Bool("no-services", false, "Skip service generation")
	flags.Bool("crud", false, "Generate CRUD clients")
	flags.String("crud-config", "", "JSON or YAML file with CRUD entity configs")
	flags.Bool("dry-run", false, "List the files that would be written without writing them")

	return cmd
}

func resolveGenerateOptions(cmd *cobra.Command) (*GenerateOptions, error) {
	flags := cmd.Flags()
	opts := &GenerateOptions{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}

	var err error
	if opts.URL, err = trimmedString(flags, "url"); err != nil {
		return nil, err
	}
	if opts.File, err = trimmedString(flags, "file"); err != nil {
		return nil, err
	}
	if opts.Mock, err = trimmedString(flags, "mock"); err != nil {
		return nil, err
	}
	sources := 0
	for _, s := range []string{opts.URL, opts.File, opts.Mock} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return nil, newUsageError("generate: exactly one input source is required: --url, --file or --mock")
	}

	if opts.ConfigPath, err = trimmedString(flags, "config"); err != nil {
		return nil, err
	}
	if opts.CrudConfigPath, err = trimmedString(flags, "crud-config"); err != nil {
		return nil, err
	}
	if opts.DryRun, err = flags.GetBool("dry-run"); err != nil {
		return nil, err
	}
	if opts.Verbose, err = flags.GetBool("verbose"); err != nil {
		return nil, err
	}

	overrides, err := generateOverrides(flags)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.ConfigPath, overrides)
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("generate: %v", err))
	}
	if opts.CrudConfigPath != "" {
		cruds, err := config.LoadCrudConfigs(opts.CrudConfigPath)
		if err != nil {
			return nil, newUsageError(fmt.Sprintf("generate: %v", err))
		}
		cfg.CrudConfigs = cruds
	}

	if res := config.Validate(cfg); !res.Valid {
		return nil, newUsageError("generate: invalid configuration:\n  - " + strings.Join(res.Errors, "\n  - "))
	}
	opts.Config = cfg
	return opts, nil
}

// generateOverrides maps changed flags onto config keys.
func generateOverrides(flags *pflag.FlagSet) (map[string]any, error) {
	overrides := map[string]any{}
	if flags.Changed("output") {
		value, err := trimmedString(flags, "output")
		if err != nil {
			return nil, err
		}
		overrides["outputDir"] = value
	}
	if flags.Changed("base-url") {
		value, err := trimmedString(flags, "base-url")
		if err != nil {
			return nil, err
		}
		overrides["baseURL"] = value
	}
	if flags.Changed("timeout") {
		value, err := flags.GetInt("timeout")
		if err != nil {
			return nil, err
		}
		overrides["timeout"] = value
	}
	if flags.Changed("no-types") {
		value, err := flags.GetBool("no-types")
		if err != nil {
			return nil, err
		}
		overrides["generateTypes"] = !value
	}
	if flags.Changed("no-services") {
		value, err := flags.GetBool("no-services")
		if err != nil {
			return nil, err
		}
		overrides["generateServices"] = !value
	}
	if flags.Changed("crud") {
		value, err := flags.GetBool("crud")
		if err != nil {
			return nil, err
		}
		overrides["generateCrud"] = value
	}
	return overrides, nil
}

func trimmedString(flags *pflag.FlagSet, name string) (string, error) {
	value, err := flags.GetString(name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func runGenerate(ctx context.Context, opts *GenerateOptions) error {
	logger, err := logging.New(opts.Verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	g := eps.New(eps.WithLogger(logger), eps.WithDryRun(opts.DryRun))

	var res *eps.Result
	switch {
	case opts.URL != "":
		res, err = g.GenerateFromURL(ctx, opts.URL, opts.Config)
	case opts.File != "":
		res, err = g.GenerateFromFile(ctx, opts.File, opts.Config)
	default:
		var mock map[string]any
		if uerr := yaml.Unmarshal([]byte(opts.Mock), &mock); uerr != nil {
			return newUsageError(fmt.Sprintf("generate: --mock is not a valid JSON document: %v", uerr))
		}
		res, err = g.GenerateFromMock(ctx, mock, opts.Config)
	}
	if err != nil {
		logger.Error("generation aborted", zap.Error(err))
		return fmt.Errorf("generate: %w", err)
	}

	printResult(opts.Stdout, opts.Stderr, res)
	if !res.Success {
		return ErrGenerationFailed
	}
	return nil
}

func printResult(stdout, stderr io.Writer, res *eps.Result) {
	if !res.Success {
		fmt.Fprintln(stderr, "EPS generation failed")
		if len(res.Errors) > 0 {
			fmt.Fprintln(stderr, "Errors:")
			for _, e := range res.Errors {
				fmt.Fprintf(stderr, "  - %s\n", friendlyError(e))
			}
		}
		return
	}

	if res.DryRun {
		fmt.Fprintln(stdout, "EPS generation planned (dry run, nothing written)")
	} else {
		fmt.Fprintln(stdout, "EPS generation succeeded")
	}
	if res.API != "" {
		fmt.Fprintf(stdout, "API: %s\n", res.API)
	}
	fmt.Fprintln(stdout, "Stats:")
	fmt.Fprintf(stdout, "  - endpoints: %d\n", res.Stats.Endpoints)
	fmt.Fprintf(stdout, "  - types: %d\n", res.Stats.Types)
	fmt.Fprintf(stdout, "  - services: %d\n", res.Stats.Services)
	fmt.Fprintf(stdout, "  - cruds: %d\n", res.Stats.Cruds)
	fmt.Fprintf(stdout, "  - files: %d\n", len(res.Files))

	if len(res.Files) > 0 {
		fmt.Fprintln(stdout, "Files:")
		for _, f := range res.Files {
			fmt.Fprintf(stdout, "  - %s\n", f)
		}
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintln(stdout, "Warnings:")
		for _, w := range res.Warnings {
			fmt.Fprintf(stdout, "  - %s\n", w)
		}
	}
}

// friendlyError keeps the message on one bullet by indenting continuation
// lines.
func friendlyError(msg string) string {
	return strings.ReplaceAll(msg, "\n", "\n    ")
}
