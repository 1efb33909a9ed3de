// Command codegen sends a single query to the model from the terminal and
// saves the result.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cosmos-link/code-agent/internal/agent"
	"github.com/cosmos-link/code-agent/internal/config"
	"github.com/cosmos-link/code-agent/internal/extract"
	"github.com/cosmos-link/code-agent/internal/generator"
	"github.com/cosmos-link/code-agent/internal/logging"
	"github.com/cosmos-link/code-agent/internal/persist"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	mode       string
	fallback   bool
	outDir     string
	provider   string
	model      string
	apiKey     string
	verbose    bool
}

// factoryFor builds the model client factory; tests replace it
var factoryFor = func(cfg *config.Config) agent.Factory {
	return agent.ProviderFactory(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.BaseURL())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "codegen",
		Short: "Generate code or research notes with an LLM",
		Long: `Generate code or research notes with an LLM and save the result to disk.

Providers: gemini (default), openai, deepseek, anthropic

Examples:
  codegen generate "Write a Python script that greets the user"
  codegen generate --mode append --out ./snippets "Sum an array in JavaScript"
  codegen research "What is the Go programming language?"`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file (default: $CONFIG_FILE)")
	flags.StringVarP(&opts.mode, "mode", "m", "", "Persistence mode: overwrite or append")
	flags.BoolVar(&opts.fallback, "fallback", false, "Sniff the language when the model names an unknown one")
	flags.StringVarP(&opts.outDir, "out", "o", "", "Output directory")
	flags.StringVarP(&opts.provider, "provider", "p", "", "Model provider")
	flags.StringVar(&opts.model, "model", "", "Model name (default: provider default)")
	flags.StringVarP(&opts.apiKey, "api-key", "k", "", "API key overriding the configured one")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress to stderr")

	rootCmd.AddCommand(
		variantCmd(opts, agent.VariantCode, "generate [query...]", "Generate code and save it to a file"),
		variantCmd(opts, agent.VariantResearch, "research [query...]", "Write a research summary and append it to the research file"),
	)
	return rootCmd
}

func variantCmd(opts *options, variant agent.Variant, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if strings.TrimSpace(query) == "" {
				var err error
				if query, err = readQuery(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			return run(cmd, opts, variant, query)
		},
	}
}

func readQuery(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter your query: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read query: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func run(cmd *cobra.Command, opts *options, variant agent.Variant, query string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return err
	}

	log := logging.Nop()
	if opts.verbose {
		log = logging.New(cfg.Log.Level, cfg.Log.Format, errOut)
	}

	mode, err := persist.ParseMode(cfg.Output.Mode)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return err
	}
	persister, err := persist.New(persist.Options{
		Dir:          cfg.Output.Dir,
		Mode:         mode,
		Fallback:     cfg.Output.Fallback,
		DefaultName:  cfg.Output.DefaultFilename,
		ResearchName: cfg.Output.ResearchFilename,
		Logger:       log,
	})
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return err
	}

	a, err := agent.New(factoryFor(cfg), cfg.LLM.APIKey(), log)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return err
	}

	gen := generator.NewGenerator(a, persister, nil, nil, log)
	outcome, err := gen.Generate(cmd.Context(), generator.Request{
		Query:   query,
		Variant: variant,
		APIKey:  opts.apiKey,
	})
	if err != nil {
		if outcome != nil && outcome.Code != nil {
			fmt.Fprintf(out, "%s\n\n", outcome.Code.Code)
		}
		fmt.Fprintf(errOut, "Error: %v\n", err)
		var perr *extract.ParseError
		if errors.As(err, &perr) {
			fmt.Fprintf(errOut, "Raw response:\n%s\n", perr.Raw)
		}
		return err
	}

	switch {
	case outcome.Code != nil:
		fmt.Fprintf(out, "%s\n\n", outcome.Code.Code)
	case outcome.Research != nil:
		fmt.Fprintf(out, "%s\n\n", outcome.Content())
	}
	fmt.Fprintln(out, outcome.Saved.Confirmation)
	return nil
}

// loadConfig applies explicitly set flags on top of the loaded configuration
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Output.Mode = strings.ToLower(opts.mode)
	}
	if flags.Changed("fallback") {
		cfg.Output.Fallback = opts.fallback
	}
	if flags.Changed("out") {
		cfg.Output.Dir = opts.outDir
	}
	if flags.Changed("provider") {
		cfg.LLM.Provider = strings.ToLower(opts.provider)
	}
	if flags.Changed("model") {
		cfg.LLM.Model = opts.model
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
