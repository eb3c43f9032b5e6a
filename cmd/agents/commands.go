package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"stock-agents/internal/agents"
	"stock-agents/internal/market"
	"stock-agents/internal/orchestrator"
	"stock-agents/internal/ta"
	"stock-agents/internal/types"
)

type globalFlags struct {
	configPath string
	provider   string
	model      string
	source     string
	internet   bool
	jq         string
	summary    bool
	timeout    time.Duration
}

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// exitCode is 2 for bad input, 1 for everything else.
func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) || orchestrator.IsValidation(err) {
		return 2
	}
	return 1
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "agents",
		Short: "Multi-agent LLM stock analysis",
		Long: `agents dispatches a fixed set of LLM analysts (stock news, sector news,
financial analysis, trend analysis) against one A-share instrument and lets a
commander agent combine their structured outputs into a final assessment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "config.yaml", "Configuration file path")
	pf.StringVar(&flags.provider, "provider", "", "LLM provider (openai, gemini, claude, noop); default from config")
	pf.StringVar(&flags.model, "model", "", "Model name hint passed to the provider")
	pf.StringVar(&flags.source, "source", "", "Market data source hint")
	pf.BoolVar(&flags.internet, "internet", false, "Allow providers to search the internet")
	pf.StringVar(&flags.jq, "jq", "", "Filter JSON output with a jq expression")
	pf.BoolVar(&flags.summary, "summary", false, "Print a styled summary instead of JSON")
	pf.DurationVar(&flags.timeout, "timeout", 0, "Overall timeout (default from config)")

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newSingleCmd(flags))
	root.AddCommand(newSchemaCmd(flags))
	root.AddCommand(newIndicatorsCmd(flags))
	root.AddCommand(newAgentsCmd())
	return root
}

// withSystem bootstraps the application, runs fn under a signal and timeout
// aware context, and tears everything down afterwards.
func withSystem(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, sys *system) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sys, err := initializeSystem(ctx, flags.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sys.Close(shutdownCtx)
	}()

	timeout := flags.timeout
	if timeout <= 0 {
		timeout = sys.cfg.Agents.Timeout()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx, sys)
}

func (f *globalFlags) runRequest(symbol, interval string, count int) types.RunRequest {
	return types.RunRequest{
		Symbol:      symbol,
		Source:      f.source,
		Provider:    f.provider,
		Model:       f.model,
		Interval:    interval,
		Count:       count,
		UseInternet: f.internet,
	}
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var interval string
	var count int

	cmd := &cobra.Command{
		Use:   "run SYMBOL",
		Short: "Run all agents for a symbol",
		Example: `  agents run 600519
  agents run sz000001 --provider gemini --internet --summary
  agents run 600519 --jq '.agents[0].data.recommendation'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSystem(cmd, flags, func(ctx context.Context, sys *system) error {
				if !cmd.Flags().Changed("interval") {
					interval = sys.cfg.Agents.Interval
				}
				if !cmd.Flags().Changed("count") {
					count = sys.cfg.Agents.Count
				}
				resp, err := sys.orch.RunFull(ctx, flags.runRequest(args[0], interval, count))
				if err != nil {
					return err
				}
				if flags.summary {
					return renderSummary(cmd.OutOrStdout(), resp)
				}
				return emitJSON(cmd.OutOrStdout(), resp, flags.jq)
			})
		},
	}
	cmd.Flags().StringVar(&interval, "interval", orchestrator.DefaultInterval, "K-line interval")
	cmd.Flags().IntVar(&count, "count", orchestrator.DefaultBarCount, "K-line bar count (clamped to 10-120)")
	return cmd
}

func newSingleCmd(flags *globalFlags) *cobra.Command {
	var interval, depsPath string
	var count int

	cmd := &cobra.Command{
		Use:   "single AGENT_ID SYMBOL",
		Short: "Run one agent for a symbol",
		Long: `Run one agent. The commander can be given earlier sub-agent results with
--deps, a JSON file holding an array of agent envelopes (for example the
"agents" array of a previous run, edited by hand).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := readDependencies(depsPath)
			if err != nil {
				return usageError{err}
			}
			return withSystem(cmd, flags, func(ctx context.Context, sys *system) error {
				if !cmd.Flags().Changed("interval") {
					interval = sys.cfg.Agents.Interval
				}
				if !cmd.Flags().Changed("count") {
					count = sys.cfg.Agents.Count
				}
				res, err := sys.orch.RunSingle(ctx, types.SingleRequest{
					RunRequest:        flags.runRequest(args[1], interval, count),
					AgentID:           args[0],
					DependencyResults: deps,
				})
				if err != nil {
					return err
				}
				if flags.summary {
					return renderResult(cmd.OutOrStdout(), *res)
				}
				return emitJSON(cmd.OutOrStdout(), res, flags.jq)
			})
		},
	}
	cmd.Flags().StringVar(&interval, "interval", orchestrator.DefaultInterval, "K-line interval")
	cmd.Flags().IntVar(&count, "count", orchestrator.DefaultBarCount, "K-line bar count (clamped to 10-120)")
	cmd.Flags().StringVar(&depsPath, "deps", "", "JSON file with dependency agent results")
	return cmd
}

func readDependencies(path string) ([]types.AgentResult, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var deps []types.AgentResult
	if err := json.Unmarshal(data, &deps); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return deps, nil
}

func newSchemaCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "schema [AGENT_ID]",
		Short: "Print the JSON Schema of agent outputs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				k, ok := agents.Lookup(args[0])
				if !ok {
					return usageError{fmt.Errorf("%w: %q", orchestrator.ErrUnknownAgent, args[0])}
				}
				return emitJSON(cmd.OutOrStdout(), agents.JSONSchema(k), flags.jq)
			}
			all := make(map[string]any, len(agents.All()))
			for _, k := range agents.All() {
				all[k.ID()] = agents.JSONSchema(k)
			}
			return emitJSON(cmd.OutOrStdout(), all, flags.jq)
		},
	}
}

func newAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the agent catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return renderCatalog(cmd.OutOrStdout())
		},
	}
}

func newIndicatorsCmd(flags *globalFlags) *cobra.Command {
	var interval string
	var count int

	cmd := &cobra.Command{
		Use:   "indicators SYMBOL",
		Short: "Print technical indicators for the K-line window agents see",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := market.NormalizeSymbol(args[0])
			if symbol == "" {
				return orchestrator.ErrBlankSymbol
			}
			return withSystem(cmd, flags, func(ctx context.Context, sys *system) error {
				actx, err := orchestrator.NewContextBuilder(sys.data, nil).Build(ctx, symbol, interval, count, flags.source)
				if err != nil {
					return err
				}
				return emitJSON(cmd.OutOrStdout(), struct {
					Symbol     string      `json:"symbol"`
					Name       string      `json:"name"`
					Indicators ta.Snapshot `json:"indicators"`
				}{actx.Quote.Symbol, actx.Quote.Name, ta.Summarize(actx.KLines)}, flags.jq)
			})
		},
	}
	cmd.Flags().StringVar(&interval, "interval", orchestrator.DefaultInterval, "K-line interval")
	cmd.Flags().IntVar(&count, "count", orchestrator.DefaultBarCount, "K-line bar count (clamped to 10-120)")
	return cmd
}
