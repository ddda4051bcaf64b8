package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/KOMKZ/go-yogan-cache/config"
	"github.com/KOMKZ/go-yogan-cache/di"
	"github.com/KOMKZ/go-yogan-cache/flagx"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	Config  string        `flag:"config,c" usage:"settings file (yaml, json or toml)" default:"configs/cache.yaml"`
	DotEnv  string        `flag:"env-file" usage:".env file" default:".env"`
	Timeout time.Duration `flag:"timeout" usage:"deadline for one-shot commands" default:"10s"`
}

type runOptions struct {
	RequireRemote bool          `flag:"require-remote" usage:"fail when redis is unreachable at startup"`
	StopTimeout   time.Duration `flag:"stop-timeout" usage:"graceful shutdown deadline" default:"30s"`
}

type invalidateOptions struct {
	Tags []string `flag:"tags,t" usage:"tags to invalidate" required:"true"`
}

type deleteOptions struct {
	Key       string `flag:"key,k" usage:"cache key" required:"true"`
	Namespace string `flag:"namespace,n" usage:"key namespace"`
}

// stackOptions is replaced in tests.
var stackOptions = func() []di.StackOption {
	return nil
}

func newRootCmd() *cobra.Command {
	var global globalOptions
	root := &cobra.Command{
		Use:          "cachectl",
		Short:        "Run and inspect the tiered cache",
		SilenceUsage: true,
	}
	mustBind(flagx.BindPersistent(root, &global))

	root.AddCommand(
		newRunCmd(&global),
		newHealthCmd(&global),
		newStatsCmd(&global),
		newInvalidateCmd(&global),
		newDeleteCmd(&global),
		newClearCmd(&global),
	)
	return root
}

func newRunCmd(global *globalOptions) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Host the cache stack until SIGINT/SIGTERM",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := parseAll(cmd, global, &opts); err != nil {
				return err
			}
			app := di.NewApplication(
				di.WithConfigFile(global.Config),
				di.WithDotEnvFile(global.DotEnv),
				di.WithRequireRemote(opts.RequireRemote),
				di.WithStopTimeout(opts.StopTimeout),
				di.WithStackOptions(stackOptions()...),
			)
			return app.Run(cmd.Context())
		},
	}
	mustBind(flagx.Bind(cmd, &opts))
	return cmd
}

func newHealthCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Sample once and print the aggregated health report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStack(cmd, global, func(ctx context.Context, stack *di.Stack) error {
				stack.Monitor().CollectMetrics(ctx)
				resp := stack.Health().Check(ctx)
				if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
					return err
				}
				if !resp.IsHealthy() && !resp.IsDegraded() {
					return fmt.Errorf("cache is %s", resp.Status)
				}
				return nil
			})
		},
	}
}

func newStatsCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Sample once and print cache statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStack(cmd, global, func(ctx context.Context, stack *di.Stack) error {
				sample := stack.Monitor().CollectMetrics(ctx)
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"stats":  stack.Cache().Stats(),
					"sample": sample,
					"health": stack.Monitor().HealthStatus().Status,
				})
			})
		},
	}
}

func newInvalidateCmd(global *globalOptions) *cobra.Command {
	var opts invalidateOptions
	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Drop every entry carrying any of the given tags",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flagx.Parse(cmd, &opts); err != nil {
				return err
			}
			return withStack(cmd, global, func(ctx context.Context, stack *di.Stack) error {
				if err := stack.Cache().InvalidateByTags(ctx, opts.Tags...); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "invalidated tags %v\n", opts.Tags)
				return nil
			})
		},
	}
	mustBind(flagx.Bind(cmd, &opts))
	return cmd
}

func newDeleteCmd(global *globalOptions) *cobra.Command {
	var opts deleteOptions
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete one key from both tiers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flagx.Parse(cmd, &opts); err != nil {
				return err
			}
			return withStack(cmd, global, func(ctx context.Context, stack *di.Stack) error {
				if err := stack.Cache().Delete(ctx, opts.Key, opts.Namespace); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", opts.Key)
				return nil
			})
		},
	}
	mustBind(flagx.Bind(cmd, &opts))
	return cmd
}

func newClearCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry under the configured key prefix",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStack(cmd, global, func(ctx context.Context, stack *di.Stack) error {
				if err := stack.Cache().Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
				return nil
			})
		},
	}
}

// withStack builds and starts a stack for one command, then shuts it down.
func withStack(cmd *cobra.Command, global *globalOptions, fn func(context.Context, *di.Stack) error) error {
	if err := flagx.Parse(cmd, global); err != nil {
		return err
	}
	settings, err := config.Load(global.Config, global.DotEnv)
	if err != nil {
		return err
	}
	// one-shot commands never sample on a schedule and never see traffic
	settings.Monitor.Interval = time.Hour
	settings.Monitor.Alerts.SkipIdleHitRate = true

	stack, err := di.NewStack(settings, stackOptions()...)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), global.Timeout)
	defer cancel()
	defer func() { _ = stack.Shutdown(context.Background()) }()

	if err := stack.Start(ctx, false); err != nil {
		return err
	}
	return fn(ctx, stack)
}

func parseAll(cmd *cobra.Command, targets ...interface{}) error {
	for _, t := range targets {
		if err := flagx.Parse(cmd, t); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// mustBind panics on option structs that cannot be bound, a programming error.
func mustBind(err error) {
	if err != nil {
		panic(err)
	}
}
