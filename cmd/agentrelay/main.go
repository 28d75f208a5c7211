// Command agentrelay runs the multi-agent execution server. It is the
// composition root: every collaborator (generator, circuit breaker, invoker,
// runner, stores, HTTP server) is constructed here and injected explicitly.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/agentrelay/agentrelay/config"
	"github.com/agentrelay/agentrelay/core"
	"github.com/agentrelay/agentrelay/invoker"
	"github.com/agentrelay/agentrelay/logging"
	"github.com/agentrelay/agentrelay/model"
	"github.com/agentrelay/agentrelay/model/anthropic"
	"github.com/agentrelay/agentrelay/model/openai"
	"github.com/agentrelay/agentrelay/runner"
	"github.com/agentrelay/agentrelay/server"
	"github.com/agentrelay/agentrelay/session"
	"github.com/agentrelay/agentrelay/store"
	"github.com/agentrelay/agentrelay/uitool"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "agentrelay",
		Short:         "Multi-agent routing and session continuation server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	cmd.AddCommand(newServeCmd(&cfgFile))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("agentrelay %s\n", version)
		},
	}
}

func newServeCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(&logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: os.Stdout,
	})

	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}
	breaker := model.NewBreakerGenerator(gen, func(o *model.BreakerOptions) {
		o.Logger = logger.WithComponent("breaker")
	})

	persist, err := newPersistStore(cfg)
	if err != nil {
		return err
	}

	registry, err := newToolRegistry(cfg)
	if err != nil {
		return err
	}

	sessions := session.NewStore(func(o *session.Options) {
		o.MaxSessions = cfg.SessionCacheSize
		o.TTL = cfg.SessionTTL
		o.Logger = logger.WithComponent("session")
	})

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	promReg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := runner.MustNewMetrics(promReg)

	inv := invoker.New(breaker, func(o *invoker.Options) {
		o.Logger = logger.WithComponent("invoker")
	})

	r := runner.New(inv, func(o *runner.Options) {
		o.SessionStore = sessions
		o.PersistStore = persist
		o.ToolRegistry = registry
		o.Logger = logger.WithComponent("runner")
		o.Metrics = metrics
		o.MaxIterations = cfg.MaxIterations
		o.RecencyWindow = cfg.RecencyWindow
	})

	if cfg.SystemsDir != "" {
		if err := loadSystems(r, cfg.SystemsDir, logger); err != nil {
			return err
		}
	}

	srv := server.New(r, func(o *server.Options) {
		o.Recorder = session.NewRecorder(sessions, logger.WithComponent("recorder"))
		o.PersistStore = persist
		o.Tools = registry
		o.Logger = logger.WithComponent("server")
		o.MetricsRegistry = promReg
		o.CORSOrigins = cfg.CORSOrigins
	})

	return srv.Start(ctx, cfg.Addr)
}

func newGenerator(cfg *config.Config) (model.Generator, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewGenerator(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		}), nil
	case "anthropic":
		return anthropic.NewGenerator(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
		}), nil
	case "mock":
		// Echo generator for local development without API credentials.
		gen := model.NewMockGenerator()
		gen.Fallback = func(model.Request) (json.RawMessage, error) {
			return json.RawMessage(`{"response":"This is a development echo response.","routingDecision":"end"}`), nil
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func newPersistStore(cfg *config.Config) (store.Store, error) {
	if cfg.SQLitePath == "" {
		return store.NewMemory(), nil
	}
	return store.NewSQLite(cfg.SQLitePath)
}

func newToolRegistry(cfg *config.Config) (uitool.Registry, error) {
	if cfg.ToolsDir == "" {
		return uitool.NewMemory(), nil
	}
	return uitool.NewDir(cfg.ToolsDir)
}

// loadSystems registers every system spec file found in dir. Files that fail
// validation abort startup; a misconfigured system should be fixed, not
// silently skipped.
func loadSystems(r *runner.Runner, dir string, logger logging.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read systems dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		spec, err := core.LoadSystemSpec(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		if err := r.LoadSystem(spec); err != nil {
			return err
		}
		logger.Info("system loaded from file system_id=%s file=%s", spec.ID, entry.Name())
	}
	return nil
}
