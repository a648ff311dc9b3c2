package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"product_recommend/internal/catalog"
	"product_recommend/internal/explain"
	"product_recommend/internal/history"
	"product_recommend/internal/logger"
	"product_recommend/internal/model"
	"product_recommend/internal/server"
	"product_recommend/internal/workflow"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Fatal("%v", err)
	}
}

func newRootCmd() *cobra.Command {
	var (
		flags serverFlags
		cfg   *ServerConfig
	)

	rootCmd := &cobra.Command{
		Use:           "recommend",
		Short:         "Product recommendation service with LLM explanations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = InitServerConfig(&flags, cmd.Flags())
			if err != nil {
				return err
			}
			logger.SetDebug(cfg.Server.Debug)
			return nil
		},
	}
	flags.register(rootCmd.PersistentFlags())

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the catalog database and import the seed CSV if it is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), cfg)
		},
	}

	var (
		topK  int
		scene string
	)
	recommendCmd := &cobra.Command{
		Use:   "recommend <product-id>",
		Short: "Print recommendations for a product as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid product id: %s", args[0])
			}
			return runRecommend(cmd.Context(), cfg, scene, id, recommendTopK(cmd.Flags(), topK, cfg))
		},
	}
	recommendCmd.Flags().IntVar(&topK, "top-k", 3, "Number of recommendations (default: recommend.default_top_k)")
	recommendCmd.Flags().StringVar(&scene, "scene", workflow.DefaultScene, "Pipeline scene")

	explainCheckCmd := &cobra.Command{
		Use:   "explain-check",
		Short: "Verify the explanation LLM connection with a sample pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplainCheck(cmd.Context(), cfg)
		},
	}

	rootCmd.AddCommand(serveCmd, seedCmd, recommendCmd, explainCheckCmd)
	return rootCmd
}

func runServe(ctx context.Context, cfg *ServerConfig) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var historyStore history.Store
	if cfg.Paths.Behaviors != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Paths.Behaviors), 0755); err != nil {
			return fmt.Errorf("failed to create behavior log directory: %w", err)
		}
		fs, err := history.NewFileStore(cfg.Paths.Behaviors)
		if err != nil {
			return fmt.Errorf("failed to init behavior log: %w", err)
		}
		if days := cfg.Recommend.BehaviorRetentionDays; days > 0 {
			go runCleanup(ctx, fs, days)
		}
		historyStore = fs
	}

	srv := server.NewServer(a.store, a.recommender, historyStore, cfg.Recommend.DefaultTopK,
		server.WithAllowOrigin(cfg.Server.AllowOrigin))
	logger.Info("Starting HTTP server on port %s...", cfg.Server.Port)
	return srv.Run(ctx, ":"+cfg.Server.Port)
}

// runCleanup 启动时和之后每天清理一次过期的行为记录
func runCleanup(ctx context.Context, fs *history.FileStore, retentionDays int) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		if err := fs.Cleanup(retentionDays); err != nil {
			logger.Error("Behavior log cleanup failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runSeed(ctx context.Context, cfg *ServerConfig) error {
	store, err := catalog.NewSQLiteStore(cfg.Paths.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := catalog.SeedFromCSV(ctx, store, cfg.Paths.SeedCSV)
	if err != nil {
		return err
	}
	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Inserted %d products, catalog now has %d\n", n, total)
	return nil
}

// recommendTopK 未显式传入 --top-k 时使用配置文件中的 default_top_k
func recommendTopK(fs *pflag.FlagSet, topK int, cfg *ServerConfig) int {
	if fs.Changed("top-k") || cfg.Recommend.DefaultTopK <= 0 {
		return topK
	}
	return cfg.Recommend.DefaultTopK
}

func runRecommend(ctx context.Context, cfg *ServerConfig, scene string, id int64, topK int) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	recs, err := a.recommender.Recommend(ctx, scene, id, topK)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"product_id":      id,
		"recommendations": recs,
	})
}

func runExplainCheck(ctx context.Context, cfg *ServerConfig) error {
	client, err := buildLLMClient(cfg)
	if err != nil {
		return err
	}
	if client == nil {
		return fmt.Errorf("cannot run check: llm '%s' is not configured", cfg.Recommend.LLMKey)
	}

	source := model.Item{
		Title:       "Ergonomic Keyboard",
		Description: "A split keyboard designed to reduce wrist strain during long typing sessions.",
	}
	candidate := model.Item{
		Title:       "Vertical Mouse",
		Description: "A mouse that keeps your hand in a natural handshake position to prevent fatigue.",
	}

	gen := explain.NewLLMGenerator(client, time.Duration(cfg.Recommend.ExplainTimeoutMs)*time.Millisecond)
	res := gen.Generate(ctx, source, candidate)
	if res.Kind != explain.KindOK {
		return fmt.Errorf("explanation check failed (%s): %v", res.Kind, res.Err)
	}
	fmt.Printf("Source: %s\nRecommended: %s\nExplanation: %s\n", source.Title, candidate.Title, res.Text)
	return nil
}
