package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"product_recommend/internal/catalog"
	"product_recommend/internal/explain"
	"product_recommend/internal/logger"
	"product_recommend/internal/nodes"
	"product_recommend/internal/recommend"
	"product_recommend/internal/workflow"
	"product_recommend/pkg/llm"
)

// RegisterNodes 注册所有可用的 Workflow 节点
func RegisterNodes(explainer nodes.Explainer) *workflow.Registry {
	registry := workflow.NewRegistry()

	// 注册 TF-IDF 排序 (召回 + 打分)
	registry.Register("rank_tfidf", nodes.NewTFIDFRankNode)

	// 注册类目过滤
	registry.Register("filter_category", nodes.NewCategoryFilterNode)

	// 注册 Rank
	registry.Register("rank_simple", nodes.NewSimpleRankNode)

	// 注册解释节点 (使用闭包注入 explainer)
	registry.Register("explain", func(cfg workflow.NodeConfig) (workflow.Node, error) {
		return nodes.NewExplainNode(cfg, explainer)
	})

	return registry
}

// buildLLMClient 按 server.yaml 中的 llm_key 构造客户端；未配置时返回 nil, nil
func buildLLMClient(srvCfg *ServerConfig) (llm.Client, error) {
	llmCfg, err := loadLLMConfig(srvCfg.Paths.LLM)
	if err != nil {
		return nil, err
	}

	cred := llmCfg.resolveLLM(srvCfg.Recommend.LLMKey)
	client, err := llm.New(cred)
	if errors.Is(err, llm.ErrNotConfigured) {
		logger.Error("LLM '%s' has no api key; explanations will use the fallback text", srvCfg.Recommend.LLMKey)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to init llm client '%s': %w", srvCfg.Recommend.LLMKey, err)
	}
	logger.Info("LLM '%s' configured (provider %s)", srvCfg.Recommend.LLMKey, cred.Provider)
	return client, nil
}

// buildCoordinator 组装 LLM -> 熔断 -> 兜底 的解释链路
func buildCoordinator(srvCfg *ServerConfig, client llm.Client) *explain.Coordinator {
	gen := explain.NewLLMGenerator(client, time.Duration(srvCfg.Recommend.ExplainTimeoutMs)*time.Millisecond)
	if !gen.Configured() {
		return explain.NewCoordinator(gen)
	}
	return explain.NewCoordinator(explain.NewBreakerGenerator(gen, explain.BreakerConfig{
		FailureThreshold: srvCfg.Recommend.BreakerThreshold,
		Timeout:          time.Duration(srvCfg.Recommend.BreakerOpenMs) * time.Millisecond,
	}))
}

// app 持有一次进程运行所需的全部组件
type app struct {
	cfg         *ServerConfig
	store       *catalog.SQLiteStore
	recommender *recommend.Service
}

// newApp 打开目录、导入种子数据并初始化推荐 pipeline
func newApp(ctx context.Context, cfg *ServerConfig) (*app, error) {
	store, err := catalog.NewSQLiteStore(cfg.Paths.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to init catalog: %w", err)
	}

	if cfg.Paths.SeedCSV != "" {
		if _, err := catalog.SeedFromCSV(ctx, store, cfg.Paths.SeedCSV); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
	}

	client, err := buildLLMClient(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	registry := RegisterNodes(buildCoordinator(cfg, client))

	pipelines, err := workflow.LoadConfig(cfg.Paths.Pipelines)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load pipelines: %w", err)
	}
	engine, err := workflow.NewEngine(pipelines, registry)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to init engine: %w", err)
	}

	return &app{
		cfg:         cfg,
		store:       store,
		recommender: recommend.NewService(store, engine),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
