package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"product_recommend/internal/logger"
)

// ErrPipelineNotFound 请求的 scene 没有对应的 pipeline
var ErrPipelineNotFound = errors.New("pipeline not found")

// DefaultScene 未指定 scene 时使用的 pipeline
const DefaultScene = "similar"

// PipelineConfig 单个 Pipeline 的配置
type PipelineConfig struct {
	Description string       `json:"description"`
	TimeoutMs   int          `json:"timeout_ms"`
	Nodes       []NodeConfig `json:"nodes"`
}

// NodeConfig 节点的配置片段
type NodeConfig struct {
	Name   string                 `json:"name"`
	Type   string                 `json:"type"`
	Config map[string]interface{} `json:"config"`
}

// GlobalConfig 整个配置文件的结构
type GlobalConfig struct {
	Pipelines map[string]PipelineConfig `json:"pipelines"`
}

// DefaultConfig 内置 pipeline: TF-IDF 排序后生成解释
func DefaultConfig() *GlobalConfig {
	return &GlobalConfig{
		Pipelines: map[string]PipelineConfig{
			DefaultScene: {
				Description: "Description similarity with generated explanations",
				Nodes: []NodeConfig{
					{Name: "tfidf", Type: "rank_tfidf"},
					{Name: "explain", Type: "explain"},
				},
			},
		},
	}
}

// LoadConfig 读取 pipeline 配置；文件不存在时返回内置配置
func LoadConfig(path string) (*GlobalConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("Pipeline config '%s' not found, using built-in pipelines", path)
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline config: %w", err)
	}

	var globalCfg GlobalConfig
	if err := json.Unmarshal(data, &globalCfg); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline config: %w", err)
	}
	return &globalCfg, nil
}

// NodeFactory 创建 Node 的函数签名
type NodeFactory func(config NodeConfig) (Node, error)

// Registry 节点注册表
type Registry struct {
	factories map[string]NodeFactory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]NodeFactory),
	}
}

// Register 注册一个新的节点类型
func (r *Registry) Register(nodeType string, factory NodeFactory) {
	r.factories[nodeType] = factory
}

// CreateNode 根据配置创建节点实例
func (r *Registry) CreateNode(cfg NodeConfig) (Node, error) {
	factory, ok := r.factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", cfg.Type)
	}
	return factory(cfg)
}

// Engine 流程引擎
type Engine struct {
	pipelines map[string][]Node // scene -> nodes
	timeouts  map[string]time.Duration
	registry  *Registry
}

// NewEngine 根据配置创建引擎
func NewEngine(globalCfg *GlobalConfig, registry *Registry) (*Engine, error) {
	engine := &Engine{
		pipelines: make(map[string][]Node),
		timeouts:  make(map[string]time.Duration),
		registry:  registry,
	}

	for scene, pipeCfg := range globalCfg.Pipelines {
		var nodes []Node
		for _, nodeCfg := range pipeCfg.Nodes {
			node, err := registry.CreateNode(nodeCfg)
			if err != nil {
				return nil, fmt.Errorf("failed to create node '%s' in pipeline '%s': %w", nodeCfg.Name, scene, err)
			}
			nodes = append(nodes, node)
		}
		engine.pipelines[scene] = nodes
		if pipeCfg.TimeoutMs > 0 {
			engine.timeouts[scene] = time.Duration(pipeCfg.TimeoutMs) * time.Millisecond
		}
	}

	return engine, nil
}

// HasScene 判断 scene 是否已配置
func (e *Engine) HasScene(scene string) bool {
	_, ok := e.pipelines[scene]
	return ok
}

// Timeout 返回 scene 配置的超时，未配置时为 0
func (e *Engine) Timeout(scene string) time.Duration {
	return e.timeouts[scene]
}

// Run 执行指定场景的推荐流程
func (e *Engine) Run(ctx *Context, scene string) error {
	nodes, ok := e.pipelines[scene]
	if !ok {
		return fmt.Errorf("%w for scene: %s", ErrPipelineNotFound, scene)
	}

	ctx.AddLog(fmt.Sprintf("Starting pipeline execution for scene: %s", scene))

	for _, node := range nodes {
		ctx.AddLog(fmt.Sprintf("Executing node: %s (%s)", node.Name(), node.Type()))
		if err := node.Execute(ctx); err != nil {
			ctx.AddLog(fmt.Sprintf("Node execution failed: %v", err))
			return err
		}
	}

	ctx.AddLog("Pipeline execution completed")
	return nil
}
