package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"product_recommend/internal/catalog"
	"product_recommend/internal/history"
	"product_recommend/internal/logger"
	"product_recommend/internal/model"
	"product_recommend/internal/recommend"
	"product_recommend/internal/similarity"
	"product_recommend/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RequestIDHeader 请求 ID 的响应头
const RequestIDHeader = "X-Request-ID"

// UserIDHeader 可选的用户标识头，存在时推荐结果会异步写入行为日志
const UserIDHeader = "X-User-ID"

// Server 代表 HTTP API 服务器
type Server struct {
	router       *gin.Engine
	products     catalog.Store
	recommender  *recommend.Service
	historyStore history.Store
	defaultTopK  int
	allowOrigin  string
	httpServer   *http.Server
}

// Option 调整服务器的可选配置
type Option func(*Server)

// WithAllowOrigin 设置 CORS 允许的来源；为 "*" 时不允许携带凭证
func WithAllowOrigin(origin string) Option {
	return func(s *Server) {
		if origin != "" {
			s.allowOrigin = origin
		}
	}
}

// NewServer 创建新的 HTTP 服务器，hs 为 nil 时关闭行为日志接口
func NewServer(products catalog.Store, recommender *recommend.Service, hs history.Store, defaultTopK int, opts ...Option) *Server {
	if !logger.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}
	if defaultTopK <= 0 {
		defaultTopK = recommend.DefaultTopK
	}

	s := &Server{
		router:       gin.New(),
		products:     products,
		recommender:  recommender,
		historyStore: hs,
		defaultTopK:  defaultTopK,
		allowOrigin:  "*",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router.Use(gin.Recovery(), s.requestIDMiddleware(), s.accessLogMiddleware(), s.corsMiddleware())
	s.setupRoutes()
	return s
}

// Handler 返回底层 http.Handler，便于测试
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", s.allowOrigin)
		if s.allowOrigin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With, X-Request-ID, X-User-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware 复用调用方传入的请求 ID，否则生成一个新的
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (s *Server) accessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Ctx(c.Request.Context()).Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request handled")
	}
}

// Run 启动服务器，ctx 取消后优雅退出
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("Shutting down HTTP server...")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	products := s.router.Group("/products")
	products.GET("/", s.handleListProducts)
	products.POST("/", s.handleCreateProduct)
	products.GET("/:id", s.handleGetProduct)
	products.PUT("/:id", s.handleUpdateProduct)
	products.DELETE("/:id", s.handleDeleteProduct)
	products.GET("/:id/recommendations", s.handleProductRecommendations)

	v1 := s.router.Group("/api/v1")
	// 推荐接口 - 使用路径参数传递 scene
	v1.GET("/recommend/:scene/:id", s.handleSceneRecommendations)
	if s.historyStore != nil {
		v1.POST("/behaviors", s.handleSaveBehavior)
		v1.GET("/behaviors/:user_id", s.handleRecentBehaviors)
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the AI Product Recommendation API"})
}

func (s *Server) handleHealth(c *gin.Context) {
	if _, err := s.products.Count(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListProducts(c *gin.Context) {
	items, err := s.products.List(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) handleGetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	item, err := s.products.Get(c.Request.Context(), id)
	if err != nil {
		s.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) handleCreateProduct(c *gin.Context) {
	var item model.Item
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := s.products.Create(c.Request.Context(), &item); err != nil {
		if errors.Is(err, catalog.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("product %d already exists", item.ID)})
			return
		}
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) handleUpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var item model.Item
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := s.products.Update(c.Request.Context(), id, &item); err != nil {
		s.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) handleDeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.products.Delete(c.Request.Context(), id); err != nil {
		s.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleProductRecommendations 使用默认 pipeline
// GET /products/:id/recommendations?top_k=3
func (s *Server) handleProductRecommendations(c *gin.Context) {
	s.recommend(c, workflow.DefaultScene)
}

// handleSceneRecommendations 使用指定 scene 的 pipeline
// GET /api/v1/recommend/:scene/:id?top_k=3
func (s *Server) handleSceneRecommendations(c *gin.Context) {
	s.recommend(c, c.Param("scene"))
}

func (s *Server) recommend(c *gin.Context, scene string) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	topK := s.defaultTopK
	if raw, present := c.GetQuery("top_k"); present {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "top_k must be a non-negative integer"})
			return
		}
		topK = n
	}

	ctx := c.Request.Context()
	recs, err := s.recommender.Recommend(ctx, scene, id, topK)
	if err != nil {
		switch {
		case errors.Is(err, similarity.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		case errors.Is(err, workflow.ErrPipelineNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("scene '%s' not supported", scene)})
		case errors.Is(err, similarity.ErrMalformedCatalog):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			s.internalError(c, err)
		}
		return
	}

	// 异步记录推荐行为
	if userID, err := strconv.ParseInt(c.GetHeader(UserIDHeader), 10, 64); err == nil && s.historyStore != nil && len(recs) > 0 {
		records := make([]model.Behavior, 0, len(recs))
		for _, r := range recs {
			records = append(records, model.Behavior{UserID: userID, ProductID: r.ID, Action: "recommend"})
		}
		requestID := logger.RequestID(ctx)
		go func() {
			if err := s.historyStore.Save(records...); err != nil {
				logger.Error("Failed to save behaviors async (request %s): %v", requestID, err)
			}
		}()
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id":      id,
		"recommendations": recs,
	})
}

// handleSaveBehavior POST /api/v1/behaviors
func (s *Server) handleSaveBehavior(c *gin.Context) {
	var b model.Behavior
	if err := c.ShouldBindJSON(&b); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := s.historyStore.Save(b); err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

// handleRecentBehaviors GET /api/v1/behaviors/:user_id?days=7
func (s *Server) handleRecentBehaviors(c *gin.Context) {
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	days := 7
	if raw, present := c.GetQuery("days"); present {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = n
	}
	records, err := s.historyStore.GetRecent(userID, days)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "behaviors": records})
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s: %s", param, c.Param(param))})
		return 0, false
	}
	return id, true
}

func (s *Server) writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	s.internalError(c, err)
}

func (s *Server) internalError(c *gin.Context, err error) {
	logger.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
