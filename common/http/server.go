package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/namanjh/socket-huddlegames/common/log"

	"github.com/gin-gonic/gin"
)

type HandlerFunc func(*Context) error
type MiddlewareFunc func(*Context) error

// HttpServer HTTP 服务器封装
type HttpServer struct {
	engine *gin.Engine
	server *http.Server
	port   int
}

// ServerOption 服务器配置选项
type ServerOption func(*HttpServer)

func WithPort(port int) ServerOption {
	return func(s *HttpServer) {
		s.port = port
	}
}

// WithMode 设置 gin 运行模式，gin.ReleaseMode / gin.DebugMode / gin.TestMode
func WithMode(mode string) ServerOption {
	return func(s *HttpServer) {
		gin.SetMode(mode)
	}
}

// NewHttpServer 创建 HTTP 服务器
func NewHttpServer(opts ...ServerOption) *HttpServer {
	s := &HttpServer{port: 4000}
	for _, opt := range opts {
		opt(s)
	}
	// 选项里可能修改 gin 模式，所以 engine 最后创建
	s.engine = gin.New()
	s.engine.Use(gin.CustomRecovery(func(c *gin.Context, err any) {
		log.Error("HTTP panic recovered: %s %s, err: %v", c.Request.Method, c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, NewResponse(CodeServerError, MsgServerError, nil))
	}))
	return s
}

// wrapHandler 包装处理函数，返回的错误统一转成 500
func (s *HttpServer) wrapHandler(handler HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := newContext(c)
		if err := handler(ctx); err != nil {
			log.Warn("HTTP %s %s 处理失败: %v", c.Request.Method, c.Request.URL.Path, err)
			ctx.InternalServerError(err.Error())
		}
	}
}

// wrapMiddleware 包装中间件，中间件中止请求后不再继续
func (s *HttpServer) wrapMiddleware(middleware MiddlewareFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := newContext(c)
		if err := middleware(ctx); err != nil {
			ctx.InternalServerError(err.Error())
			c.Abort()
			return
		}
		if !c.IsAborted() {
			c.Next()
		}
	}
}

func (s *HttpServer) GET(path string, handler HandlerFunc) {
	s.engine.GET(path, s.wrapHandler(handler))
}

func (s *HttpServer) POST(path string, handler HandlerFunc) {
	s.engine.POST(path, s.wrapHandler(handler))
}

// Handle 挂载原生 http.HandlerFunc，用于 websocket 升级这类需要直接操作 ResponseWriter 的场景
func (s *HttpServer) Handle(method, path string, handler http.HandlerFunc) {
	s.engine.Handle(method, path, gin.WrapF(handler))
}

// Use 添加全局中间件，必须在注册路由之前调用
func (s *HttpServer) Use(middlewares ...MiddlewareFunc) {
	for _, middleware := range middlewares {
		s.engine.Use(s.wrapMiddleware(middleware))
	}
}

// Handler 返回底层 http.Handler，测试时配合 httptest 使用
func (s *HttpServer) Handler() http.Handler {
	return s.engine
}

func (s *HttpServer) Addr() string {
	return fmt.Sprintf(":%d", s.port)
}

// Start 启动服务器，阻塞直到 Shutdown
func (s *HttpServer) Start() error {
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭，不会中断已经升级的 websocket，长连接需要各自关闭
func (s *HttpServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
