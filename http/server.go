// Package http 提供本地看板HTTP服务器
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"exohabit/animation"
	"exohabit/config"
	"exohabit/controller"
	"exohabit/monitoring"
)

const maxBodyBytes = 64 << 10

// Server HTTP服务器
type Server struct {
	server  *http.Server
	config  ServerConfig
	logger  *zap.Logger
	scorer  controller.Scorer
	ctrl    *controller.Controller
	display *monitoring.Display
	hub     *monitoring.Hub
	metrics *monitoring.MetricsCollector
	form    *Form
	tasks   []*animation.Task

	bgOnce sync.Once
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int
	AllowedOrigins []string
	RankLimit      int
	Placeholder    string
	HistorySize    int
	TypingInterval time.Duration
	RadarInterval  time.Duration
	PulseInterval  time.Duration
	BootDelay      time.Duration
	ReadTimeout    time.Duration
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfigFrom(config.Default())
}

// ServerConfigFrom 从配置文件生成服务器配置
func ServerConfigFrom(c *config.Config) ServerConfig {
	return ServerConfig{
		Port:           c.HTTP.Port,
		AllowedOrigins: c.HTTP.AllowedOrigins,
		RankLimit:      c.API.RankLimit,
		Placeholder:    c.Display.PredictionPlaceholder,
		HistorySize:    c.Display.HistorySize,
		TypingInterval: c.Display.TypingInterval,
		RadarInterval:  c.Display.RadarInterval,
		PulseInterval:  c.Display.PulseInterval,
		BootDelay:      c.Display.BootDelay,
		ReadTimeout:    30 * time.Second,
	}
}

// NewServer 创建HTTP服务器
func NewServer(cfg ServerConfig, scorer controller.Scorer, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	hub := monitoring.NewHub(logger, cfg.AllowedOrigins)
	display := monitoring.NewDisplay(cfg.Placeholder, cfg.HistorySize, hub, logger)
	hub.SetGreeting(func() any { return display.Snapshot() })

	form := NewForm()
	ctrl := controller.New(form, scorer, display, logger)
	ctrl.SetRankLimit(cfg.RankLimit)

	s := &Server{
		config:  cfg,
		logger:  logger,
		scorer:  scorer,
		ctrl:    ctrl,
		display: display,
		hub:     hub,
		metrics: monitoring.NewMetricsCollector(hub),
		form:    form,
	}

	tasks := []struct {
		name     string
		interval time.Duration
		fn       animation.TaskFunc
	}{
		{"typing", cfg.TypingInterval, func() bool { display.StepTyping(); return true }},
		{"radar", cfg.RadarInterval, func() bool { display.AdvanceRadar(); return true }},
		{"pulse", cfg.PulseInterval, func() bool { display.Heartbeat(time.Now()); return true }},
	}
	for _, t := range tasks {
		task, err := animation.NewTask(t.name, t.interval, t.fn)
		if err != nil {
			return nil, fmt.Errorf("%s animation: %w", t.name, err)
		}
		s.tasks = append(s.tasks, task)
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	chain := Chain(
		RecoveryMiddleware(logger),
		LoggerMiddleware(logger),
		SecurityHeadersMiddleware,
		CORSMiddleware(cfg.AllowedOrigins),
		RequestSizeMiddleware(maxBodyBytes),
	)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           chain(mux),
		ReadHeaderTimeout: cfg.ReadTimeout,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Handler 返回带中间件的处理器
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Controller 返回请求控制器
func (s *Server) Controller() *controller.Controller {
	return s.ctrl
}

// Display 返回显示状态
func (s *Server) Display() *monitoring.Display {
	return s.display
}

// Run 启动服务器，ctx结束时优雅关闭
func (s *Server) Run(ctx context.Context) error {
	s.startBackground(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting dashboard server",
			zap.String("addr", s.server.Addr),
			zap.String("websocket", "/api/ws/dashboard"))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.stopAnimations()
		return err
	case <-ctx.Done():
	}
	return s.Stop()
}

// Stop 停止服务器
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down dashboard server")
	s.ctrl.Cancel()
	s.stopAnimations()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// ApplyDisplay 按新配置调整动画间隔
func (s *Server) ApplyDisplay(d config.Display) error {
	intervals := map[string]time.Duration{
		"typing": d.TypingInterval,
		"radar":  d.RadarInterval,
		"pulse":  d.PulseInterval,
	}
	for _, t := range s.tasks {
		if err := t.SetInterval(intervals[t.Name()]); err != nil {
			return err
		}
	}
	return nil
}

// Metrics 返回指标收集器
func (s *Server) Metrics() *monitoring.MetricsCollector {
	return s.metrics
}

// Addr 返回服务器地址
func (s *Server) Addr() string {
	return s.server.Addr
}

// startBackground 启动推送中心、启动探测和动画
func (s *Server) startBackground(ctx context.Context) {
	s.bgOnce.Do(func() {
		go s.hub.Run(ctx)
		go s.ctrl.Boot(ctx)

		go func() {
			timer := time.NewTimer(s.config.BootDelay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			for _, t := range s.tasks {
				if err := t.Start(); err != nil {
					s.logger.Warn("animation not started", zap.String("task", t.Name()), zap.Error(err))
				}
			}
			<-ctx.Done()
			s.stopAnimations()
		}()
	})
}

func (s *Server) stopAnimations() {
	for _, t := range s.tasks {
		if t.IsRunning() {
			_ = t.Stop()
		}
	}
}
