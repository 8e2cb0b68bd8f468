// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bekapono/shopping-cart/internal/pkg/config"
	"github.com/bekapono/shopping-cart/internal/pkg/logger"
	"github.com/bekapono/shopping-cart/internal/pkg/nacos"
	"github.com/bekapono/shopping-cart/internal/tracing"
)

const shutdownTimeout = 10 * time.Second

// AppCtx 是服务注册路由与后台任务时拿到的运行时上下文
type AppCtx struct {
	// Ctx 在收到退出信号或任一后台任务失败时取消
	Ctx    context.Context
	Mux    *http.ServeMux
	Nacos  *nacos.Client // 未启用 Nacos 时为 nil
	Config *config.Config

	group *errgroup.Group

	mu      sync.Mutex
	closers []func(ctx context.Context) error
}

// Go 在服务的生命周期内运行一个后台任务，返回错误会触发整体关停
func (a *AppCtx) Go(fn func(ctx context.Context) error) {
	a.group.Go(func() error { return fn(a.Ctx) })
}

// OnShutdown 注册关停时的清理函数，按注册的逆序执行
func (a *AppCtx) OnShutdown(fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Config           *config.Config
	RegisterHandlers func(app *AppCtx) error // 允许每个服务注册自己独特的 HTTP 路由与后台任务
}

// StartService 封装了所有微服务的通用启动和优雅关停逻辑，收到 SIGINT/SIGTERM 后返回。
func StartService(info AppInfo) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, info); err != nil {
		log.Fatalf("FATAL: service %s exited with error: %v", info.ServiceName, err)
	}
}

// Run 启动服务并阻塞到 ctx 取消或出现致命错误
func Run(ctx context.Context, info AppInfo) error {
	cfg := info.Config
	logger.Init(info.ServiceName, cfg.Service.LogLevel)

	// 1. Tracer，未配置 endpoint 时使用全局的空实现
	shutdownTracer := func(context.Context) error { return nil }
	if cfg.Infra.Jaeger.Endpoint != "" {
		tp, err := tracing.InitTracerProvider(config.ServiceConfig{Name: info.ServiceName, Port: cfg.Service.Port}, cfg.Infra.Jaeger)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer provider: %w", err)
		}
		shutdownTracer = tp.Shutdown
	}

	g, gctx := errgroup.WithContext(ctx)
	app := &AppCtx{Ctx: gctx, Mux: http.NewServeMux(), Config: cfg, group: g}

	// 2. 服务注册
	var ip string
	if cfg.Infra.Nacos.Enabled {
		namingClient, err := nacos.NewNacosClient(cfg.Infra.Nacos.Addrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			return fmt.Errorf("failed to initialize nacos client: %w", err)
		}
		app.Nacos = namingClient

		if ip, err = GetOutboundIP(); err != nil {
			return fmt.Errorf("failed to get outbound IP address: %w", err)
		}
		if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, cfg.Service.Port); err != nil {
			return fmt.Errorf("failed to register service with nacos: %w", err)
		}
	}

	if info.RegisterHandlers != nil {
		if err := info.RegisterHandlers(app); err != nil {
			app.shutdown(info.ServiceName, ip, nil, shutdownTracer)
			return err
		}
	}

	// 3. HTTP Server
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Service.Port),
		Handler:           app.Mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		logger.L().Info().Str("addr", server.Addr).Msgf("✅ %s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", server.Addr, err)
		}
		return nil
	})

	// 4. 优雅关停
	g.Go(func() error {
		<-gctx.Done()
		logger.L().Info().Msgf("🛑 Shutting down service %s...", info.ServiceName)
		app.shutdown(info.ServiceName, ip, server, shutdownTracer)
		return nil
	})

	return g.Wait()
}

// shutdown 按启动的逆序清理：注销 -> HTTP -> 业务资源 -> Tracer
func (a *AppCtx) shutdown(serviceName, ip string, server *http.Server, shutdownTracer func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	l := logger.L()

	if a.Nacos != nil {
		if err := a.Nacos.DeregisterServiceInstance(serviceName, ip, a.Config.Service.Port); err != nil {
			l.Error().Err(err).Msg("Error deregistering from Nacos")
		} else {
			l.Info().Msgf("Service %s deregistered from Nacos.", serviceName)
		}
		a.Nacos.Close()
	}

	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			l.Error().Err(err).Msg("Error shutting down http server")
		} else {
			l.Info().Msg("HTTP server shut down.")
		}
	}

	a.mu.Lock()
	closers := a.closers
	a.mu.Unlock()
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			l.Error().Err(err).Msg("Error during shutdown")
		}
	}

	// 关闭 Tracer Provider，确保所有缓冲的 trace 都被发送出去
	if err := shutdownTracer(ctx); err != nil {
		l.Error().Err(err).Msg("Error shutting down tracer provider")
	}
	l.Info().Msgf("Service %s gracefully shut down.", serviceName)
}

// GetOutboundIP 返回访问外网时使用的本机地址，不会真正发送数据
func GetOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
