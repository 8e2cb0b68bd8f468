// cmd/payment-service/main.go
package main

import (
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/bekapono/shopping-cart/internal/pkg/bootstrap"
	"github.com/bekapono/shopping-cart/internal/pkg/config"
	"github.com/bekapono/shopping-cart/internal/pkg/logger"
	"github.com/bekapono/shopping-cart/internal/pkg/metrics"
	"github.com/bekapono/shopping-cart/internal/service/payment/application"
	"github.com/bekapono/shopping-cart/internal/service/payment/domain"
	"github.com/bekapono/shopping-cart/internal/service/payment/infrastructure/rule"
	"github.com/bekapono/shopping-cart/internal/service/payment/interfaces"
)

const (
	serviceName = "payment-service"
	defaultPort = 8090
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("FATAL: failed to load config: %v", err)
	}
	// 共享配置的默认值属于 checkout-service
	if cfg.Service.Name == "" || cfg.Service.Name == config.Default().Service.Name {
		cfg.Service.Name = serviceName
	}
	if cfg.Service.Port == config.Default().Service.Port {
		cfg.Service.Port = defaultPort
	}

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: cfg.Service.Name,
		Config:      cfg,
		RegisterHandlers: func(app *bootstrap.AppCtx) error {
			engine, err := rule.NewCELRuleEngine()
			if err != nil {
				return err
			}
			declineRule := app.Config.Payment.DeclineRule
			if declineRule == "" {
				declineRule = domain.DefaultDeclineRule
			}
			// 启动时编译，错误的规则让服务直接启动失败
			if err := engine.Compile(declineRule); err != nil {
				return fmt.Errorf("invalid decline rule: %w", err)
			}

			policy := domain.DeclinePolicy{Rule: declineRule, Engine: engine}
			svc := application.NewPaymentService(policy, otel.Tracer(app.Config.Service.Name), metrics.New(prometheus.DefaultRegisterer))
			interfaces.NewPaymentHandler(svc, prometheus.DefaultGatherer).RegisterRoutes(app.Mux)

			logger.L().Info().Str("decline_rule", declineRule).Msg("✅ Payment service wired")
			return nil
		},
	})
}
