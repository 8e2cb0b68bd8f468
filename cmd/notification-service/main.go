// cmd/notification-service/main.go
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/bekapono/shopping-cart/internal/pkg/bootstrap"
	"github.com/bekapono/shopping-cart/internal/pkg/config"
	"github.com/bekapono/shopping-cart/internal/pkg/mq"
	"github.com/bekapono/shopping-cart/internal/service/notification/application"
	"github.com/bekapono/shopping-cart/internal/service/notification/interfaces"
)

const (
	serviceName = "notification-service"
	defaultPort = 8083
	dltSuffix   = "-dlt"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("FATAL: failed to load config: %v", err)
	}
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
			kafkaCfg := app.Config.Infra.Kafka

			// 处理失败的消息转入死信主题
			dltWriter := mq.NewWriter(kafkaCfg.Brokers, kafkaCfg.Topic+dltSuffix)
			reader := mq.NewReader(kafkaCfg.Brokers, kafkaCfg.Topic, kafkaCfg.ConsumerGroup)

			consumer := interfaces.NewCheckoutEventConsumer(reader, kafkaCfg.Topic,
				application.NewNotificationService(application.LogSender{}), mq.NewDeadLetterHandler(dltWriter))
			consumer.Start(app.Ctx)

			app.OnShutdown(func(context.Context) error { return dltWriter.Close() })
			app.OnShutdown(func(context.Context) error { return consumer.Stop() })

			app.Mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			return nil
		},
	})
}
