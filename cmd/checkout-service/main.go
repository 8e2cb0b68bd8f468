// cmd/checkout-service/main.go
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/bekapono/shopping-cart/internal/pkg/bootstrap"
	"github.com/bekapono/shopping-cart/internal/pkg/config"
	"github.com/bekapono/shopping-cart/internal/pkg/httpclient"
	"github.com/bekapono/shopping-cart/internal/pkg/logger"
	"github.com/bekapono/shopping-cart/internal/pkg/metrics"
	"github.com/bekapono/shopping-cart/internal/pkg/mq"
	"github.com/bekapono/shopping-cart/internal/pkg/redis"
	inventoryapp "github.com/bekapono/shopping-cart/internal/service/inventory/application"
	inventoryport "github.com/bekapono/shopping-cart/internal/service/inventory/domain/port"
	inventoryinfra "github.com/bekapono/shopping-cart/internal/service/inventory/infrastructure"
	"github.com/bekapono/shopping-cart/internal/service/order/application"
	"github.com/bekapono/shopping-cart/internal/service/order/domain"
	"github.com/bekapono/shopping-cart/internal/service/order/domain/port"
	"github.com/bekapono/shopping-cart/internal/service/order/infrastructure"
	"github.com/bekapono/shopping-cart/internal/service/order/infrastructure/adapter"
	"github.com/bekapono/shopping-cart/internal/service/order/interfaces"
	"github.com/bekapono/shopping-cart/internal/zookeeper"
)

const serviceName = "checkout-service"

// productStore 是库存后端需要同时提供的能力：扣减、商品目录与初始化写入
type productStore interface {
	inventoryport.ProductStore
	port.ProductCatalog
	Put(ctx context.Context, p domain.Product, stock int) error
}

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("FATAL: failed to load config: %v", err)
	}
	if cfg.Service.Name == "" {
		cfg.Service.Name = serviceName
	}

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      cfg.Service.Name,
		Config:           cfg,
		RegisterHandlers: registerHandlers,
	})
}

func registerHandlers(app *bootstrap.AppCtx) error {
	ctx := app.Ctx
	cfg := app.Config
	tracer := otel.Tracer(cfg.Service.Name)
	m := metrics.New(prometheus.DefaultRegisterer)

	var db *gorm.DB
	if cfg.Inventory.Store == "mysql" || cfg.Checkout.OrderStore == "mysql" {
		var err error
		if db, err = gorm.Open(gormmysql.Open(cfg.Infra.MySQL.DSN()), &gorm.Config{}); err != nil {
			return fmt.Errorf("failed to connect to mysql: %w", err)
		}
		app.OnShutdown(func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
	}

	// 1. 库存
	store, reservations, err := buildInventoryStores(app, db)
	if err != nil {
		return err
	}
	for _, seed := range cfg.Inventory.Seed {
		product, err := domain.NewProduct(domain.ProductID(seed.ID), seed.Name, domain.Money(seed.Price))
		if err != nil {
			return fmt.Errorf("invalid seed product %q: %w", seed.ID, err)
		}
		if err := store.Put(ctx, product, seed.Stock); err != nil {
			return fmt.Errorf("failed to seed product %q: %w", seed.ID, err)
		}
	}
	locker, err := buildLocker(app)
	if err != nil {
		return err
	}
	inventory := inventoryapp.NewService(store, reservations, locker, cfg.Checkout.ReservationTTL,
		inventoryapp.WithTracer(tracer), inventoryapp.WithMetrics(m))

	// 2. 订单仓储
	var orderRepo domain.OrderRepository = infrastructure.NewMemoryRepository()
	if cfg.Checkout.OrderStore == "mysql" {
		repo := infrastructure.NewGormRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate orders table: %w", err)
		}
		orderRepo = repo
	}

	// 3. 支付网关
	var resolver httpclient.Resolver
	switch {
	case cfg.Payment.URL != "":
		resolver = httpclient.StaticResolver{cfg.Payment.ServiceName: cfg.Payment.URL}
	case app.Nacos != nil:
		resolver = app.Nacos
	default:
		return fmt.Errorf("payment service %q has neither a static url nor nacos discovery", cfg.Payment.ServiceName)
	}
	payment := adapter.NewPaymentHTTPAdapter(httpclient.NewClient(tracer, resolver), cfg.Payment.ServiceName, cfg.Payment.Timeout, m)

	// 4. 通知
	kafkaWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.Topic)
	app.OnShutdown(func(context.Context) error { return kafkaWriter.Close() })
	notifier := adapter.NewNotificationKafkaAdapter(kafkaWriter)

	svc := application.NewCheckoutService(orderRepo, adapter.NewLocalInventoryAdapter(inventory), payment, notifier, tracer, m)
	interfaces.NewOrderHandler(svc, store, inventory, prometheus.DefaultGatherer).RegisterRoutes(app.Mux)

	logger.L().Info().
		Str("inventory_store", cfg.Inventory.Store).
		Str("locker", cfg.Inventory.Locker).
		Str("order_store", cfg.Checkout.OrderStore).
		Dur("reservation_ttl", cfg.Checkout.ReservationTTL).
		Msg("✅ Checkout service wired")
	return nil
}

func buildInventoryStores(app *bootstrap.AppCtx, db *gorm.DB) (productStore, inventoryport.ReservationStore, error) {
	cfg := app.Config
	switch cfg.Inventory.Store {
	case "redis":
		client, err := redis.NewClient(app.Ctx, cfg.Infra.Redis.Addr, cfg.Infra.Redis.Password, cfg.Infra.Redis.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis client: %w", err)
		}
		app.OnShutdown(func(context.Context) error { return client.Close() })
		store, err := inventoryinfra.NewRedisStore(app.Ctx, client)
		if err != nil {
			return nil, nil, err
		}
		// 已结束的预占保留到 TTL 的两倍，便于排查
		return store, inventoryinfra.NewRedisReservationStore(client, 2*cfg.Checkout.ReservationTTL), nil
	case "mysql":
		store := inventoryinfra.NewGormStore(db)
		if err := store.Migrate(app.Ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate products table: %w", err)
		}
		// TODO: persist reservations in mysql; holds are process-local with this backend
		return store, inventoryinfra.NewMemoryReservationStore(), nil
	default:
		return inventoryinfra.NewMemoryStore(), inventoryinfra.NewMemoryReservationStore(), nil
	}
}

func buildLocker(app *bootstrap.AppCtx) (inventoryport.Locker, error) {
	cfg := app.Config
	if cfg.Inventory.Locker != "zookeeper" {
		return inventoryinfra.NewKeyedLocker(), nil
	}
	conn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, cfg.Infra.Zookeeper.SessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}
	app.OnShutdown(func(context.Context) error {
		conn.Close()
		return nil
	})
	return zookeeper.NewLocker(conn), nil
}
