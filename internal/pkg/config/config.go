// internal/pkg/config/config.go
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

// Config 是所有服务共享的配置结构，先读 YAML，再由环境变量覆盖
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Checkout  CheckoutConfig  `yaml:"checkout"`
	Inventory InventoryConfig `yaml:"inventory"`
	Payment   PaymentConfig   `yaml:"payment"`
	Infra     InfraConfig     `yaml:"infra"`
}

type ServiceConfig struct {
	Name     string `yaml:"name"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

type CheckoutConfig struct {
	ReservationTTL time.Duration `yaml:"reservation_ttl"`
	// OrderStore: memory | mysql
	OrderStore string `yaml:"order_store"`
}

type InventoryConfig struct {
	// Store: memory | redis | mysql
	Store string `yaml:"store"`
	// Locker: local | zookeeper
	Locker string        `yaml:"locker"`
	Seed   []SeedProduct `yaml:"seed"`
}

// SeedProduct 启动时写入商品库的初始数据
type SeedProduct struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Price int64  `yaml:"price"` // 分
	Stock int    `yaml:"stock"`
}

type PaymentConfig struct {
	ServiceName string `yaml:"service_name"`
	// URL 不为空时直接调用，否则通过 Nacos 发现 ServiceName
	URL         string        `yaml:"url"`
	Timeout     time.Duration `yaml:"timeout"`
	DeclineRule string        `yaml:"decline_rule"`
}

type InfraConfig struct {
	Redis     RedisConfig     `yaml:"redis"`
	MySQL     MySQLConfig     `yaml:"mysql"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Jaeger    JaegerConfig    `yaml:"jaeger"`
	Nacos     NacosConfig     `yaml:"nacos"`
	Zookeeper ZookeeperConfig `yaml:"zookeeper"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	Topic         string   `yaml:"topic"`
	ConsumerGroup string   `yaml:"consumer_group"`
}

type JaegerConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type NacosConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addrs     string `yaml:"addrs"`
	Namespace string `yaml:"namespace"`
	Group     string `yaml:"group"`
}

type ZookeeperConfig struct {
	Servers        []string      `yaml:"servers"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

// Default 返回本地开发用的默认配置
func Default() *Config {
	return &Config{
		Service: ServiceConfig{Name: "checkout-service", Port: 8080, LogLevel: "info"},
		Checkout: CheckoutConfig{
			ReservationTTL: 15 * time.Minute,
			OrderStore:     "memory",
		},
		Inventory: InventoryConfig{Store: "memory", Locker: "local"},
		Payment: PaymentConfig{
			ServiceName: "payment-service",
			Timeout:     3 * time.Second,
			DeclineRule: "amount > 100000",
		},
		Infra: InfraConfig{
			Redis:     RedisConfig{Addr: "localhost:6379"},
			MySQL:     MySQLConfig{Host: "localhost", Port: 3306, User: "root", Database: "shopping_cart"},
			Kafka:     KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "checkout-events", ConsumerGroup: "notification-service"},
			Jaeger:    JaegerConfig{Endpoint: "http://localhost:14268/api/traces", SampleRatio: 1},
			Nacos:     NacosConfig{Addrs: "localhost:8848", Group: "DEFAULT_GROUP"},
			Zookeeper: ZookeeperConfig{Servers: []string{"localhost:2181"}, SessionTimeout: 5 * time.Second},
		},
	}
}

// Load 读取 path 指向的 YAML (为空则跳过)，然后应用环境变量覆盖
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv 使用 CONFIG_FILE 环境变量指定的文件
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv("CONFIG_FILE"))
}

func (c *Config) applyEnv() error {
	c.Service.Name = getEnv("SERVICE_NAME", c.Service.Name)
	c.Service.LogLevel = getEnv("LOG_LEVEL", c.Service.LogLevel)
	c.Checkout.OrderStore = getEnv("ORDER_STORE", c.Checkout.OrderStore)
	c.Inventory.Store = getEnv("INVENTORY_STORE", c.Inventory.Store)
	c.Inventory.Locker = getEnv("INVENTORY_LOCKER", c.Inventory.Locker)
	c.Payment.URL = getEnv("PAYMENT_SERVICE_URL", c.Payment.URL)
	c.Payment.DeclineRule = getEnv("PAYMENT_DECLINE_RULE", c.Payment.DeclineRule)
	c.Infra.Redis.Addr = getEnv("REDIS_ADDR", c.Infra.Redis.Addr)
	c.Infra.Redis.Password = getEnv("REDIS_PASSWORD", c.Infra.Redis.Password)
	c.Infra.MySQL.Host = getEnv("MYSQL_HOST", c.Infra.MySQL.Host)
	c.Infra.MySQL.User = getEnv("MYSQL_USER", c.Infra.MySQL.User)
	c.Infra.MySQL.Password = getEnv("MYSQL_PASSWORD", c.Infra.MySQL.Password)
	c.Infra.MySQL.Database = getEnv("MYSQL_DATABASE", c.Infra.MySQL.Database)
	c.Infra.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Infra.Kafka.Topic)
	c.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", c.Infra.Jaeger.Endpoint)
	c.Infra.Nacos.Addrs = getEnv("NACOS_SERVER_ADDRS", c.Infra.Nacos.Addrs)
	c.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", c.Infra.Nacos.Namespace)
	c.Infra.Nacos.Group = getEnv("NACOS_GROUP", c.Infra.Nacos.Group)

	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		c.Infra.Kafka.Brokers = splitList(v)
	}
	if v := getEnv("ZOOKEEPER_SERVERS", ""); v != "" {
		c.Infra.Zookeeper.Servers = splitList(v)
	}

	var err error
	if c.Service.Port, err = getEnvInt("PORT", c.Service.Port); err != nil {
		return err
	}
	if c.Infra.MySQL.Port, err = getEnvInt("MYSQL_PORT", c.Infra.MySQL.Port); err != nil {
		return err
	}
	if c.Checkout.ReservationTTL, err = getEnvDuration("RESERVATION_TTL", c.Checkout.ReservationTTL); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("JAEGER_SAMPLE_RATIO"); ok {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid JAEGER_SAMPLE_RATIO %q: %w", v, err)
		}
		c.Infra.Jaeger.SampleRatio = ratio
	}
	if v, ok := os.LookupEnv("NACOS_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid NACOS_ENABLED %q: %w", v, err)
		}
		c.Infra.Nacos.Enabled = enabled
	}
	return nil
}

// Validate 拒绝会让服务在运行期才失败的配置
func (c *Config) Validate() error {
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid service port %d", c.Service.Port)
	}
	if c.Checkout.ReservationTTL <= 0 {
		return fmt.Errorf("reservation_ttl must be positive, got %s", c.Checkout.ReservationTTL)
	}
	if r := c.Infra.Jaeger.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("jaeger sample_ratio must be within [0, 1], got %v", r)
	}
	switch c.Inventory.Store {
	case "memory", "redis", "mysql":
	default:
		return fmt.Errorf("unknown inventory store %q", c.Inventory.Store)
	}
	switch c.Inventory.Locker {
	case "local", "zookeeper":
	default:
		return fmt.Errorf("unknown inventory locker %q", c.Inventory.Locker)
	}
	switch c.Checkout.OrderStore {
	case "memory", "mysql":
	default:
		return fmt.Errorf("unknown order store %q", c.Checkout.OrderStore)
	}
	return nil
}

// DSN 使用驱动自带的 Config 拼出 DSN，避免手写转义
func (m MySQLConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = m.User
	cfg.Passwd = m.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
	cfg.DBName = m.Database
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// getEnv 从环境变量中读取配置
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
