// internal/tracing/tracer.go
package tracing

import (
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/bekapono/shopping-cart/internal/pkg/config"
	"github.com/bekapono/shopping-cart/internal/pkg/logger"
)

// InitTracerProvider 按服务与 Jaeger 配置创建 TracerProvider，并注册为全局实现。
// 调用方负责在退出时 Shutdown，以便发送缓冲中的 span。
func InitTracerProvider(svc config.ServiceConfig, jcfg config.JaegerConfig) (*sdktrace.TracerProvider, error) {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jcfg.Endpoint)))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(Sampler(jcfg.SampleRatio)),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(Resource(svc)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	logger.L().Info().
		Str("endpoint", jcfg.Endpoint).
		Float64("sample_ratio", jcfg.SampleRatio).
		Msg("✅ Tracing initialized")
	return tp, nil
}

// Resource 描述上报 span 的服务实例：服务名 + 主机名:端口
func Resource(svc config.ServiceConfig) *resource.Resource {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(svc.Name),
		semconv.ServiceInstanceID(host + ":" + strconv.Itoa(svc.Port)),
		semconv.HostName(host),
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

// Sampler ratio >= 1 全部采样；否则按 TraceID 比例采样，并尊重上游的采样决定
func Sampler(ratio float64) sdktrace.Sampler {
	if ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	if ratio <= 0 {
		return sdktrace.ParentBased(sdktrace.NeverSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}
