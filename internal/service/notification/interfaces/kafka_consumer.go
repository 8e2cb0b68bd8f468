package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bekapono/shopping-cart/internal/pkg/logger"
	"github.com/bekapono/shopping-cart/internal/pkg/mq"
	"github.com/bekapono/shopping-cart/internal/service/notification/application"
	orderdomain "github.com/bekapono/shopping-cart/internal/service/order/domain"
)

// MessageReader 是 *kafka.Reader 的最小子集
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// FailureHandler 接收处理失败的消息，通常是 *mq.DeadLetterHandler
type FailureHandler interface {
	Handle(ctx context.Context, msg kafka.Message, cause error)
}

// CheckoutEventConsumer 是一个驱动适配器，它监听结算事件并驱动通知服务。
type CheckoutEventConsumer struct {
	reader         MessageReader
	topic          string
	appSvc         *application.NotificationService
	failureHandler FailureHandler
	tracer         trace.Tracer
	retryBackoff   time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewCheckoutEventConsumer 创建一个新的Kafka消费者适配器。failureHandler 可以为 nil。
func NewCheckoutEventConsumer(reader MessageReader, topic string, appSvc *application.NotificationService, failureHandler FailureHandler) *CheckoutEventConsumer {
	return &CheckoutEventConsumer{
		reader:         reader,
		topic:          topic,
		appSvc:         appSvc,
		failureHandler: failureHandler,
		tracer:         otel.Tracer("notification-service"),
		retryBackoff:   time.Second,
	}
}

// Start 开始监听Kafka主题，Stop 或 ctx 取消时退出。
func (a *CheckoutEventConsumer) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logger.Ctx(ctx).Info().Str("topic", a.topic).Msg("✅ Kafka Consumer Adapter started.")
		for {
			// 我们使用FetchMessage而不是ReadMessage，以便更好地控制退出逻辑
			msg, err := a.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Ctx(ctx).Info().Str("topic", a.topic).Msg("🛑 Kafka Consumer Adapter shutting down.")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("could not read message, retrying")
				select {
				case <-ctx.Done():
					return
				case <-time.After(a.retryBackoff): // 避免快速失败循环
				}
				continue
			}

			msgCtx := mq.ExtractTraceContext(ctx, msg.Headers)
			if err := a.processMessage(msgCtx, msg); err != nil && a.failureHandler != nil {
				a.failureHandler.Handle(msgCtx, msg, err)
			}

			// 无论成功或失败（已移交），都提交Offset
			if err := a.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("Failed to commit messages")
			}
		}
	}()
}

// Stop 优雅地停止消费者。
func (a *CheckoutEventConsumer) Stop() error {
	if a.cancel != nil {
		a.cancel()
	}
	err := a.reader.Close()
	a.wg.Wait()
	logger.L().Info().Str("topic", a.topic).Msg("✅ Kafka Consumer Adapter stopped.")
	return err
}

// processMessage 反序列化消息并调用应用服务。
func (a *CheckoutEventConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	ctx, span := a.tracer.Start(ctx, "consume "+a.topic, trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", a.topic),
		attribute.Int64("messaging.kafka.offset", msg.Offset),
	)

	var envelope orderdomain.EventEnvelope
	err := json.Unmarshal(msg.Value, &envelope)
	if err == nil {
		span.SetAttributes(attribute.String("event.type", envelope.Type))
		err = a.appSvc.HandleEnvelope(ctx, &envelope)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to handle event")
		logger.Ctx(ctx).Error().Err(err).Int64("offset", msg.Offset).Msg("Failed to handle checkout event")
	}
	return err
}
