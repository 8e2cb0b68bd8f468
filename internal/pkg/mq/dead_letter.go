package mq

import (
	"context"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/bekapono/shopping-cart/internal/pkg/logger"
)

// 死信消息携带的原始位置与异常信息
const (
	HeaderOriginalTopic     = "x-original-topic"
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
	HeaderExceptionMessage  = "x-exception-message"
)

// DeadLetterHandler 把处理失败的消息转发到死信主题
type DeadLetterHandler struct {
	writer MessageWriter
}

func NewDeadLetterHandler(writer MessageWriter) *DeadLetterHandler {
	return &DeadLetterHandler{writer: writer}
}

// Handle 转发失败时只记录日志，消费位点照常提交
func (h *DeadLetterHandler) Handle(ctx context.Context, msg kafka.Message, cause error) {
	headers := append([]kafka.Header(nil), msg.Headers...)
	carrier := KafkaHeaderCarrier(headers)
	carrier.Set(HeaderOriginalTopic, msg.Topic)
	carrier.Set(HeaderOriginalPartition, strconv.Itoa(msg.Partition))
	carrier.Set(HeaderOriginalOffset, strconv.FormatInt(msg.Offset, 10))
	carrier.Set(HeaderExceptionMessage, fmt.Sprint(cause))

	dead := kafka.Message{Key: msg.Key, Value: msg.Value, Headers: carrier}
	if err := h.writer.WriteMessages(ctx, dead); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("original_topic", msg.Topic).
			Int64("original_offset", msg.Offset).
			Str("value", string(msg.Value)).
			Msg("🚨 CRITICAL: failed to forward message to dead letter topic")
		return
	}
	logger.Ctx(ctx).Warn().Err(cause).Str("original_topic", msg.Topic).Int64("original_offset", msg.Offset).Msg("Message moved to dead letter topic")
}
