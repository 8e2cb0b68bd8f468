package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/bekapono/shopping-cart/internal/pkg/httpclient"
	"github.com/bekapono/shopping-cart/internal/service/order/domain"
	"github.com/bekapono/shopping-cart/internal/service/order/domain/port"
)

func newPaymentAdapter(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *PaymentHTTPAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := httpclient.NewClient(noop.NewTracerProvider().Tracer("test"), httpclient.StaticResolver{"payment-service": srv.URL})
	return NewPaymentHTTPAdapter(client, "payment-service", timeout, nil)
}

func TestPaymentHTTPAdapter_Authorize(t *testing.T) {
	var got AuthorizeRequest
	a := newPaymentAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/authorize", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(AuthorizeResponse{Approved: got.Amount <= 1000})
	}, time.Second)

	result, err := a.Authorize(context.Background(), 1000, port.CustomerInfo{ID: "c-1", Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, port.PaymentApproved, result)
	assert.Equal(t, int64(1000), got.Amount)
	assert.Equal(t, "c-1", got.CustomerID)

	result, err = a.Authorize(context.Background(), 1001, port.CustomerInfo{ID: "c-1"})
	require.NoError(t, err)
	assert.Equal(t, port.PaymentDeclined, result)
}

func TestPaymentHTTPAdapter_ServerError(t *testing.T) {
	a := newPaymentAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}, time.Second)

	_, err := a.Authorize(context.Background(), 100, port.CustomerInfo{ID: "c-1"})
	require.Error(t, err)
	var statusErr *httpclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestPaymentHTTPAdapter_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	a := newPaymentAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)

	_, err := a.Authorize(context.Background(), 100, port.CustomerInfo{ID: "c-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestNotificationKafkaAdapter(t *testing.T) {
	w := &recordingWriter{}
	a := NewNotificationKafkaAdapter(w)
	ctx := context.Background()

	require.NoError(t, a.SendCheckoutCompleted(ctx, domain.CheckoutCompleted{
		OrderID: "o-1", CustomerID: "c-1", Status: domain.StatePendingShipping, TotalAmount: 1600,
	}))
	require.NoError(t, a.SendCheckoutFailed(ctx, domain.CheckoutFailed{
		CustomerID: "c-2", Reason: string(domain.ReasonInventoryUnavailable), Message: "out of stock",
	}))
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "c-1", string(w.msgs[0].Key))
	var envelope domain.EventEnvelope
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &envelope))
	assert.Equal(t, domain.EventCheckoutCompleted, envelope.Type)
	var completed domain.CheckoutCompleted
	require.NoError(t, json.Unmarshal(envelope.Payload, &completed))
	assert.Equal(t, "o-1", completed.OrderID)
	assert.Equal(t, domain.Money(1600), completed.TotalAmount)

	assert.Equal(t, "c-2", string(w.msgs[1].Key))
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &envelope))
	assert.Equal(t, domain.EventCheckoutFailed, envelope.Type)
}
