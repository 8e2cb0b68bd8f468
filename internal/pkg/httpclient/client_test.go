package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type echoRequest struct {
	Name string `json:"name"`
}

type echoResponse struct {
	Greeting string `json:"greeting"`
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/greet", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req echoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(echoResponse{Greeting: "hi " + req.Name})
	}))
	defer srv.Close()

	c := NewClient(noop.NewTracerProvider().Tracer("test"), StaticResolver{"greeter": srv.URL + "/"})

	var out echoResponse
	require.NoError(t, c.PostJSON(context.Background(), "greeter", "/greet", echoRequest{Name: "bob"}, &out))
	assert.Equal(t, "hi bob", out.Greeting)
}

func TestPostJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(noop.NewTracerProvider().Tracer("test"), StaticResolver{"svc": srv.URL})
	err := c.PostJSON(context.Background(), "svc", "x", map[string]int{"a": 1}, nil)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "boom", statusErr.Body)
}

func TestPostJSON_UnknownService(t *testing.T) {
	c := NewClient(noop.NewTracerProvider().Tracer("test"), StaticResolver{})
	err := c.PostJSON(context.Background(), "missing", "x", nil, nil)
	assert.ErrorContains(t, err, "missing")
}
