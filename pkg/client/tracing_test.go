package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func spanAttr(s sdktrace.ReadOnlySpan, key attribute.Key) attribute.Value {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestClientSpans(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/officer/dashboard" {
			_, _ = w.Write([]byte(`{"pending_escalations":1}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	client, err := New(WithServer(server.URL), WithTracerProvider(tp))
	require.NoError(t, err)

	_, err = client.Dashboard().Get(context.Background())
	require.NoError(t, err)
	_, err = client.Escalations().Get(context.Background(), 42)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "krishi.dashboard", spans[0].Name())
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
	assert.Equal(t, int64(http.StatusOK), spanAttr(spans[0], "http.response.status_code").AsInt64())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, "krishi.escalations.get", spans[1].Name())
	assert.Equal(t, "/officer/escalations/42", spanAttr(spans[1], "url.path").AsString())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestForTokenKeepsTracer(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	base, err := New(WithServer(server.URL), WithTracerProvider(tp))
	require.NoError(t, err)
	_, err = base.ForToken("tok", nil).Profile().Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, recorder.Ended(), 1)
}
