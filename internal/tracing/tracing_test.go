package tracing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"resume-enhancer/internal/config"
)

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("a"))
	assert.Equal(t, "张*", MaskPII("张三"))
	assert.Equal(t, "王*明", MaskPII("王小明"))
	assert.Equal(t, "sk"+strings.Repeat("*", 11)+"56", MaskPII("sk-abcdef123456"))
}

func TestSafeAttributeValue(t *testing.T) {
	assert.Equal(t, "ja******om", SafeAttributeValue("personal.email", "jane@x.com", 100))
	assert.Equal(t, "sk*****yz", SafeAttributeValue("provider.api_key", "sk-abcxyz", 100))
	assert.Equal(t, "gpt-4o", SafeAttributeValue("model", "gpt-4o", 100))
	assert.Equal(t, "abc...xyz", TruncateString("abcdefghijklmnopqrstuvwxyz", 9))
}

func TestRecordErrorSetsStatus(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(span, errors.New("boom"), ErrorTypeProvider)
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	var found bool
	for _, kv := range spans[0].Attributes() {
		if string(kv.Key) == "error.type" {
			found = true
			assert.Equal(t, "provider", kv.Value.AsString())
		}
	}
	assert.True(t, found)
}

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), config.TracingConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, err = InitTracer(context.Background(), config.TracingConfig{Enabled: true})
	assert.Error(t, err)
}
