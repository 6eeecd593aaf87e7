package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/l1jgo/battlesim/internal/config"
	coresys "github.com/l1jgo/battlesim/internal/core/system"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap/zaptest"
)

type idleSystem struct{}

func (idleSystem) Name() string               { return "idle" }
func (idleSystem) Priority() coresys.Priority { return 1 }
func (idleSystem) Update(time.Duration)       {}

func TestTracingExportsSystemSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var out bytes.Buffer
	log := zaptest.NewLogger(t)
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{
		Enabled:     true,
		ServiceName: "battlesim-test",
		SampleRatio: 1,
	}, &out, log)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}

	r := coresys.NewRunner(log)
	r.Register(idleSystem{})
	r.Tick(context.Background(), 50*time.Millisecond)
	ShutdownWithTimeout(context.Background(), shutdown, log)

	if !strings.Contains(out.String(), `"Name":"idle"`) {
		t.Fatalf("span not exported:\n%s", out.String())
	}
}

func TestTracingDisabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var out bytes.Buffer
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{}, &out, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "ignored")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatalf("disabled tracing wrote %q", out.String())
	}
}
