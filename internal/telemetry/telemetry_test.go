package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestEnabled(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		traces   string
		expected bool
	}{
		{"none", "", "", false},
		{"shared endpoint", "http://localhost:4318", "", true},
		{"traces endpoint", "", "http://localhost:4318/v1/traces", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", tt.endpoint)
			t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", tt.traces)
			if got := Enabled(); got != tt.expected {
				t.Errorf("Enabled() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTracerUsesGlobalProvider(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := Tracer("world").Start(context.Background(), "floor.generate")
	span.End()

	ended := sr.Ended()
	if len(ended) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(ended))
	}
	if got := ended[0].InstrumentationScope().Name; got != "idlecrawl/world" {
		t.Errorf("scope = %q, want idlecrawl/world", got)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		spans int
	}{
		{"keep all", 1, 1},
		{"drop all", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := tracetest.NewInMemoryExporter()
			tp, err := NewProvider(context.Background(), sdktrace.WithSyncer(exp), Options{
				SampleRatio: tt.ratio,
				Attributes:  []attribute.KeyValue{attribute.String("idlecrawl.dungeon", "goblin_warren")},
			})
			if err != nil {
				t.Fatalf("NewProvider() error: %v", err)
			}
			t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

			_, span := tp.Tracer("test").Start(context.Background(), "battle.start")
			span.End()

			got := exp.GetSpans()
			if len(got) != tt.spans {
				t.Fatalf("exported %d spans, want %d", len(got), tt.spans)
			}
			if tt.spans == 0 {
				return
			}
			var dungeon string
			for _, kv := range got[0].Resource.Attributes() {
				if kv.Key == "idlecrawl.dungeon" {
					dungeon = kv.Value.AsString()
				}
			}
			if dungeon != "goblin_warren" {
				t.Errorf("resource idlecrawl.dungeon = %q, want goblin_warren", dungeon)
			}
		})
	}
}

func TestNewProviderRejectsBadRatio(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	if _, err := NewProvider(context.Background(), sdktrace.WithSyncer(exp), Options{SampleRatio: 2}); err == nil {
		t.Error("NewProvider() with ratio 2 should fail")
	}
}
