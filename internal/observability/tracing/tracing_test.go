package tracing

import (
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestNewProviderInstallsPropagator(t *testing.T) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator())

	if _, err := NewProvider(nil, Config{Enabled: false}, nil); err != nil {
		t.Fatalf("new provider: %v", err)
	}

	fields := otel.GetTextMapPropagator().Fields()
	found := false
	for _, field := range fields {
		if field == "traceparent" {
			found = true
		}
	}
	if !found {
		t.Fatalf("propagator fields = %v, want traceparent", fields)
	}
}

func TestNewProviderRejectsUnknownProtocol(t *testing.T) {
	_, err := NewProvider(nil, Config{
		Enabled:          true,
		ExporterProtocol: "carrier-pigeon",
	}, nil)
	if err == nil {
		t.Fatal("expected error for unsupported protocol")
	}
}
