package exporters

import (
	"context"

	"go.opentelemetry.io/otel/sdk/trace"
)

// ConsoleExporter discards spans. It is the default exporter so local runs
// exercise the span creation paths without needing a collector.
type ConsoleExporter struct{}

var _ trace.SpanExporter = (*ConsoleExporter)(nil)

func (c *ConsoleExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (c *ConsoleExporter) Shutdown(ctx context.Context) error {
	return nil
}
