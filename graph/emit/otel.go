package emit

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by turning each event into an OpenTelemetry
// span.
//
// Span names are the event Msg. Standard attributes:
//   - flowsim.run_id
//   - flowsim.step
//   - flowsim.node_id and flowsim.node_type (step events)
//
// Meta entries become attributes under their own key, except duration_ms
// and title which are namespaced as flowsim.step.duration_ms and
// flowsim.node.title. An "error" entry, or an error message, marks the span
// with codes.Error.
//
// Example:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//	emitter := emit.NewOTelEmitter(tp.Tracer("flowsim"))
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an OTelEmitter using tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit records event as a span.
func (o *OTelEmitter) Emit(event Event) {
	o.record(context.Background(), event)
}

// EmitBatch records several events, parenting their spans on ctx.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		o.record(ctx, event)
	}
	return nil
}

// Flush forces the global tracer provider to export pending spans, when it
// supports that.
func (o *OTelEmitter) Flush(ctx context.Context) error {
	type flusher interface {
		ForceFlush(context.Context) error
	}

	if f, ok := otel.GetTracerProvider().(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

func (o *OTelEmitter) record(ctx context.Context, event Event) {
	_, span := o.tracer.Start(ctx, event.Msg)
	defer span.End()

	span.SetAttributes(
		attribute.String("flowsim.run_id", event.RunID),
		attribute.Int("flowsim.step", event.Step),
	)
	if event.NodeID != "" {
		span.SetAttributes(
			attribute.String("flowsim.node_id", event.NodeID),
			attribute.String("flowsim.node_type", event.NodeType),
		)
	}

	for key, value := range event.Meta {
		setAttribute(span, attributeKey(key), value)
	}

	if msg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, msg)
		span.RecordError(fmt.Errorf("%s", msg))
	} else if event.IsError() {
		span.SetStatus(codes.Error, event.Msg)
	}
}

func attributeKey(key string) string {
	switch key {
	case "duration_ms":
		return "flowsim.step.duration_ms"
	case "title":
		return "flowsim.node.title"
	}
	return key
}

func setAttribute(span trace.Span, key string, value interface{}) {
	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	case time.Duration:
		span.SetAttributes(attribute.Int64(key, int64(v/time.Millisecond)))
	default:
		span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}
