package dialogue

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/auraloop/aura-core/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var turnLatency, _ = meter.Float64Histogram("aura.dialogue.turn.latency",
	metric.WithDescription("Wall-clock gap between the previous turn's last message and the current final transcript."),
	metric.WithUnit("s"),
	metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 20, 40),
)
