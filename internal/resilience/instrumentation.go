package resilience

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/auraloop/aura-core/internal/resilience"

var logger = otelslog.NewLogger(scopeName)
