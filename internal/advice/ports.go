// Package advice defines the outbound port for the AI financial tips
// feature. The application composes a prompt from its own aggregates;
// adapters only carry text out and back.
package advice

import (
	"context"
	"errors"

	"langkah/internal/core"
)

// ErrUnavailable marks a transient adapter failure. Callers may retry;
// the application keeps working without advice.
var ErrUnavailable = errors.New("advice service unavailable")

// Adviser generates a short financial recommendation from the current
// aggregates and recent records.
type Adviser interface {
	Advise(ctx context.Context, summary core.FinancialSummary, recent []core.Transaction) (string, error)
}
