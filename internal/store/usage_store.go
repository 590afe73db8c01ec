package store

import (
	"context"

	"github.com/dunamismax/launchpad/internal/domain"
)

// UsageStore records per-request usage and aggregates it by operation.
// An empty subject in Summary aggregates every subject.
type UsageStore interface {
	CreateUsageLog(ctx context.Context, log domain.UsageLog) error
	Summary(ctx context.Context, subject string) (domain.UsageSummary, error)
}
