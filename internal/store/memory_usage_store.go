package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dunamismax/launchpad/internal/domain"
)

type MemoryUsageStore struct {
	mu   sync.RWMutex
	logs []domain.UsageLog
}

func NewMemoryUsageStore() *MemoryUsageStore {
	return &MemoryUsageStore{}
}

func (s *MemoryUsageStore) CreateUsageLog(_ context.Context, log domain.UsageLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return nil
}

func (s *MemoryUsageStore) Summary(_ context.Context, subject string) (domain.UsageSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]*domain.UsageTotals)
	for _, log := range s.logs {
		if subject != "" && log.Subject != subject {
			continue
		}
		t, ok := totals[log.Operation]
		if !ok {
			t = &domain.UsageTotals{Operation: log.Operation}
			totals[log.Operation] = t
		}
		t.Requests++
		t.Items += int64(log.Items)
		t.PixelsProcessed += log.PixelsProcessed
		t.BytesSaved += log.BytesSaved
		t.ComputeTimeMS += log.ComputeTimeMS
	}

	summary := domain.UsageSummary{Operations: make([]domain.UsageTotals, 0, len(totals))}
	for _, t := range totals {
		summary.Operations = append(summary.Operations, *t)
	}
	sort.Slice(summary.Operations, func(i, j int) bool {
		return summary.Operations[i].Operation < summary.Operations[j].Operation
	})
	return summary, nil
}
