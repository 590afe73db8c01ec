package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dunamismax/launchpad/internal/domain"
)

func newMockUsageStore(t *testing.T) (*PostgresUsageStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("open sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectPing()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS usage_logs")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := newPostgresUsageStore(context.Background(), db)
	if err != nil {
		t.Fatalf("new postgres usage store: %v", err)
	}
	return store, mock
}

func TestPostgresUsageStoreCreateUsageLog(t *testing.T) {
	store, mock := newMockUsageStore(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO usage_logs")).
		WithArgs("alice", "req-1", domain.UsageOperationImageConvert, 3, int64(300), int64(900), int64(600), int64(300), int64(12), created).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO usage_logs")).
		WithArgs("bob", "", domain.UsageOperationVideoConvert, 1, int64(0), int64(0), int64(0), int64(0), int64(1000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))

	err := store.CreateUsageLog(context.Background(), domain.UsageLog{
		Subject: "alice", RequestID: "req-1", Operation: domain.UsageOperationImageConvert,
		Items: 3, PixelsProcessed: 300, BytesIn: 900, BytesOut: 600, BytesSaved: 300, ComputeTimeMS: 12,
		CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("create usage log: %v", err)
	}
	err = store.CreateUsageLog(context.Background(), domain.UsageLog{
		Subject: "bob", Operation: domain.UsageOperationVideoConvert, Items: 1, ComputeTimeMS: 1000,
	})
	if err != nil {
		t.Fatalf("create usage log without timestamp: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresUsageStoreSummary(t *testing.T) {
	store, mock := newMockUsageStore(t)

	columns := []string{"operation", "count", "items", "pixels_processed", "bytes_saved", "compute_time_ms"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM usage_logs")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(domain.UsageOperationImageConvert, int64(2), int64(4), int64(400), int64(50), int64(15)))
	mock.ExpectQuery(regexp.QuoteMeta("FROM usage_logs")).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows(columns))

	summary, err := store.Summary(context.Background(), "alice")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	want := domain.UsageTotals{
		Operation: domain.UsageOperationImageConvert, Requests: 2, Items: 4, PixelsProcessed: 400, BytesSaved: 50, ComputeTimeMS: 15,
	}
	if len(summary.Operations) != 1 || summary.Operations[0] != want {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	empty, err := store.Summary(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("empty summary: %v", err)
	}
	if empty.Operations == nil || len(empty.Operations) != 0 {
		t.Fatalf("expected an empty, non-nil operations list, got %#v", empty.Operations)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresUsageStoreErrors(t *testing.T) {
	store, mock := newMockUsageStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO usage_logs")).WillReturnError(errors.New("connection reset"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM usage_logs")).WillReturnError(errors.New("relation does not exist"))

	err := store.CreateUsageLog(context.Background(), domain.UsageLog{Subject: "alice", Operation: domain.UsageOperationImageConvert})
	if err == nil || !strings.Contains(err.Error(), "insert usage log") {
		t.Fatalf("expected insert error, got %v", err)
	}
	_, err = store.Summary(context.Background(), "")
	if err == nil || !strings.Contains(err.Error(), "query usage summary") {
		t.Fatalf("expected query error, got %v", err)
	}
}

func TestNewPostgresUsageStorePingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("open sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("dial tcp: connection refused"))
	if _, err := newPostgresUsageStore(context.Background(), db); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
}
