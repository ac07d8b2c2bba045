package services

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"

	"hbank/internal/store"
	"hbank/internal/withdrawal"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

func newTestLogger(w io.Writer) log.Logger {
	return log.NewLogfmtLogger(w)
}

func TestLoggingRateServiceLatest(t *testing.T) {
	var buf bytes.Buffer
	service := NewLoggingRateService(newTestLogger(&buf), NewRateService(fakeTxRunner{}, stubRateStore{
		latestFn: func(context.Context) (store.RateRow, error) {
			return store.RateRow{}, sql.ErrNoRows
		},
	}, &stubAuditStore{}, newStubHub(), 0))

	if _, err := service.Latest(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	line := buf.String()
	if !strings.Contains(line, "level=info") || !strings.Contains(line, "method=latest") || !strings.Contains(line, "took=") {
		t.Fatalf("unexpected log line: %s", line)
	}
}

func TestLoggingServicesRespectLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := level.NewFilter(newTestLogger(&buf), level.AllowWarn())
	service := NewLoggingWithdrawalService(logger, NewWithdrawalService(fakeTxRunner{}, stubRateSource{err: ErrRateUnavailable}, stubWithdrawalStore{}, &stubAuditStore{}, newStubHub()))
	if _, err := service.Create(context.Background(), CreateWithdrawalRequest{AccountID: "0.0.1", Amount: 1}); err == nil {
		t.Fatalf("expected error")
	}
	if buf.Len() != 0 {
		t.Fatalf("expected info records to be filtered, got %s", buf.String())
	}
}

func TestLoggingWithdrawalServiceTransition(t *testing.T) {
	var buf bytes.Buffer
	service := NewLoggingWithdrawalService(newTestLogger(&buf), NewWithdrawalService(fakeTxRunner{}, stubRateSource{}, stubWithdrawalStore{
		getForUpdateFn: func(context.Context, store.Getter, string) (withdrawal.Record, error) {
			return withdrawal.Record{}, sql.ErrNoRows
		},
	}, &stubAuditStore{}, newStubHub()))
	if _, err := service.Schedule(context.Background(), "op-1", "wd-1", "sched-1"); err == nil {
		t.Fatalf("expected error")
	}
	line := buf.String()
	for _, want := range []string{"level=info", "method=schedule", "actor=op-1", "withdrawal=wd-1", `err="withdrawal not found"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %s in log line: %s", want, line)
		}
	}
}
