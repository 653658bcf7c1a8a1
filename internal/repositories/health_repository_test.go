package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SIMPLIKARG/TESTING/internal/domain"
)

func TestDependencyHealthRepositoryCollectSuccess(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{Name: "tables", Check: func(context.Context) error { return nil }},
		{Name: "counter", Check: func(context.Context) error { return nil }},
	}, WithDependencyClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusOK || len(report.Checks) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Checks["tables"].CheckedAt != now {
		t.Fatalf("expected injected clock to be used")
	}
}

func TestDependencyHealthRepositoryDegradedAndTimeout(t *testing.T) {
	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{Name: "tables", Check: func(context.Context) error { return errors.New("quota exceeded") }},
		{Name: "slow", Timeout: 5 * time.Millisecond, Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	})
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusError {
		t.Fatalf("expected error status, got %s", report.Status)
	}
	if got := report.Checks["tables"]; got.Status != domain.HealthStatusDegraded || got.Detail != "quota exceeded" {
		t.Fatalf("unexpected tables check %+v", got)
	}
	if got := report.Checks["slow"]; got.Detail != "timeout" {
		t.Fatalf("unexpected slow check %+v", got)
	}
}

func TestNewDependencyHealthRepositoryValidatesChecks(t *testing.T) {
	if _, err := NewDependencyHealthRepository(nil); err == nil {
		t.Fatalf("expected error for empty checks")
	}
	if _, err := NewDependencyHealthRepository([]DependencyCheck{{Name: "x"}}); err == nil {
		t.Fatalf("expected error for missing check func")
	}
}

func TestIsUnavailable(t *testing.T) {
	if !IsUnavailable(&StoreError{Op: "read", Err: errors.New("503"), Unavailable: true}) {
		t.Fatalf("expected unavailable")
	}
	if !IsUnavailable(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded counts as unavailable")
	}
	if IsUnavailable(errors.New("plain")) {
		t.Fatalf("plain errors are not unavailable")
	}
	if !IsNotFound(&StoreError{Err: errors.New("no table"), NotFound: true}) {
		t.Fatalf("expected not found")
	}
}
