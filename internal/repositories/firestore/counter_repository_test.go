package firestore

import (
	"context"
	"errors"
	"testing"

	pconfig "github.com/SIMPLIKARG/TESTING/internal/platform/config"
	pfirestore "github.com/SIMPLIKARG/TESTING/internal/platform/firestore"
	"github.com/SIMPLIKARG/TESTING/internal/repositories"
)

func TestCounterRepositoryRejectsEmptyKey(t *testing.T) {
	repo, err := NewCounterRepository(pfirestore.NewProvider(pconfig.FirestoreConfig{ProjectID: "p"}))
	if err != nil {
		t.Fatalf("NewCounterRepository: %v", err)
	}
	_, err = repo.Increment(context.Background(), "  ")
	var counterErr *repositories.CounterError
	if !errors.As(err, &counterErr) || counterErr.Code != repositories.CounterErrorInvalidInput {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestNewCounterRepositoryRequiresProvider(t *testing.T) {
	if _, err := NewCounterRepository(nil); err == nil {
		t.Fatalf("expected error for nil provider")
	}
}
