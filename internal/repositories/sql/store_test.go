package sql

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gorm.io/gorm"

	"github.com/SIMPLIKARG/TESTING/internal/repositories"
)

func TestCellsEncoding(t *testing.T) {
	row := []string{"PD000001", "2026-01-02 10:00:00", "1", "Juan Pérez"}
	encoded, err := encodeCells(row)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeCells(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(row, decoded); diff != "" {
		t.Fatalf("cells mismatch (-want +got):\n%s", diff)
	}

	empty, err := encodeCells(nil)
	if err != nil || empty != "[]" {
		t.Fatalf("expected empty array, got %q (%v)", empty, err)
	}
}

func TestDecodeCellsRejectsGarbage(t *testing.T) {
	if _, err := decodeCells("not json"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestWrapErrorClassification(t *testing.T) {
	if !repositories.IsNotFound(wrapError("op", gorm.ErrRecordNotFound)) {
		t.Fatalf("record not found should map to NotFound")
	}
	var repoErr repositories.RepositoryError
	if err := wrapError("op", gorm.ErrDuplicatedKey); !errors.As(err, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("duplicate key should map to Conflict")
	}
	if !repositories.IsUnavailable(wrapError("op", errors.New("connection reset"))) {
		t.Fatalf("driver failures should map to Unavailable")
	}
	if wrapError("op", nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(" ", nil); err == nil {
		t.Fatalf("expected dsn error")
	}
	if _, err := NewTableStore(nil); err == nil {
		t.Fatalf("expected nil db error")
	}
	if _, err := NewCounterStore(nil); err == nil {
		t.Fatalf("expected nil db error")
	}
}
