package repositories

import (
	"errors"
	"fmt"
	"testing"
)

func TestCounterErrorMessageAndClassification(t *testing.T) {
	cause := errors.New(`strconv.ParseInt: parsing "abc": invalid syntax`)
	err := fmt.Errorf("sequence generator: %w", NewCounterError(CounterErrorCorrupt, "pedidos", cause))

	if !IsCounterCorrupt(err) {
		t.Fatalf("expected corrupt classification for %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap")
	}
	want := `sequence generator: counter "pedidos": stored value is not an integer: ` + cause.Error()
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if IsCounterCorrupt(NewCounterError(CounterErrorInvalidInput, "", nil)) {
		t.Fatalf("invalid input must not be reported as corrupt")
	}
}
