package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/SIMPLIKARG/TESTING/internal/platform/firestore"
	"github.com/SIMPLIKARG/TESTING/internal/repositories"
)

const countersCollection = "counters"

type counterDocument struct {
	CurrentValue int64     `firestore:"currentValue"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// CounterRepository implements repositories.CounterStore with Firestore transactions,
// so concurrent increments from any number of processes never hand out the same value.
type CounterRepository struct {
	provider *pfirestore.Provider
	clock    func() time.Time
}

var _ repositories.CounterStore = (*CounterRepository)(nil)

// NewCounterRepository constructs a Firestore-backed counter repository.
func NewCounterRepository(provider *pfirestore.Provider) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository requires firestore provider")
	}
	return &CounterRepository{provider: provider, clock: time.Now}, nil
}

// Increment atomically adds one to the counter identified by key and returns the new value.
func (r *CounterRepository) Increment(ctx context.Context, key string) (int64, error) {
	id := strings.TrimSpace(key)
	if id == "" {
		return 0, repositories.NewCounterError(repositories.CounterErrorInvalidInput, key, nil)
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, pfirestore.WrapError("counters.increment", err)
	}
	ref := client.Collection(countersCollection).Doc(id)
	now := r.clock().UTC()

	var next int64
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snapshot, err := tx.Get(ref)
		switch status.Code(err) {
		case codes.NotFound:
			next = 1
			return tx.Create(ref, counterDocument{CurrentValue: next, UpdatedAt: now})
		case codes.OK:
		default:
			return err
		}

		var doc counterDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return repositories.NewCounterError(repositories.CounterErrorCorrupt, id, err)
		}
		next = doc.CurrentValue + 1
		return tx.Set(ref, counterDocument{CurrentValue: next, UpdatedAt: now})
	})
	if err != nil {
		return 0, pfirestore.WrapError("counters.increment", err)
	}
	return next, nil
}
