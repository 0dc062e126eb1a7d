package repository

import (
	"errors"
	"sync"
	"testing"

	"github.com/iliyamo/construction-supply-tracker/internal/model"
)

func TestMutateSerializesReadModifyWrite(t *testing.T) {
	repo := NewRequestRepo()
	r := repo.Create(model.Request{Item: "Nails", Quantity: 0, Status: model.StatusPending})

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Mutate(r.ID, func(cur *model.Request) error {
				cur.Quantity++
				return nil
			}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, err := repo.Get(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quantity != n {
		t.Errorf("quantity = %v, want %d", got.Quantity, n)
	}
}

func TestMutateKeepsRowOnError(t *testing.T) {
	repo := NewRequestRepo()
	r := repo.Create(model.Request{Item: "Nails", Quantity: 5, Status: model.StatusPending})

	boom := errors.New("refused")
	if _, err := repo.Mutate(r.ID, func(cur *model.Request) error {
		cur.Status = model.StatusApproved
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("Mutate error = %v", err)
	}
	if got, _ := repo.Get(r.ID); got.Status != model.StatusPending {
		t.Errorf("status = %s after a refused mutation", got.Status)
	}
	if _, err := repo.Mutate(999, func(*model.Request) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing row: %v", err)
	}
}
