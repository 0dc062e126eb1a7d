package repository

import (
	"sort"
	"strings"
	"sync"

	"github.com/iliyamo/construction-supply-tracker/internal/model"
)

// ComplexRepo stores complexes.  Complexes are never renamed or removed.
type ComplexRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.Complex
}

func NewComplexRepo() *ComplexRepo { return &ComplexRepo{rows: map[int64]model.Complex{}} }

// Create inserts a complex with a trimmed, non-empty name.
func (r *ComplexRepo) Create(name string) (model.Complex, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Complex{}, ErrConflict
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := model.Complex{ID: r.nextID, Name: name}
	r.rows[c.ID] = c
	return c, nil
}

func (r *ComplexRepo) Get(id int64) (model.Complex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return model.Complex{}, ErrNotFound
	}
	return c, nil
}

// List returns the complexes accepted by keep, ordered by id.
func (r *ComplexRepo) List(keep func(model.Complex) bool) []model.Complex {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Complex, 0, len(r.rows))
	for _, c := range r.rows {
		if keep == nil || keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
