package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/construction-supply-tracker/internal/model"
)

// Photo is an uploaded request photo.
type Photo struct {
	Name        string
	ContentType string
	Data        []byte
}

// RequestRepo stores supply requests and their photos.
type RequestRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.Request
	photos map[string]Photo
}

func NewRequestRepo() *RequestRepo {
	return &RequestRepo{rows: map[int64]model.Request{}, photos: map[string]Photo{}}
}

// Create assigns an id and creation time and stores r.
func (r *RequestRepo) Create(req model.Request) model.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	req.ID = r.nextID
	now := time.Now().UTC()
	req.CreatedAt = &now
	r.rows[req.ID] = req
	return req
}

func (r *RequestRepo) Get(id int64) (model.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.rows[id]
	if !ok {
		return model.Request{}, ErrNotFound
	}
	return req, nil
}

// Mutate applies fn to a copy of request id and stores the copy when
// fn succeeds.  The read, fn and the write happen under one lock, so
// fn always sees the latest state.  fn's error is returned unchanged.
func (r *RequestRepo) Mutate(id int64, fn func(*model.Request) error) (model.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.rows[id]
	if !ok {
		return model.Request{}, ErrNotFound
	}
	if err := fn(&req); err != nil {
		return model.Request{}, err
	}
	r.rows[id] = req
	return req, nil
}

// List returns the requests accepted by keep, newest first.
func (r *RequestRepo) List(keep func(model.Request) bool) []model.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Request, 0, len(r.rows))
	for _, req := range r.rows {
		if keep == nil || keep(req) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *RequestRepo) SavePhoto(p Photo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.photos[p.Name] = p
}

func (r *RequestRepo) Photo(name string) (Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.photos[name]
	if !ok {
		return Photo{}, ErrNotFound
	}
	return p, nil
}
