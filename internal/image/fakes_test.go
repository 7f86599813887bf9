package image

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"
)

type object struct {
	data        []byte
	contentType string
}

// memStorage is an in-memory storage.Storage.
type memStorage struct {
	mu        sync.Mutex
	objects   map[string]object
	putErr    error
	deleteErr error
	deleted   []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string]object{}}
}

func (s *memStorage) Upload(_ context.Context, key string, body io.Reader, size int64, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(b)) != size {
		return io.ErrUnexpectedEOF
	}
	s.objects[key] = object{data: b, contentType: contentType}
	return nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	return nil
}

func (s *memStorage) PublicURL(key string) string {
	return "https://cdn.example.com/meds/" + key
}

func (s *memStorage) Bucket() string { return "meds" }

func (s *memStorage) Health(context.Context) error { return nil }

func (s *memStorage) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// memStore is an in-memory Store.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	rows      map[int64]Image
	createErr error
	err       error
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]Image{}}
}

func (s *memStore) Create(_ context.Context, img *Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	img.ID = s.nextID
	s.rows[img.ID] = *img
	return nil
}

func (s *memStore) GetByID(_ context.Context, id int64) (*Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	img, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &img, nil
}

func (s *memStore) List(context.Context) ([]Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Image, 0, len(s.rows))
	for _, img := range s.rows {
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var fixedNow = time.Date(2026, 2, 27, 14, 48, 34, 0, time.UTC)
