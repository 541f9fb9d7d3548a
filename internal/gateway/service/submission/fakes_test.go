package submission

import (
	"context"
	"errors"
	"sync"
	"time"

	"instrumentsync/internal/gateway/repository/instrument"
)

type fakeRecordStore struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]instrument.Record
	inserts int
	gets    int

	failInsert  error
	failGet     error
	afterInsert func()
}

func newFakeRecordStore(firstID int64) *fakeRecordStore {
	return &fakeRecordStore{nextID: firstID, rows: map[int64]instrument.Record{}}
}

func (s *fakeRecordStore) Insert(_ context.Context, fields instrument.Fields) (instrument.Record, error) {
	s.mu.Lock()
	s.inserts++
	if s.failInsert != nil {
		s.mu.Unlock()
		return instrument.Record{}, s.failInsert
	}
	rec := instrument.Record{UniverseID: s.nextID, Fields: fields, CreatedAt: time.Now()}
	s.rows[rec.UniverseID] = rec
	s.nextID++
	hook := s.afterInsert
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return rec, nil
}

func (s *fakeRecordStore) Get(_ context.Context, universeID int64) (instrument.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.failGet != nil {
		return instrument.Record{}, s.failGet
	}
	rec, ok := s.rows[universeID]
	if !ok {
		return instrument.Record{}, instrument.ErrNotFound
	}
	return rec, nil
}

type putCall struct {
	key  string
	body string
}

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string]string
	calls   []putCall

	failKeys map[string]error
	delay    time.Duration
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string]string{}, failKeys: map[string]error{}}
}

func (s *fakeObjectStore) Put(ctx context.Context, key string, body []byte) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, putCall{key: key, body: string(body)})
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := s.failKeys[key]; ok {
		return err
	}
	s.objects[key] = string(body)
	return nil
}

func (s *fakeObjectStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *fakeObjectStore) snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.objects))
	for k, v := range s.objects {
		out[k] = v
	}
	return out
}

var errBucketDown = errors.New("bucket unavailable")
