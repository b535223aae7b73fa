package blob

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store for tests. It can simulate eventual
// consistency: an object written while a visibility delay is configured only
// becomes observable after the delayed read count is consumed.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]*memObject

	// visibilityDelay is the number of List/Get observations a fresh write
	// stays hidden for. Zero means writes are immediately visible.
	visibilityDelay int

	unavailable bool
}

type memObject struct {
	key         string
	data        []byte
	contentType string
	// hiddenFor counts down on each observation attempt.
	hiddenFor int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]*memObject)}
}

// SetVisibilityDelay makes subsequent writes invisible for the next n
// observation attempts, modelling an eventually consistent backend.
func (s *MemoryStore) SetVisibilityDelay(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visibilityDelay = n
}

// SetUnavailable toggles simulated transport failure for every operation.
func (s *MemoryStore) SetUnavailable(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = down
}

// Put stores data under key. The returned URL is "mem://" + key.
func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return "", fmt.Errorf("%w: simulated outage", ErrStoreUnavailable)
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = &memObject{
		key:         key,
		data:        cp,
		contentType: contentType,
		hiddenFor:   s.visibilityDelay,
	}
	return urlForKey(key), nil
}

// List returns visible objects under prefix, sorted by key.
func (s *MemoryStore) List(ctx context.Context, prefix string) ([]Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return nil, fmt.Errorf("%w: simulated outage", ErrStoreUnavailable)
	}

	var out []Object
	for key, obj := range s.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if obj.hiddenFor > 0 {
			obj.hiddenFor--
			continue
		}
		out = append(out, Object{Key: key, URL: urlForKey(key)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Get reads an object by its mem:// URL.
func (s *MemoryStore) Get(ctx context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return nil, fmt.Errorf("%w: simulated outage", ErrStoreUnavailable)
	}

	key := strings.TrimPrefix(url, "mem://")
	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	if obj.hiddenFor > 0 {
		obj.hiddenFor--
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}

	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return cp, nil
}

// Delete removes an object by its mem:// URL. Deleting a missing object is
// not an error, matching typical object store semantics.
func (s *MemoryStore) Delete(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return fmt.Errorf("%w: simulated outage", ErrStoreUnavailable)
	}
	delete(s.objects, strings.TrimPrefix(url, "mem://"))
	return nil
}

// Len returns the number of stored objects, visible or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func urlForKey(key string) string {
	return "mem://" + key
}
