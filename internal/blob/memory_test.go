package blob

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	url, err := store.Put(ctx, "jobs/j1/metadata.json", []byte("hello"), "application/json")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	data, err := store.Get(ctx, url)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %s", data)
	}

	objs, err := store.List(ctx, "jobs/j1/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objs) != 1 || objs[0].Key != "jobs/j1/metadata.json" {
		t.Errorf("objects = %+v", objs)
	}

	if err := store.Delete(ctx, url); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, url); !errors.Is(err, ErrNotFound) {
		t.Errorf("error after delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreVisibilityDelay(t *testing.T) {
	store := NewMemoryStore()
	store.SetVisibilityDelay(2)
	ctx := context.Background()

	if _, err := store.Put(ctx, "jobs/j1/metadata.json", []byte("x"), "application/json"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// First two observations miss, the third sees the write.
	for i := 0; i < 2; i++ {
		objs, err := store.List(ctx, "jobs/j1/")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(objs) != 0 {
			t.Fatalf("observation %d: object visible too early", i+1)
		}
	}

	objs, err := store.List(ctx, "jobs/j1/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("object not visible after delay consumed")
	}
}

func TestMemoryStoreUnavailable(t *testing.T) {
	store := NewMemoryStore()
	store.SetUnavailable(true)
	ctx := context.Background()

	if _, err := store.Put(ctx, "k", nil, ""); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Put error = %v, want ErrStoreUnavailable", err)
	}
	if _, err := store.List(ctx, ""); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("List error = %v, want ErrStoreUnavailable", err)
	}
}
