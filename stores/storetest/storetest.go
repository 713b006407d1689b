// Package storetest checks that a core.DesignStore behaves like the others.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"youngin-studio/core"
)

func design(userID, name string) *core.Design {
	return &core.Design{
		UserID:     userID,
		UserName:   "Youngin Designer",
		Garment:    core.GarmentHoodie,
		Name:       name,
		Image:      "data:image/png;base64,iVBORw0KGgo=",
		SceneState: []byte(`{"version":1,"width":500,"height":600,"objects":[]}`),
	}
}

// Run exercises store against the DesignStore contract.
func Run(t *testing.T, store core.DesignStore) {
	t.Run("SaveAndGet", func(t *testing.T) { testSaveAndGet(t, store) })
	t.Run("ListByOwner", func(t *testing.T) { testListByOwner(t, store) })
	t.Run("OwnerScoping", func(t *testing.T) { testOwnerScoping(t, store) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, store) })
	t.Run("ConcurrentSave", func(t *testing.T) { testConcurrentSave(t, store) })
}

func testSaveAndGet(t *testing.T, store core.DesignStore) {
	ctx := context.Background()
	want := design("get-user", "Custom hoodie 2026-10-16")

	id, err := store.Save(ctx, want)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	// ULIDs are 26 characters.
	if len(id) != 26 {
		t.Errorf("Save() returned invalid ID length: got %d, want 26", len(id))
	}

	got, err := store.Get(ctx, "get-user", id)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.ID != id {
		t.Errorf("Get() ID mismatch: got %q, want %q", got.ID, id)
	}
	if got.Name != want.Name || got.Garment != want.Garment || got.UserName != want.UserName {
		t.Errorf("Get() metadata mismatch: got %+v", got)
	}
	if got.Image != want.Image {
		t.Errorf("Get() image mismatch: got %q, want %q", got.Image, want.Image)
	}
	if string(got.SceneState) != string(want.SceneState) {
		t.Errorf("Get() scene mismatch: got %q, want %q", got.SceneState, want.SceneState)
	}
	if got.CreatedAt.IsZero() || got.LastModified.IsZero() {
		t.Errorf("Get() timestamps not set: %+v", got)
	}

	_, err = store.Get(ctx, "get-user", "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	if !errors.Is(err, core.ErrDesignNotFound) {
		t.Errorf("Get() unknown id: got %v, want ErrDesignNotFound", err)
	}
}

func testListByOwner(t *testing.T, store core.DesignStore) {
	ctx := context.Background()

	empty, err := store.ListByOwner(ctx, "nobody")
	if err != nil {
		t.Fatalf("ListByOwner() failed for unknown user: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ListByOwner() for unknown user: got %d designs, want 0", len(empty))
	}

	first, err := store.Save(ctx, design("list-user", "first"))
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := store.Save(ctx, design("list-user", "second"))
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	list, err := store.ListByOwner(ctx, "list-user")
	if err != nil {
		t.Fatalf("ListByOwner() failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListByOwner() got %d designs, want 2", len(list))
	}
	if list[0].ID != second || list[1].ID != first {
		t.Errorf("ListByOwner() order: got [%s %s], want newest first [%s %s]", list[0].ID, list[1].ID, second, first)
	}
	for _, d := range list {
		if d.SceneState != nil {
			t.Errorf("ListByOwner() design %s carries scene state", d.ID)
		}
		if d.UserID != "list-user" {
			t.Errorf("ListByOwner() design %s has owner %q", d.ID, d.UserID)
		}
	}
}

func testOwnerScoping(t *testing.T, store core.DesignStore) {
	ctx := context.Background()
	id, err := store.Save(ctx, design("alice", "mine"))
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	if _, err := store.Get(ctx, "bob", id); !errors.Is(err, core.ErrDesignNotFound) {
		t.Errorf("Get() by another user: got %v, want ErrDesignNotFound", err)
	}
	if err := store.Delete(ctx, "bob", id); !errors.Is(err, core.ErrDesignNotFound) {
		t.Errorf("Delete() by another user: got %v, want ErrDesignNotFound", err)
	}
	list, err := store.ListByOwner(ctx, "bob")
	if err != nil {
		t.Fatalf("ListByOwner() failed: %v", err)
	}
	for _, d := range list {
		if d.ID == id {
			t.Errorf("ListByOwner() leaked design %s to another user", id)
		}
	}
	if _, err := store.Get(ctx, "alice", id); err != nil {
		t.Errorf("Get() by owner failed after foreign delete: %v", err)
	}
}

func testDelete(t *testing.T, store core.DesignStore) {
	ctx := context.Background()
	id, err := store.Save(ctx, design("delete-user", "doomed"))
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	if err := store.Delete(ctx, "delete-user", id); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get(ctx, "delete-user", id); !errors.Is(err, core.ErrDesignNotFound) {
		t.Errorf("Get() after Delete(): got %v, want ErrDesignNotFound", err)
	}
	if err := store.Delete(ctx, "delete-user", id); !errors.Is(err, core.ErrDesignNotFound) {
		t.Errorf("second Delete(): got %v, want ErrDesignNotFound", err)
	}
}

func testConcurrentSave(t *testing.T, store core.DesignStore) {
	ctx := context.Background()
	const n = 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	ids := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := store.Save(ctx, design("concurrent-user", "parallel"))
			if err != nil {
				t.Errorf("concurrent Save() failed: %v", err)
				return
			}
			mu.Lock()
			ids[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != n {
		t.Errorf("concurrent Save() produced %d unique IDs, want %d", len(ids), n)
	}
	list, err := store.ListByOwner(ctx, "concurrent-user")
	if err != nil {
		t.Fatalf("ListByOwner() failed: %v", err)
	}
	if len(list) != n {
		t.Errorf("ListByOwner() got %d designs, want %d", len(list), n)
	}
}
