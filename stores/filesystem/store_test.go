package filesystem

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"youngin-studio/core"
	"youngin-studio/stores/storetest"
)

func TestFilesystemStore(t *testing.T) {
	storetest.Run(t, NewStore(t.TempDir()))
}

func TestNewStore_CreatesBaseDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "designs")
	NewStore(dir)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("NewStore() did not create %s: %v", dir, err)
	}
}

func TestPathTraversal(t *testing.T) {
	base := t.TempDir()
	store := NewStore(base)
	ctx := context.Background()

	secret := filepath.Join(base, "secret.json")
	if err := os.WriteFile(secret, []byte(`{"name":"secret"}`), 0644); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"../secret", "..", "a/b", `a\b`, ""} {
		if _, err := store.Get(ctx, "user", id); err == nil {
			t.Errorf("Get(%q) should be rejected", id)
		}
		if err := store.Delete(ctx, "user", id); err == nil {
			t.Errorf("Delete(%q) should be rejected", id)
		}
	}
	if _, err := store.ListByOwner(ctx, "../"); err == nil {
		t.Error("ListByOwner() should reject a path as user ID")
	}
	if _, err := store.Save(ctx, &core.Design{UserID: "../escape"}); err == nil {
		t.Error("Save() should reject a path as user ID")
	}
	if _, err := os.Stat(secret); err != nil {
		t.Errorf("secret file disturbed: %v", err)
	}
}

func TestListByOwner_SkipsCorruptFiles(t *testing.T) {
	base := t.TempDir()
	store := NewStore(base)
	ctx := context.Background()

	if _, err := store.Save(ctx, &core.Design{UserID: "user", Name: "good"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, "user", "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "user", "notes.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}

	list, err := store.ListByOwner(ctx, "user")
	if err != nil {
		t.Fatalf("ListByOwner() failed: %v", err)
	}
	if len(list) != 1 || list[0].Name != "good" {
		t.Errorf("ListByOwner() = %+v, want only the good design", list)
	}
}

func TestListByOwner_EqualTimestampsOrderByID(t *testing.T) {
	base := t.TempDir()
	store := NewStore(base)
	ctx := context.Background()

	stamp := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	if err := os.MkdirAll(filepath.Join(base, "user"), 0755); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"01A", "01C", "01B"} {
		data, err := json.Marshal(&core.Design{ID: id, UserID: "user", Name: id, CreatedAt: stamp, LastModified: stamp})
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(base, "user", id+".json"), data, 0644); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.ListByOwner(ctx, "user")
	if err != nil {
		t.Fatalf("ListByOwner() failed: %v", err)
	}
	var got []string
	for _, d := range list {
		got = append(got, d.ID)
	}
	if len(got) != 3 || got[0] != "01C" || got[1] != "01B" || got[2] != "01A" {
		t.Errorf("ListByOwner() order = %v, want [01C 01B 01A]", got)
	}
}
