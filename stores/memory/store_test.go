package memory

import (
	"context"
	"testing"

	"youngin-studio/core"
	"youngin-studio/stores/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, NewStore())
}

func TestSave_RequiresOwner(t *testing.T) {
	store := NewStore()
	if _, err := store.Save(context.Background(), &core.Design{Name: "orphan"}); err == nil {
		t.Error("Save() should fail without a user ID")
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	id, err := store.Save(ctx, &core.Design{UserID: "u", SceneState: []byte("abc")})
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, _ := store.Get(ctx, "u", id)
	got.SceneState[0] = 'z'
	got.Name = "changed"

	again, _ := store.Get(ctx, "u", id)
	if string(again.SceneState) != "abc" || again.Name != "" {
		t.Errorf("stored design was mutated through Get(): %+v", again)
	}
}
