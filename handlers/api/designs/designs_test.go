package designs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"youngin-studio/core"
	"youngin-studio/handlers/auth"
	"youngin-studio/middleware"
	"youngin-studio/stores/memory"
)

func withUser(req *http.Request, subject string) *http.Request {
	claims := &auth.AppClaims{}
	claims.Subject = subject
	return req.WithContext(middleware.WithClaims(req.Context(), claims))
}

func withID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func seed(t *testing.T, store core.DesignStore, userID, name string) string {
	t.Helper()
	id, err := store.Save(context.Background(), &core.Design{
		UserID:     userID,
		Name:       name,
		Garment:    core.GarmentTShirt,
		SceneState: []byte(`{"version":1,"objects":[]}`),
	})
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	return id
}

func TestHandleListDesigns(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, "alice", "one")
	seed(t, store, "alice", "two")
	seed(t, store, "bob", "other")

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v2/designs", nil), "alice")
	rr := httptest.NewRecorder()
	HandleListDesigns(store).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var got []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d designs, want 2", len(got))
	}
	for _, d := range got {
		if _, ok := d["fabricState"]; ok {
			t.Errorf("list response carries fabricState: %v", d)
		}
	}
}

func TestHandleListDesigns_EmptyIsArray(t *testing.T) {
	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v2/designs", nil), "nobody")
	rr := httptest.NewRecorder()
	HandleListDesigns(memory.NewStore()).ServeHTTP(rr, req)

	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want empty JSON array", body)
	}
}

func TestHandlers_RequireClaims(t *testing.T) {
	store := memory.NewStore()
	for name, h := range map[string]http.HandlerFunc{
		"list":   HandleListDesigns(store),
		"get":    HandleGetDesign(store),
		"delete": HandleDeleteDesign(store),
	} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want %d", name, rr.Code, http.StatusUnauthorized)
		}
	}
}

func TestHandleGetDesign(t *testing.T) {
	store := memory.NewStore()
	id := seed(t, store, "alice", "mine")

	tests := []struct {
		name string
		user string
		id   string
		want int
	}{
		{"owner", "alice", id, http.StatusOK},
		{"other user", "bob", id, http.StatusNotFound},
		{"unknown", "alice", "missing", http.StatusNotFound},
		{"empty id", "alice", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withID(withUser(httptest.NewRequest(http.MethodGet, "/", nil), tt.user), tt.id)
			rr := httptest.NewRecorder()
			HandleGetDesign(store).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}

	req := withID(withUser(httptest.NewRequest(http.MethodGet, "/", nil), "alice"), id)
	rr := httptest.NewRecorder()
	HandleGetDesign(store).ServeHTTP(rr, req)
	var got core.Design
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode design: %v", err)
	}
	if got.Name != "mine" || len(got.SceneState) == 0 {
		t.Errorf("unexpected design %+v", got)
	}
	if !strings.Contains(rr.Body.String(), `"fabricState":{"version":1,"objects":[]}`) {
		t.Errorf("scene state should be sent as JSON, got %s", rr.Body.String())
	}
}

func TestHandleEditDesign(t *testing.T) {
	rr := httptest.NewRecorder()
	HandleEditDesign().ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/", nil))
	if rr.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotImplemented)
	}
}

func TestHandleDeleteDesign(t *testing.T) {
	store := memory.NewStore()
	id := seed(t, store, "alice", "doomed")

	del := func(user string) int {
		req := withID(withUser(httptest.NewRequest(http.MethodDelete, "/", nil), user), id)
		rr := httptest.NewRecorder()
		HandleDeleteDesign(store).ServeHTTP(rr, req)
		return rr.Code
	}

	if code := del("bob"); code != http.StatusNotFound {
		t.Errorf("foreign delete status = %d, want %d", code, http.StatusNotFound)
	}
	if code := del("alice"); code != http.StatusNoContent {
		t.Errorf("delete status = %d, want %d", code, http.StatusNoContent)
	}
	if code := del("alice"); code != http.StatusNotFound {
		t.Errorf("repeat delete status = %d, want %d", code, http.StatusNotFound)
	}
}
