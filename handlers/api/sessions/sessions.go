package sessions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"youngin-studio/core"
	"youngin-studio/middleware"
	"youngin-studio/scene"
	"youngin-studio/studio"
)

// maxBodySize bounds request bodies; uploads arrive as data URLs.
const maxBodySize = 16 << 20

type (
	SelectActiveRequest struct {
		ID string `json:"id"`
	}

	SelectGarmentRequest struct {
		Garment string `json:"garment"`
		// Image is the uploaded template for the custom garment; empty cancels the upload.
		Image string `json:"image"`
	}

	SaveRequest struct {
		Name string `json:"name"`
	}

	HistoryResponse struct {
		Changed bool        `json:"changed"`
		State   studio.View `json:"state"`
	}
)

// Handler serves the design studio routes.
type Handler struct {
	manager *studio.Manager
}

func New(manager *studio.Manager) *Handler {
	return &Handler{manager: manager}
}

// Routes mounts the session routes; the caller applies authentication.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleCreate)
	r.Route("/{sid}", func(r chi.Router) {
		r.Get("/", h.HandleState)
		r.Delete("/", h.HandleClose)
		r.Post("/objects", h.HandleAddObject)
		r.Patch("/objects/{oid}", h.HandleUpdateObject)
		r.Delete("/objects/{oid}", h.HandleRemoveObject)
		r.Put("/active", h.HandleSetActive)
		r.Delete("/active", h.HandleDiscardActive)
		r.Post("/clear", h.HandleClear)
		r.Post("/undo", h.HandleUndo)
		r.Post("/redo", h.HandleRedo)
		r.Put("/garment", h.HandleSelectGarment)
		r.Get("/composite", h.HandleComposite)
		r.Post("/save", h.HandleSave)
		r.Post("/load/{id}", h.HandleLoad)
	})
	return r
}

func errorJSON(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// writeError maps studio errors to HTTP statuses; anything unrecognised gets fallback.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback int) {
	status := fallback
	switch {
	case studio.IsNotFound(err), errors.Is(err, core.ErrDesignNotFound):
		status = http.StatusNotFound
	case errors.Is(err, studio.ErrSaveInProgress):
		status = http.StatusConflict
	case errors.Is(err, studio.ErrUnknownGarment), errors.Is(err, studio.ErrInvalidUpload):
		status = http.StatusBadRequest
	case errors.Is(err, studio.ErrOwnerRequired):
		status = http.StatusUnauthorized
	case errors.Is(err, studio.ErrSurfaceUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", r.URL.Path).Error("Studio request failed")
	}
	errorJSON(w, r, status, err.Error())
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return io.EOF
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// session resolves the caller and the session named in the path.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*studio.Session, *core.User, bool) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		errorJSON(w, r, http.StatusUnauthorized, "User claims not found")
		return nil, nil, false
	}
	s, err := h.manager.Get(user.Subject, chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return nil, nil, false
	}
	return s, user, true
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		errorJSON(w, r, http.StatusUnauthorized, "User claims not found")
		return
	}
	s, err := h.manager.Create(r.Context(), user.Subject)
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, s.State())
}

func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, s.State())
}

func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		errorJSON(w, r, http.StatusUnauthorized, "User claims not found")
		return
	}
	if err := h.manager.Close(user.Subject, chi.URLParam(r, "sid")); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeObject(w http.ResponseWriter, r *http.Request, status int, obj scene.Object) {
	data, err := scene.MarshalObject(obj)
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (h *Handler) HandleAddObject(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		errorJSON(w, r, http.StatusBadRequest, "Failed to read request body")
		return
	}
	obj, err := scene.UnmarshalObject(body)
	if err != nil {
		errorJSON(w, r, http.StatusBadRequest, err.Error())
		return
	}
	added, err := s.AddObject(obj)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	writeObject(w, r, http.StatusCreated, added)
}

func (h *Handler) HandleUpdateObject(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	var patch scene.Patch
	if err := decode(r, &patch); err != nil {
		errorJSON(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.UpdateObject(chi.URLParam(r, "oid"), patch)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	writeObject(w, r, http.StatusOK, updated)
}

func (h *Handler) HandleRemoveObject(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RemoveObject(chi.URLParam(r, "oid")); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, s.State())
}

func (h *Handler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SelectActiveRequest
	if err := decode(r, &req); err != nil {
		errorJSON(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.SetActive(req.ID); err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	render.JSON(w, r, s.State())
}

func (h *Handler) HandleDiscardActive(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	s.DiscardActive()
	render.JSON(w, r, s.State())
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Clear(); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, s.State())
}

func (h *Handler) HandleUndo(w http.ResponseWriter, r *http.Request) {
	h.handleHistory(w, r, (*studio.Session).Undo)
}

func (h *Handler) HandleRedo(w http.ResponseWriter, r *http.Request) {
	h.handleHistory(w, r, (*studio.Session).Redo)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request, step func(*studio.Session) (bool, error)) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	changed, err := step(s)
	if err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	render.JSON(w, r, HistoryResponse{Changed: changed, State: s.State()})
}

func (h *Handler) HandleSelectGarment(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SelectGarmentRequest
	if err := decode(r, &req); err != nil {
		errorJSON(w, r, http.StatusBadRequest, err.Error())
		return
	}
	garment, err := core.ParseGarment(req.Garment)
	if err != nil {
		errorJSON(w, r, http.StatusBadRequest, err.Error())
		return
	}
	changed, err := s.SelectGarment(r.Context(), garment, studio.Upload(req.Image))
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, HistoryResponse{Changed: changed, State: s.State()})
}

func (h *Handler) HandleComposite(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	data, err := s.Composite(r.Context())
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	filename := fmt.Sprintf("youngin-design-%d.png", time.Now().UnixMilli())
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	s, user, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SaveRequest
	if err := decode(r, &req); err != nil && err != io.EOF {
		errorJSON(w, r, http.StatusBadRequest, err.Error())
		return
	}
	design, err := s.Save(r.Context(), user, req.Name)
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, design.Summary())
}

func (h *Handler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	s, user, ok := h.session(w, r)
	if !ok {
		return
	}
	design, err := h.manager.Store().Get(r.Context(), user.Subject, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	if err := s.LoadDesign(design); err != nil {
		writeError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	render.JSON(w, r, s.State())
}
