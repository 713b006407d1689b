package designs

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"youngin-studio/core"
	"youngin-studio/middleware"
)

func HandleListDesigns(store core.DesignStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFrom(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		designs, err := store.ListByOwner(r.Context(), user.Subject)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": user.Subject,
			}).Error("Failed to list designs")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to list designs"})
			return
		}

		if designs == nil {
			designs = []*core.Design{}
		}
		render.JSON(w, r, designs)
	}
}

func HandleGetDesign(store core.DesignStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFrom(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Design id is required"})
			return
		}

		design, err := store.Get(r.Context(), user.Subject, id)
		if err != nil {
			log := logrus.WithFields(logrus.Fields{
				"error":    err,
				"userID":   user.Subject,
				"designID": id,
			})
			if errors.Is(err, core.ErrDesignNotFound) {
				log.Warn("Design not found")
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, map[string]string{"error": "Design not found"})
				return
			}
			log.Error("Failed to get design")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to get design"})
			return
		}

		render.JSON(w, r, design)
	}
}

// HandleEditDesign is a placeholder; saved designs cannot be edited in place yet.
func HandleEditDesign() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusNotImplemented)
		render.JSON(w, r, map[string]string{"error": "Editing saved designs is not supported yet"})
	}
}

func HandleDeleteDesign(store core.DesignStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFrom(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Design id is required"})
			return
		}

		if err := store.Delete(r.Context(), user.Subject, id); err != nil {
			log := logrus.WithFields(logrus.Fields{
				"error":    err,
				"userID":   user.Subject,
				"designID": id,
			})
			if errors.Is(err, core.ErrDesignNotFound) {
				log.Warn("Design not found for deletion")
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, map[string]string{"error": "Design not found"})
				return
			}
			log.Error("Failed to delete design")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to delete design"})
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
