package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/capsulewall/capsulewall/pkg/timecapsule"
)

// ProfileHandler handles HTTP requests for profiles and the public wall
type ProfileHandler struct {
	service timecapsule.Service
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(service timecapsule.Service) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// Routes returns the routes for profiles
func (h *ProfileHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Put("/avatar", h.SetAvatar)
	r.Put("/link", h.SetLink)

	return r
}

// SetAvatar uploads the caller's profile picture. Multipart field: "file".
func (h *ProfileHandler) SetAvatar(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(r)
	if !ok {
		http.Error(w, "caller identity required", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "avatar file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	profile, err := h.service.SetAvatar(r.Context(), timecapsule.SetAvatarRequest{
		UserID: callerID,
		File: timecapsule.FilePayload{
			FileName:  header.Filename,
			MimeType:  header.Header.Get("Content-Type"),
			SizeBytes: header.Size,
			Reader:    file,
		},
	})
	if err != nil {
		writeServiceError(w, "set avatar", err)
		return
	}

	slog.Info("Avatar updated", "user_id", callerID.String())
	render.JSON(w, r, profile)
}

// SetLinkRequest is the request body for updating a profile link
type SetLinkRequest struct {
	InstagramURL string `json:"instagram_url"`
}

// SetLink updates the caller's external profile link
func (h *ProfileHandler) SetLink(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(r)
	if !ok {
		http.Error(w, "caller identity required", http.StatusUnauthorized)
		return
	}

	var req SetLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	profile, err := h.service.SetProfileLink(r.Context(), timecapsule.SetProfileLinkRequest{
		UserID:       callerID,
		InstagramURL: req.InstagramURL,
	})
	if err != nil {
		writeServiceError(w, "set profile link", err)
		return
	}

	render.JSON(w, r, profile)
}

// Wall lists public profiles for the wall page
func (h *ProfileHandler) Wall(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	profiles, err := h.service.Wall(r.Context(), limit)
	if err != nil {
		writeServiceError(w, "wall", err)
		return
	}

	render.JSON(w, r, profiles)
}
