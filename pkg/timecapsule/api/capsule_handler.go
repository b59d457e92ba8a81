package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/capsulewall/capsulewall/pkg/timecapsule"
)

// callerHeader carries the already-resolved caller identity. Resolving it
// (session, JWT, whatever the deployment uses) happens upstream; the engine
// only ever sees the resulting UUID.
const callerHeader = "X-Caller-ID"

// maxUploadBytes bounds the multipart form we are willing to buffer. The
// quota rejects anything over 25MB anyway; this only caps memory use.
const maxUploadBytes = 32 << 20

// CapsuleHandler handles HTTP requests for capsules and item admission
type CapsuleHandler struct {
	service timecapsule.Service
}

// NewCapsuleHandler creates a new capsule handler
func NewCapsuleHandler(service timecapsule.Service) *CapsuleHandler {
	return &CapsuleHandler{service: service}
}

// Routes returns the routes for capsules
func (h *CapsuleHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateCapsule)
	r.Get("/mine", h.MyCapsule)
	r.Post("/{capsuleID}/items", h.AddItem)
	r.Get("/by-username/{username}", h.PublicCapsule)

	return r
}

// CreateCapsuleRequest is the request body for creating a capsule
type CreateCapsuleRequest struct {
	UnlockDate time.Time `json:"unlock_date"`
}

// CapsuleResponse is the response body for a capsule
type CapsuleResponse struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	UnlockDate time.Time `json:"unlock_date"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateCapsule creates the caller's capsule, or returns the existing one
func (h *CapsuleHandler) CreateCapsule(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(r)
	if !ok {
		http.Error(w, "caller identity required", http.StatusUnauthorized)
		return
	}

	var req CreateCapsuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	capsule, err := h.service.CreateCapsule(r.Context(), timecapsule.CreateCapsuleRequest{
		OwnerID:    callerID,
		UnlockDate: req.UnlockDate,
	})
	if err != nil {
		writeServiceError(w, "create capsule", err)
		return
	}

	slog.Info("Capsule created", "capsule_id", capsule.ID.String(), "owner_id", callerID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, capsuleToResponse(capsule))
}

// OwnerViewResponse is the response body for the owner dashboard view
type OwnerViewResponse struct {
	Capsule *CapsuleResponse           `json:"capsule"`
	Items   []*timecapsule.CapsuleItem `json:"items"`
	Usage   timecapsule.QuotaUsage     `json:"usage"`
	Locked  bool                       `json:"locked"`
}

// MyCapsule returns the caller's capsule with every item and quota usage
func (h *CapsuleHandler) MyCapsule(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(r)
	if !ok {
		http.Error(w, "caller identity required", http.StatusUnauthorized)
		return
	}

	view, err := h.service.OwnerView(r.Context(), callerID)
	if err != nil {
		writeServiceError(w, "owner view", err)
		return
	}

	render.JSON(w, r, OwnerViewResponse{
		Capsule: capsuleToResponse(view.Capsule),
		Items:   view.Items,
		Usage:   view.Usage,
		Locked:  view.Locked,
	})
}

// AddItem admits an item into a capsule. Multipart form fields: "text"
// (optional unless no file), "is_public", and "file" (optional).
func (h *CapsuleHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(r)
	if !ok {
		http.Error(w, "caller identity required", http.StatusUnauthorized)
		return
	}

	capsuleIDStr := chi.URLParam(r, "capsuleID")
	capsuleID, err := uuid.Parse(capsuleIDStr)
	if err != nil {
		slog.Error("Invalid capsule ID", "capsule_id", capsuleIDStr, "error", err)
		http.Error(w, "Invalid capsule ID", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	isPublic, _ := strconv.ParseBool(r.FormValue("is_public"))

	req := timecapsule.AddItemRequest{
		CapsuleID: capsuleID,
		CallerID:  callerID,
		Text:      r.FormValue("text"),
		IsPublic:  isPublic,
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		req.File = &timecapsule.FilePayload{
			FileName:  header.Filename,
			MimeType:  header.Header.Get("Content-Type"),
			SizeBytes: header.Size,
			Reader:    file,
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	item, err := h.service.AddItem(r.Context(), req)
	if err != nil {
		writeServiceError(w, "add item", err)
		return
	}

	slog.Info("Item admitted", "capsule_id", capsuleID.String(), "item_id", item.ID.String(), "kind", string(item.Kind))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, item)
}

// PublicCapsule returns the public projection of a capsule by username.
// Anonymous viewers see only public items; the capsule's own owner sees
// everything.
func (h *CapsuleHandler) PublicCapsule(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	// Missing identity is just an anonymous viewer here.
	viewerID, _ := caller(r)

	view, err := h.service.PublicView(r.Context(), username, viewerID)
	if err != nil {
		writeServiceError(w, "public view", err)
		return
	}

	if view.Profile == nil {
		http.Error(w, "capsule not found", http.StatusNotFound)
		return
	}

	render.JSON(w, r, view)
}

func capsuleToResponse(c *timecapsule.Capsule) *CapsuleResponse {
	return &CapsuleResponse{
		ID:         c.ID.String(),
		OwnerID:    c.OwnerID.String(),
		UnlockDate: c.UnlockDate,
		CreatedAt:  c.CreatedAt,
	}
}

// caller extracts the resolved caller identity from the request, reporting
// whether one was present.
func caller(r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(callerHeader)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps engine errors onto HTTP statuses. Validation and
// quota failures are the caller's to fix (422); infrastructure failures
// surface as gateway/server errors.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var status int
	var storageErr *timecapsule.StorageError

	switch {
	case errors.Is(err, timecapsule.ErrCapsuleNotFound),
		errors.Is(err, timecapsule.ErrProfileNotFound),
		errors.Is(err, timecapsule.ErrItemNotFound):
		status = http.StatusNotFound
	case errors.Is(err, timecapsule.ErrNotCapsuleOwner):
		status = http.StatusForbidden
	case timecapsule.IsQuotaError(err), timecapsule.IsValidationError(err):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &storageErr):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "op", op, "error", err)
	}
	http.Error(w, err.Error(), status)
}
