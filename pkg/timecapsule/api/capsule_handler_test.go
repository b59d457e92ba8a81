package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capsulewall/capsulewall/pkg/timecapsule"
	repomemory "github.com/capsulewall/capsulewall/pkg/timecapsule/repo/memory"
	memorystorage "github.com/capsulewall/capsulewall/pkg/timecapsule/storage/memory"
)

func setupTestRouter(t *testing.T) (chi.Router, timecapsule.Service, *repomemory.Repository) {
	t.Helper()

	repo := repomemory.New()
	svc, err := timecapsule.New(
		timecapsule.WithRepository(repo),
		timecapsule.WithBlobStore("memory", memorystorage.New()),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/capsules", NewCapsuleHandler(svc).Routes())
	profiles := NewProfileHandler(svc)
	r.Mount("/profile", profiles.Routes())
	r.Get("/wall", profiles.Wall)

	return r, svc, repo
}

func doJSON(t *testing.T, router chi.Router, method, path string, callerID uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if callerID != uuid.Nil {
		req.Header.Set(callerHeader, callerID.String())
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// multipartBody builds a multipart form with optional text fields and a file
// part carrying an explicit Content-Type.
func multipartBody(t *testing.T, fields map[string]string, fileName, fileMime, fileContent string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}

	if fileName != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
		header.Set("Content-Type", fileMime)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte(fileContent))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func createCapsuleViaAPI(t *testing.T, router chi.Router, owner uuid.UUID) CapsuleResponse {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/capsules/", owner, CreateCapsuleRequest{
		UnlockDate: time.Now().AddDate(1, 0, 0),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CapsuleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateCapsuleEndpoint(t *testing.T) {
	t.Run("creates capsule for caller", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)
		owner := uuid.New()

		resp := createCapsuleViaAPI(t, router, owner)
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, owner.String(), resp.OwnerID)
	})

	t.Run("requires caller identity", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		rec := doJSON(t, router, http.MethodPost, "/capsules/", uuid.Nil, CreateCapsuleRequest{
			UnlockDate: time.Now().AddDate(1, 0, 0),
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/capsules/", strings.NewReader("{not json"))
		req.Header.Set(callerHeader, uuid.New().String())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects past unlock date", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		rec := doJSON(t, router, http.MethodPost, "/capsules/", uuid.New(), CreateCapsuleRequest{
			UnlockDate: time.Now().AddDate(0, 0, -1),
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("repeat create returns the same capsule", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)
		owner := uuid.New()

		first := createCapsuleViaAPI(t, router, owner)
		second := createCapsuleViaAPI(t, router, owner)
		assert.Equal(t, first.ID, second.ID)
	})
}

func TestMyCapsuleEndpoint(t *testing.T) {
	t.Run("returns owner view with usage", func(t *testing.T) {
		router, svc, _ := setupTestRouter(t)
		owner := uuid.New()
		capsule := createCapsuleViaAPI(t, router, owner)

		capsuleID := uuid.MustParse(capsule.ID)
		_, err := svc.AddItem(context.Background(), timecapsule.AddItemRequest{
			CapsuleID: capsuleID,
			CallerID:  owner,
			Text:      "first note",
		})
		require.NoError(t, err)

		rec := doJSON(t, router, http.MethodGet, "/capsules/mine", owner, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var view OwnerViewResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.Equal(t, capsule.ID, view.Capsule.ID)
		assert.Len(t, view.Items, 1)
		assert.Equal(t, 1, view.Usage.ItemCount)
		assert.True(t, view.Locked)
	})

	t.Run("404 when caller has no capsule", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		rec := doJSON(t, router, http.MethodGet, "/capsules/mine", uuid.New(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("requires caller identity", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		rec := doJSON(t, router, http.MethodGet, "/capsules/mine", uuid.Nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAddItemEndpoint(t *testing.T) {
	postItem := func(t *testing.T, router chi.Router, capsuleID string, callerID uuid.UUID, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/capsules/"+capsuleID+"/items", body)
		req.Header.Set("Content-Type", contentType)
		if callerID != uuid.Nil {
			req.Header.Set(callerHeader, callerID.String())
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("admits text item", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)
		owner := uuid.New()
		capsule := createCapsuleViaAPI(t, router, owner)

		body, contentType := multipartBody(t, map[string]string{
			"text":      "hello future",
			"is_public": "true",
		}, "", "", "")

		rec := postItem(t, router, capsule.ID, owner, body, contentType)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var item timecapsule.CapsuleItem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
		assert.Equal(t, timecapsule.ItemKindText, item.Kind)
		assert.Equal(t, "hello future", item.TextContent)
		assert.True(t, item.IsPublic)
	})

	t.Run("admits file item", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)
		owner := uuid.New()
		capsule := createCapsuleViaAPI(t, router, owner)

		body, contentType := multipartBody(t, map[string]string{"text": "caption"}, "pic.jpg", "image/jpeg", "jpeg bytes")

		rec := postItem(t, router, capsule.ID, owner, body, contentType)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var item timecapsule.CapsuleItem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
		assert.Equal(t, timecapsule.ItemKindImage, item.Kind)
		assert.Equal(t, "caption", item.TextContent)
		assert.NotEmpty(t, item.ContentURL)
	})

	t.Run("rejects unsupported type with 422", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)
		owner := uuid.New()
		capsule := createCapsuleViaAPI(t, router, owner)

		body, contentType := multipartBody(t, nil, "archive.zip", "application/zip", "zip bytes")

		rec := postItem(t, router, capsule.ID, owner, body, contentType)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("rejects sixth item with 422", func(t *testing.T) {
		router, svc, _ := setupTestRouter(t)
		owner := uuid.New()
		capsule := createCapsuleViaAPI(t, router, owner)
		capsuleID := uuid.MustParse(capsule.ID)

		for i := 0; i < timecapsule.MaxItems; i++ {
			_, err := svc.AddItem(context.Background(), timecapsule.AddItemRequest{
				CapsuleID: capsuleID,
				CallerID:  owner,
				Text:      fmt.Sprintf("note %d", i),
			})
			require.NoError(t, err)
		}

		body, contentType := multipartBody(t, map[string]string{"text": "overflow"}, "", "", "")
		rec := postItem(t, router, capsule.ID, owner, body, contentType)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("non-owner gets 403", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)
		capsule := createCapsuleViaAPI(t, router, uuid.New())

		body, contentType := multipartBody(t, map[string]string{"text": "intruder"}, "", "", "")
		rec := postItem(t, router, capsule.ID, uuid.New(), body, contentType)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown capsule gets 404", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		body, contentType := multipartBody(t, map[string]string{"text": "hello"}, "", "", "")
		rec := postItem(t, router, uuid.New().String(), uuid.New(), body, contentType)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed capsule id gets 400", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		body, contentType := multipartBody(t, map[string]string{"text": "hello"}, "", "", "")
		rec := postItem(t, router, "not-a-uuid", uuid.New(), body, contentType)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("requires caller identity", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		body, contentType := multipartBody(t, map[string]string{"text": "hello"}, "", "", "")
		rec := postItem(t, router, uuid.New().String(), uuid.Nil, body, contentType)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPublicCapsuleEndpoint(t *testing.T) {
	seedProfile := func(t *testing.T, repo *repomemory.Repository, username string) *timecapsule.Profile {
		t.Helper()
		profile := &timecapsule.Profile{
			ID:        uuid.New(),
			Username:  username,
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, repo.SaveProfile(context.Background(), profile))
		return profile
	}

	t.Run("stranger sees only public items", func(t *testing.T) {
		router, svc, repo := setupTestRouter(t)
		profile := seedProfile(t, repo, "maya")
		capsule := createCapsuleViaAPI(t, router, profile.ID)
		capsuleID := uuid.MustParse(capsule.ID)

		ctx := context.Background()
		_, err := svc.AddItem(ctx, timecapsule.AddItemRequest{
			CapsuleID: capsuleID, CallerID: profile.ID, Text: "secret",
		})
		require.NoError(t, err)
		_, err = svc.AddItem(ctx, timecapsule.AddItemRequest{
			CapsuleID: capsuleID, CallerID: profile.ID, Text: "public note", IsPublic: true,
		})
		require.NoError(t, err)

		rec := doJSON(t, router, http.MethodGet, "/capsules/by-username/maya", uuid.New(), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var view timecapsule.PublicView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		require.NotNil(t, view.Profile)
		assert.Equal(t, "maya", view.Profile.Username)
		require.Len(t, view.Items, 1)
		assert.Equal(t, "public note", view.Items[0].TextContent)
	})

	t.Run("owner sees everything on own public page", func(t *testing.T) {
		router, svc, repo := setupTestRouter(t)
		profile := seedProfile(t, repo, "selfie")
		capsule := createCapsuleViaAPI(t, router, profile.ID)

		_, err := svc.AddItem(context.Background(), timecapsule.AddItemRequest{
			CapsuleID: uuid.MustParse(capsule.ID), CallerID: profile.ID, Text: "private",
		})
		require.NoError(t, err)

		rec := doJSON(t, router, http.MethodGet, "/capsules/by-username/selfie", profile.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var view timecapsule.PublicView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.Len(t, view.Items, 1)
	})

	t.Run("anonymous viewer is allowed", func(t *testing.T) {
		router, _, repo := setupTestRouter(t)
		seedProfile(t, repo, "open")

		rec := doJSON(t, router, http.MethodGet, "/capsules/by-username/open", uuid.Nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown username gets 404", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		rec := doJSON(t, router, http.MethodGet, "/capsules/by-username/ghost", uuid.Nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
