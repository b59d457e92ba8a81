package timecapsule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/capsulewall/capsulewall/pkg/timecapsule/objectkey"
)

const defaultWallLimit = 2000

// service implements the Service interface
type service struct {
	repository     Repository
	blobStores     map[string]BlobStore
	defaultBackend string
	keys           objectkey.Generator
	admissions     *keyedMutex
	now            func() time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend. The first registered backend
// becomes the default unless WithDefaultBackend overrides it.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
		if s.defaultBackend == "" {
			s.defaultBackend = name
		}
	}
}

// WithDefaultBackend selects which registered backend receives uploads
func WithDefaultBackend(name string) Option {
	return func(s *service) {
		s.defaultBackend = name
	}
}

// WithObjectKeyGenerator sets the blob key generation strategy
func WithObjectKeyGenerator(gen objectkey.Generator) Option {
	return func(s *service) {
		s.keys = gen
	}
}

// WithClock overrides the service's time source. Used by tests that pin
// unlock-date comparisons.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores: make(map[string]BlobStore),
		admissions: newKeyedMutex(),
		keys:       objectkey.NewTimestampGenerator(),
		now:        time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	return s, nil
}

// Capsule operations

func (s *service) CreateCapsule(ctx context.Context, req CreateCapsuleRequest) (*Capsule, error) {
	if req.OwnerID == uuid.Nil {
		return nil, fmt.Errorf("owner id is required")
	}
	if !req.UnlockDate.After(s.now()) {
		return nil, ErrInvalidUnlockDate
	}

	// One capsule per owner: hand back the existing one instead of
	// creating a duplicate.
	existing, err := s.repository.GetCapsuleByOwner(ctx, req.OwnerID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrCapsuleNotFound) {
		return nil, &CapsuleError{Op: "create", Err: err}
	}

	now := s.now().UTC()
	capsule := &Capsule{
		ID:         uuid.New(),
		OwnerID:    req.OwnerID,
		UnlockDate: req.UnlockDate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repository.CreateCapsule(ctx, capsule); err != nil {
		// Lost a creation race: the repository's uniqueness guarantee
		// kicked in, so the winner's capsule is the one to return.
		if errors.Is(err, ErrCapsuleExists) {
			return s.repository.GetCapsuleByOwner(ctx, req.OwnerID)
		}
		return nil, &CapsuleError{
			CapsuleID: capsule.ID,
			Op:        "create",
			Err:       err,
		}
	}

	return capsule, nil
}

func (s *service) GetCapsuleByOwner(ctx context.Context, ownerID uuid.UUID) (*Capsule, error) {
	return s.repository.GetCapsuleByOwner(ctx, ownerID)
}

// Item admission

func (s *service) AddItem(ctx context.Context, req AddItemRequest) (*CapsuleItem, error) {
	capsule, err := s.repository.GetCapsule(ctx, req.CapsuleID)
	if err != nil {
		return nil, err
	}
	if req.CallerID == uuid.Nil || req.CallerID != capsule.OwnerID {
		return nil, ErrNotCapsuleOwner
	}

	text := strings.TrimSpace(req.Text)
	if req.File == nil && text == "" {
		return nil, ErrEmptyPayload
	}

	kind := ItemKindText
	var sizeMB float64
	if req.File != nil {
		kind, err = KindForMimeType(req.File.MimeType)
		if err != nil {
			return nil, err
		}
		sizeMB = float64(req.File.SizeBytes) / (1024 * 1024)
	}

	// Serialize check-then-commit per capsule so concurrent admissions
	// cannot jointly overshoot the quota.
	unlock := s.admissions.Lock(capsule.ID)
	defer unlock()

	items, err := s.repository.ListItems(ctx, capsule.ID)
	if err != nil {
		return nil, &CapsuleError{CapsuleID: capsule.ID, Op: "list_items", Err: err}
	}
	if err := CheckAdmission(items, sizeMB); err != nil {
		return nil, err
	}

	item := &CapsuleItem{
		ID:          uuid.New(),
		CapsuleID:   capsule.ID,
		Kind:        kind,
		TextContent: text,
		SizeMB:      sizeMB,
		IsPublic:    req.IsPublic,
		CreatedAt:   s.now().UTC(),
	}

	var backend BlobStore
	var key string
	if req.File != nil {
		backend, err = s.GetBackend(s.defaultBackend)
		if err != nil {
			return nil, err
		}

		key = s.keys.ItemKey(capsule.ID, req.File.FileName)
		if err := backend.Upload(ctx, key, req.File.Reader, req.File.MimeType); err != nil {
			return nil, &StorageError{
				Backend: s.defaultBackend,
				Key:     key,
				Op:      "upload",
				Err:     err,
			}
		}

		url, err := backend.GetPublicURL(ctx, key)
		if err != nil {
			s.cleanupBlob(ctx, backend, key)
			return nil, &StorageError{
				Backend: s.defaultBackend,
				Key:     key,
				Op:      "get_public_url",
				Err:     err,
			}
		}
		item.ContentURL = url
	}

	if err := s.repository.InsertItem(ctx, item); err != nil {
		if backend != nil {
			s.cleanupBlob(ctx, backend, key)
		}
		if IsQuotaError(err) {
			// Commit-time re-validation at the persistence layer caught a
			// concurrent admission from another process.
			return nil, err
		}
		return nil, &CapsuleError{CapsuleID: capsule.ID, Op: "insert_item", Err: err}
	}

	return item, nil
}

// cleanupBlob removes a blob whose item row never materialized. Best
// effort: a leftover orphan is logged, not surfaced to the caller.
func (s *service) cleanupBlob(ctx context.Context, backend BlobStore, key string) {
	if key == "" {
		return
	}
	if err := backend.Delete(ctx, key); err != nil {
		slog.Warn("failed to clean up orphaned blob", "key", key, "error", err)
	}
}

// Read projections

func (s *service) OwnerView(ctx context.Context, ownerID uuid.UUID) (*OwnerView, error) {
	capsule, err := s.repository.GetCapsuleByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	items, err := s.repository.ListItems(ctx, capsule.ID)
	if err != nil {
		return nil, &CapsuleError{CapsuleID: capsule.ID, Op: "owner_view", Err: err}
	}
	if items == nil {
		items = []*CapsuleItem{}
	}

	return &OwnerView{
		Capsule: capsule,
		Items:   items,
		Usage:   Usage(items),
		Locked:  capsule.Locked(s.now()),
	}, nil
}

func (s *service) PublicView(ctx context.Context, username string, viewerID uuid.UUID) (*PublicView, error) {
	profile, err := s.repository.GetProfileByUsername(ctx, username)
	if errors.Is(err, ErrProfileNotFound) {
		// Nothing to show is not a failure.
		return &PublicView{Items: []*CapsuleItem{}}, nil
	}
	if err != nil {
		return nil, err
	}

	capsule, err := s.repository.GetCapsuleByOwner(ctx, profile.ID)
	if errors.Is(err, ErrCapsuleNotFound) {
		return &PublicView{Profile: profile, Items: []*CapsuleItem{}}, nil
	}
	if err != nil {
		return nil, err
	}

	items, err := s.repository.ListItems(ctx, capsule.ID)
	if err != nil {
		return nil, &CapsuleError{CapsuleID: capsule.ID, Op: "public_view", Err: err}
	}

	return &PublicView{
		Profile: profile,
		Items:   VisibleItems(capsule, items, viewerID),
	}, nil
}

// Profile operations

func (s *service) SetAvatar(ctx context.Context, req SetAvatarRequest) (*Profile, error) {
	profile, err := s.repository.GetProfile(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	backend, err := s.GetBackend(s.defaultBackend)
	if err != nil {
		return nil, err
	}

	key := s.keys.AvatarKey(req.UserID, req.File.FileName)
	if err := backend.Upload(ctx, key, req.File.Reader, req.File.MimeType); err != nil {
		return nil, &StorageError{
			Backend: s.defaultBackend,
			Key:     key,
			Op:      "upload",
			Err:     err,
		}
	}

	url, err := backend.GetPublicURL(ctx, key)
	if err != nil {
		return nil, &StorageError{
			Backend: s.defaultBackend,
			Key:     key,
			Op:      "get_public_url",
			Err:     err,
		}
	}

	profile.AvatarURL = url
	profile.UpdatedAt = s.now().UTC()
	if err := s.repository.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

func (s *service) SetProfileLink(ctx context.Context, req SetProfileLinkRequest) (*Profile, error) {
	profile, err := s.repository.GetProfile(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	profile.InstagramURL = req.InstagramURL
	profile.UpdatedAt = s.now().UTC()
	if err := s.repository.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

func (s *service) Wall(ctx context.Context, limit int) ([]*Profile, error) {
	if limit <= 0 {
		limit = defaultWallLimit
	}
	return s.repository.ListProfiles(ctx, limit)
}

// Storage backend operations

func (s *service) RegisterBackend(name string, backend BlobStore) {
	s.blobStores[name] = backend
	if s.defaultBackend == "" {
		s.defaultBackend = name
	}
}

func (s *service) GetBackend(name string) (BlobStore, error) {
	backend, exists := s.blobStores[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrStorageBackendNotFound, name)
	}
	return backend, nil
}
