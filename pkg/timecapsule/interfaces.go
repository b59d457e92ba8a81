package timecapsule

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// BlobStore defines the interface for blob storage backends
type BlobStore interface {
	// Upload stores the content under objectKey with the given MIME type
	Upload(ctx context.Context, objectKey string, reader io.Reader, mimeType string) error

	// GetPublicURL returns a durable URL for the stored object
	GetPublicURL(ctx context.Context, objectKey string) (string, error)

	// Download retrieves the content stored under objectKey
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the object. Used only for best-effort cleanup of
	// orphaned blobs after a failed admission.
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for a stored object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Repository defines the interface for capsule, item and profile persistence
type Repository interface {
	// Capsule operations. CreateCapsule returns ErrCapsuleExists when the
	// owner already has a capsule; implementations must enforce the
	// one-capsule-per-owner invariant, not rely on caller discipline.
	CreateCapsule(ctx context.Context, capsule *Capsule) error
	GetCapsule(ctx context.Context, id uuid.UUID) (*Capsule, error)
	GetCapsuleByOwner(ctx context.Context, ownerID uuid.UUID) (*Capsule, error)

	// Item operations. Items are append-only.
	ListItems(ctx context.Context, capsuleID uuid.UUID) ([]*CapsuleItem, error)
	InsertItem(ctx context.Context, item *CapsuleItem) error

	// Profile operations
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (*Profile, error)
	SaveProfile(ctx context.Context, profile *Profile) error
	ListProfiles(ctx context.Context, limit int) ([]*Profile, error)
}
