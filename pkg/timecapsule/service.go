package timecapsule

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the capsule engine
type Service interface {
	// Capsule operations
	CreateCapsule(ctx context.Context, req CreateCapsuleRequest) (*Capsule, error)
	GetCapsuleByOwner(ctx context.Context, ownerID uuid.UUID) (*Capsule, error)

	// Item admission
	AddItem(ctx context.Context, req AddItemRequest) (*CapsuleItem, error)

	// Read projections
	OwnerView(ctx context.Context, ownerID uuid.UUID) (*OwnerView, error)
	PublicView(ctx context.Context, username string, viewerID uuid.UUID) (*PublicView, error)

	// Profile operations
	SetAvatar(ctx context.Context, req SetAvatarRequest) (*Profile, error)
	SetProfileLink(ctx context.Context, req SetProfileLinkRequest) (*Profile, error)
	Wall(ctx context.Context, limit int) ([]*Profile, error)

	// Storage backend operations
	RegisterBackend(name string, backend BlobStore)
	GetBackend(name string) (BlobStore, error)
}
