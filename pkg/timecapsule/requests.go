package timecapsule

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// Request/Response DTOs

// CreateCapsuleRequest contains parameters for creating a capsule
type CreateCapsuleRequest struct {
	OwnerID    uuid.UUID
	UnlockDate time.Time
}

// FilePayload describes an uploaded file for admission. SizeBytes must be
// the full byte length of the content; the quota check depends on it being
// known before the blob upload happens.
type FilePayload struct {
	FileName  string
	MimeType  string
	SizeBytes int64
	Reader    io.Reader
}

// AddItemRequest contains parameters for admitting an item into a capsule.
// Text without File admits a text item. File admits a file item; Text is
// then kept as the item's caption. Neither is a validation error.
type AddItemRequest struct {
	CapsuleID uuid.UUID
	CallerID  uuid.UUID
	Text      string
	File      *FilePayload
	IsPublic  bool
}

// SetAvatarRequest contains parameters for uploading a profile avatar
type SetAvatarRequest struct {
	UserID uuid.UUID
	File   FilePayload
}

// SetProfileLinkRequest contains parameters for updating a profile's
// external link
type SetProfileLinkRequest struct {
	UserID       uuid.UUID
	InstagramURL string
}
