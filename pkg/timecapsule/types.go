package timecapsule

import (
	"time"

	"github.com/google/uuid"
)

// ItemKind is the domain type for capsule item content kinds.
type ItemKind string

// Item kind constants (typed).
const (
	ItemKindText  ItemKind = "text"
	ItemKindImage ItemKind = "image"
	ItemKindVideo ItemKind = "video"
	ItemKindAudio ItemKind = "audio"
	ItemKindPDF   ItemKind = "pdf"
)

// IsValid reports whether the kind is one of the supported item kinds.
func (k ItemKind) IsValid() bool {
	switch k {
	case ItemKindText, ItemKindImage, ItemKindVideo, ItemKindAudio, ItemKindPDF:
		return true
	}
	return false
}

// Capsule is a single per-owner container that unlocks at a future date.
// The unlock date is immutable after creation; there is no edit path.
type Capsule struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	UnlockDate time.Time `json:"unlock_date"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Locked reports whether the capsule's unlock date is still in the future.
// Locked state gates only the owner-facing banner; per-item public
// visibility never consults it.
func (c *Capsule) Locked(now time.Time) bool {
	return c.UnlockDate.After(now)
}

// CapsuleItem is one unit of content inside a capsule. Items are
// append-only: never updated or deleted once admitted.
//
// Kind "text" carries non-empty TextContent and no ContentURL. All other
// kinds carry a ContentURL into the blob store; TextContent is then an
// optional caption recorded alongside the file.
type CapsuleItem struct {
	ID          uuid.UUID `json:"id"`
	CapsuleID   uuid.UUID `json:"capsule_id"`
	Kind        ItemKind  `json:"kind"`
	TextContent string    `json:"text_content,omitempty"`
	ContentURL  string    `json:"content_url,omitempty"`
	SizeMB      float64   `json:"size_mb"`
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
}

// QuotaUsage is the derived aggregate state of a capsule's item set.
// It is always computed as a fold over the current items, never cached.
type QuotaUsage struct {
	ItemCount   int     `json:"item_count"`
	TotalSizeMB float64 `json:"total_size_mb"`
}

// Profile is the public-facing identity a capsule is resolved through.
// The engine reads profiles but does not own authentication.
type Profile struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	InstagramURL string    `json:"instagram_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OwnerView is the owner's dashboard projection of a capsule: every item
// regardless of visibility, the derived quota usage, and the locked flag.
type OwnerView struct {
	Capsule *Capsule       `json:"capsule"`
	Items   []*CapsuleItem `json:"items"`
	Usage   QuotaUsage     `json:"usage"`
	Locked  bool           `json:"locked"`
}

// PublicView is a third-party viewer's projection of a capsule resolved by
// username. A missing profile yields an empty view (nil Profile), not an
// error; a profile without a capsule yields the profile with no items.
type PublicView struct {
	Profile *Profile       `json:"profile,omitempty"`
	Items   []*CapsuleItem `json:"items"`
}

// ObjectMeta contains metadata about an object in blob storage.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}
