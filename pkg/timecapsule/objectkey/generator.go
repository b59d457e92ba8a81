package objectkey

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator defines the interface for blob object key generation strategies.
type Generator interface {
	// ItemKey creates the object key for a capsule item upload.
	ItemKey(capsuleID uuid.UUID, fileName string) string

	// AvatarKey creates the object key for a profile avatar. Avatar keys
	// are stable per user so a re-upload replaces the previous avatar.
	AvatarKey(userID uuid.UUID, fileName string) string
}

// TimestampGenerator prefixes item file names with the capsule ID and a
// millisecond timestamp: {capsuleID}/{unixMilli}-{filename}. The timestamp
// keeps repeated uploads of the same file name from colliding.
type TimestampGenerator struct {
	// Now allows tests to pin the timestamp. Defaults to time.Now.
	Now func() time.Time
}

// NewTimestampGenerator returns the default key generator.
func NewTimestampGenerator() *TimestampGenerator {
	return &TimestampGenerator{Now: time.Now}
}

func (g *TimestampGenerator) ItemKey(capsuleID uuid.UUID, fileName string) string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return fmt.Sprintf("%s/%d-%s", capsuleID, now().UnixMilli(), SanitizeFilename(fileName))
}

func (g *TimestampGenerator) AvatarKey(userID uuid.UUID, fileName string) string {
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	if ext == "" {
		return fmt.Sprintf("avatars/%s", userID)
	}
	return fmt.Sprintf("avatars/%s.%s", userID, SanitizeFilename(ext))
}

// SanitizeFilename replaces characters that are problematic in object keys
// and filesystem paths.
func SanitizeFilename(fileName string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(fileName)
}
