package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/capsulewall/capsulewall/pkg/timecapsule"
)

// Repository implements timecapsule.Repository using in-memory storage
type Repository struct {
	mu              sync.RWMutex
	capsules        map[uuid.UUID]*timecapsule.Capsule
	capsulesByOwner map[uuid.UUID]uuid.UUID // owner_id -> capsule_id
	items           map[uuid.UUID][]*timecapsule.CapsuleItem
	profiles        map[uuid.UUID]*timecapsule.Profile
	usernames       map[string]uuid.UUID // lowercase username -> profile_id
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		capsules:        make(map[uuid.UUID]*timecapsule.Capsule),
		capsulesByOwner: make(map[uuid.UUID]uuid.UUID),
		items:           make(map[uuid.UUID][]*timecapsule.CapsuleItem),
		profiles:        make(map[uuid.UUID]*timecapsule.Profile),
		usernames:       make(map[string]uuid.UUID),
	}
}

// Capsule operations

func (r *Repository) CreateCapsule(ctx context.Context, capsule *timecapsule.Capsule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// One capsule per owner, enforced here and not only at the service.
	if _, exists := r.capsulesByOwner[capsule.OwnerID]; exists {
		return timecapsule.ErrCapsuleExists
	}

	// Create a copy to avoid external modifications
	capsuleCopy := *capsule
	r.capsules[capsule.ID] = &capsuleCopy
	r.capsulesByOwner[capsule.OwnerID] = capsule.ID

	return nil
}

func (r *Repository) GetCapsule(ctx context.Context, id uuid.UUID) (*timecapsule.Capsule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	capsule, exists := r.capsules[id]
	if !exists {
		return nil, timecapsule.ErrCapsuleNotFound
	}

	// Return a copy to prevent external modifications
	capsuleCopy := *capsule
	return &capsuleCopy, nil
}

func (r *Repository) GetCapsuleByOwner(ctx context.Context, ownerID uuid.UUID) (*timecapsule.Capsule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	capsuleID, exists := r.capsulesByOwner[ownerID]
	if !exists {
		return nil, timecapsule.ErrCapsuleNotFound
	}

	capsuleCopy := *r.capsules[capsuleID]
	return &capsuleCopy, nil
}

// Item operations

func (r *Repository) ListItems(ctx context.Context, capsuleID uuid.UUID) ([]*timecapsule.CapsuleItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.items[capsuleID]
	result := make([]*timecapsule.CapsuleItem, 0, len(stored))
	for _, item := range stored {
		itemCopy := *item
		result = append(result, &itemCopy)
	}

	// Sort by created_at ascending so the owner view reads in admission order
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (r *Repository) InsertItem(ctx context.Context, item *timecapsule.CapsuleItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.capsules[item.CapsuleID]; !exists {
		return timecapsule.ErrCapsuleNotFound
	}

	// Create a copy to avoid external modifications
	itemCopy := *item
	r.items[item.CapsuleID] = append(r.items[item.CapsuleID], &itemCopy)

	return nil
}

// Profile operations

func (r *Repository) GetProfile(ctx context.Context, id uuid.UUID) (*timecapsule.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, exists := r.profiles[id]
	if !exists {
		return nil, timecapsule.ErrProfileNotFound
	}

	profileCopy := *profile
	return &profileCopy, nil
}

func (r *Repository) GetProfileByUsername(ctx context.Context, username string) (*timecapsule.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.usernames[strings.ToLower(username)]
	if !exists {
		return nil, timecapsule.ErrProfileNotFound
	}

	profileCopy := *r.profiles[id]
	return &profileCopy, nil
}

func (r *Repository) SaveProfile(ctx context.Context, profile *timecapsule.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.profiles[profile.ID]; exists && existing.Username != profile.Username {
		delete(r.usernames, strings.ToLower(existing.Username))
	}

	profileCopy := *profile
	r.profiles[profile.ID] = &profileCopy
	r.usernames[strings.ToLower(profile.Username)] = profile.ID

	return nil
}

func (r *Repository) ListProfiles(ctx context.Context, limit int) ([]*timecapsule.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*timecapsule.Profile, 0, len(r.profiles))
	for _, profile := range r.profiles {
		profileCopy := *profile
		result = append(result, &profileCopy)
	}

	// Sort by created_at descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}

	return result, nil
}
