package timecapsule

import "github.com/google/uuid"

// VisibleItems filters a capsule's items for the given viewer. The owner
// sees every item regardless of visibility flags or unlock date. Any other
// viewer (uuid.Nil for anonymous) sees exactly the public subset.
//
// The unlock date is deliberately not consulted here: a locked capsule's
// public items are publicly visible before unlock. The lock only drives the
// owner's dashboard banner.
func VisibleItems(capsule *Capsule, items []*CapsuleItem, viewerID uuid.UUID) []*CapsuleItem {
	if capsule == nil {
		return []*CapsuleItem{}
	}

	if viewerID != uuid.Nil && viewerID == capsule.OwnerID {
		if items == nil {
			return []*CapsuleItem{}
		}
		return items
	}

	visible := make([]*CapsuleItem, 0, len(items))
	for _, item := range items {
		if item.IsPublic {
			visible = append(visible, item)
		}
	}
	return visible
}
