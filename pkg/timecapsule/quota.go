package timecapsule

// Quota policy constants. A capsule admits at most MaxItems items and at
// most MaxTotalMB megabytes across all of them; text items contribute zero.
const (
	MaxItems   = 5
	MaxTotalMB = 25.0
)

// Usage folds the current item set into its derived quota aggregate.
func Usage(items []*CapsuleItem) QuotaUsage {
	usage := QuotaUsage{ItemCount: len(items)}
	for _, item := range items {
		usage.TotalSizeMB += item.SizeMB
	}
	return usage
}

// CheckAdmission decides whether a candidate of candidateSizeMB may join
// the given item set. The count rule is evaluated before the size rule, so
// a full capsule reports ErrItemLimitExceeded even for oversized candidates.
// The decision is only valid while the item set cannot change; callers hold
// the per-capsule admission lock across check and commit.
func CheckAdmission(items []*CapsuleItem, candidateSizeMB float64) error {
	if len(items) >= MaxItems {
		return ErrItemLimitExceeded
	}
	if Usage(items).TotalSizeMB+candidateSizeMB > MaxTotalMB {
		return ErrSizeLimitExceeded
	}
	return nil
}
