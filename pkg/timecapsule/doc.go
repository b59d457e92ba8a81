// Package timecapsule provides the capsule content quota and visibility
// engine: a library for accumulating a bounded set of content items into a
// single per-owner capsule with a future unlock date and independent
// per-item public/private flags.
//
// It exposes a single Service interface that orchestrates capsule creation,
// item admission (quota check, blob upload, persistence as one atomic
// unit), and viewer-dependent read projections. Implementations of
// repositories (memory, Postgres) and blob stores (memory, filesystem, S3)
// are provided under subpackages.
//
// Admission Discipline
//
// A capsule admits at most MaxItems items and MaxTotalMB megabytes. The
// quota decision is made against a consistent snapshot: the service holds a
// per-capsule lock from check through commit, and the Postgres repository
// re-validates the aggregate inside the insert transaction, so concurrent
// admissions can never jointly overshoot the limits.
package timecapsule
