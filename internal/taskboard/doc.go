// Package taskboard provides the shared, queryable list of work units per
// team. Task IDs are monotonically assigned per team and never reused, even
// after deletion. The blockedBy field records dependency edges as advisory
// metadata for calling agents; the board itself never enforces them.
//
// Mutations are guarded by a per-team flock(2) lock so concurrent writer
// processes cannot lose updates through read-modify-write interleaving.
package taskboard
