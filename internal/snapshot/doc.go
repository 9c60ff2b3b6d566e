// Package snapshot persists immutable point-in-time copies of a
// conversation's message log and recovers them later by id, prefix,
// position, or label.
//
// Snapshots are plain JSON files under a single directory. Once written
// a snapshot is never modified; recovery is strictly read-only. The live
// message log a snapshot is taken from is located by a derived session
// identity so that unrelated working directories never collide.
package snapshot
