// Package semaphore bounds how many simultaneous upstream model calls may
// exist across all processes sharing one host.
//
// Each of the N permitted concurrent calls is represented by a slot file.
// Acquisition attempts an exclusive create (O_CREATE|O_EXCL) of each slot's
// backing token in turn; the atomic create-if-absent semantics of the local
// filesystem are the correctness mechanism. A token older than the
// staleness threshold is presumed abandoned by a crashed holder and is
// reclaimed.
//
// Single-host assumption: exclusive create is only trusted on a local
// filesystem. Network filesystems without atomic O_EXCL guarantees are not
// supported.
package semaphore
