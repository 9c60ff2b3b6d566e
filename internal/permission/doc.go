// Package permission implements the per-tool-invocation authorization state
// machine. Every tool call that needs permission moves through
// Requested -> AllowedTemporary | AllowedSession | Rejected.
//
// Approving a call "for the session" persists a grant keyed by the tool and
// a derived trust scope: the exact input, or for compound shell commands a
// safely-derived command prefix. Grants live for the process lifetime only.
// Commands classified high-risk never enter the grant cache; they re-prompt
// on every call regardless of prior decisions.
package permission
