package permission

import (
	"encoding/json"
	"fmt"
	"strings"
)

// multiWordCommands are tools whose first subcommand participates in the
// trust prefix, so "git status" and "git push" are distinct scopes.
var multiWordCommands = map[string]bool{
	"git":     true,
	"go":      true,
	"npm":     true,
	"npx":     true,
	"yarn":    true,
	"pnpm":    true,
	"cargo":   true,
	"docker":  true,
	"kubectl": true,
	"pip":     true,
	"pip3":    true,
}

// injectionMarkers are substrings whose presence makes prefix derivation
// unsafe: the visible prefix no longer bounds what the command can do.
var injectionMarkers = []string{
	"$(", "`", "${", "<(", ">(", "\n", "\\\n", "$IFS",
}

// DerivePrefix computes the coarser trust scope for a compound shell-like
// command. It returns ("", false) when no safe prefix exists: the command
// shows signs of shell injection, its segments disagree on a prefix, or it
// is empty. Callers fall back to exact-input scope rather than widening
// trust.
func DerivePrefix(command string) (string, bool) {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return "", false
	}

	for _, marker := range injectionMarkers {
		if strings.Contains(trimmed, marker) {
			return "", false
		}
	}

	segments := splitCompound(trimmed)
	prefix := ""
	for _, seg := range segments {
		p := segmentPrefix(seg)
		if p == "" {
			return "", false
		}
		if prefix == "" {
			prefix = p
		} else if prefix != p {
			// Mixed prefixes across a compound command are ambiguous.
			return "", false
		}
	}
	return prefix, prefix != ""
}

// splitCompound splits a command on the shell sequencing operators
// (&&, ||, ;, |) without attempting full shell parsing. Injection markers
// have already been rejected by the caller.
func splitCompound(command string) []string {
	replaced := strings.NewReplacer("&&", "\x00", "||", "\x00", ";", "\x00", "|", "\x00").Replace(command)
	parts := strings.Split(replaced, "\x00")

	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// segmentPrefix derives the prefix of a single command segment: the first
// word, extended by the subcommand for known multi-word tools.
func segmentPrefix(segment string) string {
	fields := strings.Fields(segment)
	if len(fields) == 0 {
		return ""
	}
	head := fields[0]
	if multiWordCommands[head] && len(fields) > 1 && !strings.HasPrefix(fields[1], "-") {
		return head + " " + fields[1]
	}
	return head
}

// scopeKey derives the grant cache key for a tool invocation. Prefix scopes
// and exact-input scopes are namespaced so they can never collide.
func scopeKey(toolName, prefix string, input map[string]any) string {
	if prefix != "" {
		return fmt.Sprintf("%s\x00prefix:%s", toolName, prefix)
	}
	return fmt.Sprintf("%s\x00exact:%s", toolName, canonicalInput(input))
}

// canonicalInput produces a stable encoding of a tool input for use as an
// exact-match grant key. encoding/json sorts map keys, which is enough for
// the flat inputs tools receive.
func canonicalInput(input map[string]any) string {
	data, err := json.Marshal(input)
	if err != nil {
		return fmt.Sprintf("%v", input)
	}
	return string(data)
}
