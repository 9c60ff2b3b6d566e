package permission

import (
	"fmt"
	"regexp"
)

// HighRiskThreshold is the risk score at or above which a command is
// classified high-risk: session caching becomes structurally unavailable
// and the user is re-prompted on every call.
const HighRiskThreshold = 75

// riskPattern pairs a compiled pattern with the score it contributes.
// The risk score of a command is the maximum score of any matching pattern.
type riskPattern struct {
	re    *regexp.Regexp
	score int
}

var riskPatterns = []riskPattern{
	// Destructive filesystem operations
	{regexp.MustCompile(`\brm\s+(-[a-zA-Z]*[rf][a-zA-Z]*\s+)+`), 90},
	{regexp.MustCompile(`\bmkfs\b`), 95},
	{regexp.MustCompile(`\bdd\s+.*\bof=/dev/`), 95},
	{regexp.MustCompile(`>\s*/dev/sd[a-z]`), 95},
	{regexp.MustCompile(`\bshred\b`), 90},

	// Privilege escalation and system control
	{regexp.MustCompile(`\bsudo\b`), 85},
	{regexp.MustCompile(`\b(shutdown|reboot|halt|poweroff)\b`), 90},
	{regexp.MustCompile(`\bkill\s+-9\s+1\b`), 90},

	// Broad permission changes
	{regexp.MustCompile(`\bchmod\s+(-[a-zA-Z]+\s+)*777\b`), 80},
	{regexp.MustCompile(`\bchown\s+-[a-zA-Z]*R`), 80},

	// Remote code execution
	{regexp.MustCompile(`\b(curl|wget)\b.*\|\s*(ba)?sh\b`), 85},

	// History rewrites on shared state
	{regexp.MustCompile(`\bgit\s+push\s+.*(--force|-f)\b`), 75},
	{regexp.MustCompile(`\bgit\s+reset\s+--hard\b`), 60},

	// Moderate mutations
	{regexp.MustCompile(`\brm\b`), 50},
	{regexp.MustCompile(`\bgit\s+push\b`), 40},
	{regexp.MustCompile(`\bkill\b`), 40},
	{regexp.MustCompile(`\bmv\b`), 25},
}

// compileRiskPatterns compiles configured expressions into patterns that
// score at the high-risk threshold, so a matching command always
// re-prompts. An invalid expression fails the whole batch.
func compileRiskPatterns(exprs []string) ([]riskPattern, error) {
	compiled := make([]riskPattern, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid risk pattern %q: %w", expr, err)
		}
		compiled = append(compiled, riskPattern{re: re, score: HighRiskThreshold})
	}
	return compiled, nil
}

// riskScore scores a command against the built-in table plus any extra
// patterns a gate was configured with.
func riskScore(command string, extra []riskPattern) int {
	score := 0
	for _, p := range riskPatterns {
		if p.score > score && p.re.MatchString(command) {
			score = p.score
		}
	}
	for _, p := range extra {
		if p.score > score && p.re.MatchString(command) {
			score = p.score
		}
	}
	return score
}

// RiskScore derives a risk score in [0, 100] for a shell-like command
// using the built-in pattern table. Non-command inputs score zero;
// permission is still required, but the three-option prompt applies.
func RiskScore(command string) int {
	return riskScore(command, nil)
}

// IsHighRisk reports whether the command's derived score classifies it as
// high-risk.
func IsHighRisk(command string) bool {
	return RiskScore(command) >= HighRiskThreshold
}
