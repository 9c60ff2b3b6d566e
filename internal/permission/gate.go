package permission

import (
	"context"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel/internal/event"
	"github.com/kestrelhq/kestrel/internal/kerrors"
	"github.com/kestrelhq/kestrel/internal/logging"
)

// Gate is the per-tool-invocation authorization state machine. It caches
// session grants in memory, so grants are honored only for calls from the
// same process session.
type Gate struct {
	mu        sync.Mutex
	grants    map[string]Grant // scope key -> grant
	extraRisk []riskPattern
	prompter  Prompter
	bus       *event.Bus
	logger    *logging.Logger
}

// NewGate creates a Gate. The prompter suspends the agent loop until the
// user responds; bus and logger observe decisions.
func NewGate(prompter Prompter, bus *event.Bus, logger *logging.Logger) *Gate {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Gate{
		grants:   make(map[string]Grant),
		prompter: prompter,
		bus:      bus,
		logger:   logger.WithComponent("permission"),
	}
}

// Authorize decides whether one tool invocation may run.
//
//  1. A cached session grant for (tool, derived scope) resolves immediately
//     as AllowedSession without prompting, unless the command is high-risk.
//  2. High-risk commands force a two-option prompt; session caching is
//     structurally unavailable for the call.
//  3. Otherwise the prompt offers allow-once, allow-for-session, or reject.
//
// Cancellation of ctx resolves the wait as Rejected with ctx's error; no
// grant is issued. A user rejection returns kerrors.ErrPermissionDenied:
// it aborts only that tool call and never destroys grants held by other
// tools.
func (g *Gate) Authorize(ctx context.Context, toolName string, input map[string]any) (Decision, error) {
	command := commandFrom(input)
	risk := g.riskScore(command)
	highRisk := risk >= HighRiskThreshold

	prefix, _ := DerivePrefix(command)
	key := scopeKey(toolName, prefix, input)

	// Step 1: cached session grant. High-risk commands always re-prompt,
	// even if a grant somehow exists for the same scope.
	if !highRisk {
		g.mu.Lock()
		_, granted := g.grants[key]
		g.mu.Unlock()
		if granted {
			g.publishDecided(toolName, key, DecisionAllowedSession, true)
			return DecisionAllowedSession, nil
		}
	}

	if g.prompter == nil {
		return DecisionRejected, kerrors.ErrPromptUnavailable
	}

	c := &Confirmation{
		Tool:             toolName,
		Input:            input,
		Command:          command,
		Risk:             risk,
		Prefix:           prefix,
		SessionAvailable: !highRisk,
		resolved:         make(chan resolution, 1),
	}

	if g.bus != nil {
		g.bus.Publish(event.NewPermissionRequestedEvent(toolName, key, highRisk))
	}

	go g.prompter(ctx, c)

	select {
	case <-ctx.Done():
		g.logger.Debug("authorization wait cancelled", "tool", toolName)
		return DecisionRejected, ctx.Err()
	case res := <-c.resolved:
		return g.settle(toolName, key, highRisk, res)
	}
}

// settle converts a prompter resolution into a terminal decision, caching
// a grant when the user approved for the session and caching is available.
func (g *Gate) settle(toolName, key string, highRisk bool, res resolution) (Decision, error) {
	if !res.allowed {
		g.publishDecided(toolName, key, DecisionRejected, false)
		return DecisionRejected, kerrors.ErrPermissionDenied
	}

	if res.scope == ScopeSession && !highRisk {
		g.mu.Lock()
		g.grants[key] = Grant{Tool: toolName, Scope: key, GrantedAt: time.Now()}
		g.mu.Unlock()
		g.publishDecided(toolName, key, DecisionAllowedSession, false)
		return DecisionAllowedSession, nil
	}

	// Session approval of a high-risk command degrades to a single call.
	g.publishDecided(toolName, key, DecisionAllowedTemporary, false)
	return DecisionAllowedTemporary, nil
}

// ExtendRiskPatterns registers additional high-risk command patterns on
// this gate, typically from configuration. Each expression scores at the
// high-risk threshold, so a matching command always re-prompts. An invalid
// expression aborts without registering any of the batch.
func (g *Gate) ExtendRiskPatterns(exprs []string) error {
	compiled, err := compileRiskPatterns(exprs)
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.extraRisk = append(g.extraRisk, compiled...)
	g.mu.Unlock()
	return nil
}

// riskScore scores a command using the built-in table plus this gate's
// configured patterns.
func (g *Gate) riskScore(command string) int {
	g.mu.Lock()
	extra := g.extraRisk
	g.mu.Unlock()
	return riskScore(command, extra)
}

// HasGrant reports whether a session grant exists for the given tool and
// input. Intended for status displays; Authorize performs its own check.
func (g *Gate) HasGrant(toolName string, input map[string]any) bool {
	prefix, _ := DerivePrefix(commandFrom(input))
	key := scopeKey(toolName, prefix, input)

	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.grants[key]
	return ok
}

// Grants returns a copy of all cached session grants.
func (g *Gate) Grants() []Grant {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Grant, 0, len(g.grants))
	for _, grant := range g.grants {
		out = append(out, grant)
	}
	return out
}

// Revoke removes the session grant matching the given tool and input, if
// one exists. Other tools' grants are untouched.
func (g *Gate) Revoke(toolName string, input map[string]any) {
	prefix, _ := DerivePrefix(commandFrom(input))
	key := scopeKey(toolName, prefix, input)

	g.mu.Lock()
	delete(g.grants, key)
	g.mu.Unlock()
}

// Reset clears all session grants. Used when the process session ends.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.grants = make(map[string]Grant)
	g.mu.Unlock()
}

func (g *Gate) publishDecided(toolName, key string, d Decision, cached bool) {
	g.logger.Debug("authorization decided",
		"tool", toolName,
		"decision", string(d),
		"cached", cached,
	)
	if g.bus != nil {
		g.bus.Publish(event.NewPermissionDecidedEvent(toolName, key, string(d), cached))
	}
}

// commandFrom extracts the shell-like command from a tool input, if present.
func commandFrom(input map[string]any) string {
	if cmd, ok := input["command"].(string); ok {
		return cmd
	}
	return ""
}
