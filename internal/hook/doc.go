// Package hook intercepts prompt assembly and tool execution to run policy
// and telemetry callbacks.
//
// Three extension points exist: before-prompt, before-tool, and after-tool.
// Registration is idempotent per (point, name); hooks run in registration
// order. Before-prompt hooks sequentially transform the prompt state that
// later hooks see. Wrapping a tool preserves its native execution contract:
// every progress notification is forwarded unchanged, and the wrapper only
// observes the boundaries. A hook failure is caught and logged; it never
// reaches the wrapped tool call or its caller.
package hook
