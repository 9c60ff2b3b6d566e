// Package mailbox provides the durable message channel between agents
// within a team.
//
// Messages are persisted as JSONL in append-only logs: one inbox per
// recipient and one outbox per sender, under
// {dir}/<team>/<agent>/{inbox,outbox}.jsonl. Logs are never mutated after
// append and no deletion or acknowledgement primitive exists; consumers
// track their own read offset. Every cross-process view is a fresh read.
package mailbox
