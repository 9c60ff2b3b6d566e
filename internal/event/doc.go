// Package event provides a synchronous publish/subscribe bus and the event
// types emitted by the kestrel coordination runtime.
//
// The bus decouples the coordination subsystems (permission gate, semaphore,
// task board, mailbox, snapshot store) from observers such as telemetry
// hooks and the CLI, without introducing direct dependencies between them.
//
// Events are dispatched synchronously in registration order. A panicking
// handler is recovered and logged so one misbehaving observer cannot block
// delivery to the others.
package event
