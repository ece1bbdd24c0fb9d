// Package session implements the live translation session engine.
//
// Each session runs two concurrent roles. The ingest path (Write) validates
// chunks, records them, and enqueues; it never blocks on network or model
// calls. The processing loop is a single goroutine that drains the queue,
// completes phrases on silence boundaries and debounce timeouts, and issues
// transcription calls at a bounded live cadence. Events for a phrase are
// emitted in order, with final always last.
//
// The Manager tracks active sessions and reaps ones with no ingest activity.
package session
