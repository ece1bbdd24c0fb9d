// Package vad provides frame-level voice activity detection with an
// energy-based classifier. It tracks consecutive silence after speech and
// emits explicit phrase-boundary signals for microphone-style sessions.
package vad
