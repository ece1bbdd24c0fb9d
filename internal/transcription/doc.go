// Package transcription provides the client for the speech-to-text service.
//
// Two entry points exist: Transcribe uploads normalized float samples as a
// WAV file for low-latency phrase transcription, and TranscribeFile sends a
// path reference for finished recordings the service can read directly. Both
// share the same retry, rate-limiting, and response-decoding policy.
//
// Results carry per-chunk timestamps so downstream speaker alignment can map
// words onto diarization turns. The final chunk's end timestamp may be
// absent; consumers must handle a nil End.
package transcription
