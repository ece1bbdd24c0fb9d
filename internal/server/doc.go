// Package server implements the HTTP API: streaming SSE and WebSocket ingest
// for live transcription, the batch diarization endpoint, and
// monitoring/management endpoints.
package server
