// Package diarization provides the client for the speaker diarization
// service. Audio crosses the wire as a raw WAV body; request parameters
// travel in X-* headers because the body is reserved for the audio itself.
package diarization
