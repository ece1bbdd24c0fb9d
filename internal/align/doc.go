// Package align fuses timestamped transcript chunks with diarized speaker
// segments into ordered speaker turns. Align is the pure fusion algorithm;
// Pipeline wires it to the transcription and diarization clients for the
// post-session batch pass.
package align
