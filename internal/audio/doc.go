// Package audio handles raw PCM validation, sample conversion, and WAV
// encoding. It also provides the session Recorder that retains the full
// audio stream for post-session diarization.
package audio
