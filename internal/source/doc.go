// Package source provides PCM frame producers: a reader-backed source for
// streamed request bodies and a synthetic sine generator for tests and
// tooling.
package source
