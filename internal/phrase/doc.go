// Package phrase implements the accumulator that segments a continuous audio
// byte stream into bounded, timed phrases using a debounced silence timeout
// and explicit boundary signals.
package phrase
