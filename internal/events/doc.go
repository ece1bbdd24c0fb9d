// Package events defines session event types and the ordered, single-consumer
// stream that carries them from the processing path to the transport layer.
package events
