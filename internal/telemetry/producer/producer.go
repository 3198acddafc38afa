// Package producer publishes telemetry events to a message broker.
package producer

import "github.com/Zaid-daoud/Farkoosh-Backend/internal/telemetry"

// Producer emits telemetry events and owns a broker connection. Callers use it best-effort.
type Producer interface {
	telemetry.EventEmitter
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}

var _ Producer = (*KafkaProducer)(nil)
