package bus

import (
	"context"
	"io"
	"log"
)

// EvidenceMessage is the notification published whenever a scan result is
// ingested into a case. External tooling (SIEM forwarders, ticketing
// hooks) consumes these from the stream.
type EvidenceMessage struct {
	ID        string `json:"id"` // message id, not the evidence id
	CaseID    int64  `json:"case_id"`
	RecordID  int64  `json:"record_id"`
	Module    string `json:"module"`
	Target    string `json:"target"`
	Verdict   string `json:"verdict"`
	Score     int    `json:"score"`
	Timestamp int64  `json:"timestamp"`
}

// Bus defines the interface for evidence notification implementations.
type Bus interface {
	// PublishEvidence publishes an ingested-evidence notification.
	PublishEvidence(ctx context.Context, msg EvidenceMessage) error

	// HealthCheck performs a health check on the bus connection.
	HealthCheck(ctx context.Context) error

	// Close closes the bus connection.
	Close() error
}

// NewBus creates a bus based on the Redis URL. An empty or unreachable
// URL falls back to a NullBus so the dashboard runs without Redis.
func NewBus(redisURL string, logger *log.Logger) Bus {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	if redisURL == "" {
		return NewNullBus(logger)
	}

	if redisBus, err := NewRedisBus(redisURL, logger); err == nil {
		return redisBus
	}

	return NewNullBus(logger)
}
