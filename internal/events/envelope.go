package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventEnvelope is the shared envelope for v1 contracts.
type EventEnvelope[T any] struct {
	EventName     string    `json:"eventName"`
	EventVersion  int       `json:"eventVersion"`
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	CausationID   string    `json:"causationId,omitempty"`
	Producer      string    `json:"producer"`
	PartitionKey  string    `json:"partitionKey"`
	OccurredAt    time.Time `json:"occurredAt"`
	Payload       T         `json:"payload"`
}

func (e EventEnvelope[T]) Validate(expectedName string, expectedVersion int) error {
	if e.EventName != expectedName {
		return fmt.Errorf("unexpected eventName %q", e.EventName)
	}
	if e.EventVersion != expectedVersion {
		return fmt.Errorf("unexpected eventVersion %d", e.EventVersion)
	}
	if e.PartitionKey == "" {
		return fmt.Errorf("missing partitionKey")
	}
	return nil
}

// decode accepts either an enveloped event or the bare payload that older
// producers still send. enveloped reports which one it was.
func decode[T any](body []byte, name string, version int) (payload T, enveloped bool, err error) {
	var probe struct {
		EventName string `json:"eventName"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return payload, false, fmt.Errorf("unmarshal %s: %w", name, err)
	}

	if probe.EventName == "" {
		if err := json.Unmarshal(body, &payload); err != nil {
			return payload, false, fmt.Errorf("unmarshal %s: %w", name, err)
		}
		return payload, false, nil
	}

	var env EventEnvelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return payload, true, fmt.Errorf("unmarshal %s envelope: %w", name, err)
	}
	if err := env.Validate(name, version); err != nil {
		return payload, true, err
	}
	return env.Payload, true, nil
}
