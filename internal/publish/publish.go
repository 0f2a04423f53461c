// Package publish broadcasts board snapshots to a message broker.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"laundry-branch-monitor/config"
	"laundry-branch-monitor/internal/sim"
)

// Publisher sends a payload under a routing key (MQTT topic suffix or AMQP
// routing key).
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
	Close() error
}

// Snapshot is the broadcast form of one branch board.
type Snapshot struct {
	ID           string            `json:"id"`
	Branch       string            `json:"branch"`
	ObservedAt   time.Time         `json:"observed_at"`
	Availability sim.Availability  `json:"availability"`
	Machines     []SnapshotMachine `json:"machines"`
	Overflow     int               `json:"overflow"`
}

// SnapshotMachine is the per-machine part of a Snapshot.
type SnapshotMachine struct {
	ID               int64      `json:"id,omitempty"`
	Name             string     `json:"name"`
	Type             string     `json:"type"`
	Status           string     `json:"status"`
	FinishAt         *time.Time `json:"finish_at,omitempty"`
	MinutesRemaining int        `json:"minutes_remaining"`
}

// FormatSnapshot encodes the board of branchCode.
func FormatSnapshot(branchCode string, res *sim.Result) ([]byte, error) {
	snap := Snapshot{
		ID:           uuid.NewString(),
		Branch:       branchCode,
		ObservedAt:   res.Now,
		Availability: res.Availability,
		Machines:     make([]SnapshotMachine, 0, len(res.Machines)),
		Overflow:     len(res.Overflow),
	}
	for _, m := range res.Machines {
		snap.Machines = append(snap.Machines, SnapshotMachine{
			ID:               m.ID,
			Name:             m.Name,
			Type:             string(m.Type),
			Status:           string(m.Status),
			FinishAt:         m.FinishAt,
			MinutesRemaining: m.MinutesRemaining,
		})
	}
	return json.Marshal(snap)
}

// New selects the publisher named by cfg.Driver. An empty driver disables
// broadcasting.
func New(cfg config.PublishConfig) (Publisher, error) {
	switch cfg.Driver {
	case "":
		return NewNoop(), nil
	case "mqtt":
		return NewMQTT(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
	case "amqp":
		return NewAMQP(cfg.AMQPURL, cfg.AMQPExchange)
	default:
		return nil, fmt.Errorf("unknown publish driver %q", cfg.Driver)
	}
}
