package publish

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MQTT publishes snapshots as retained messages under a topic prefix, so a
// display that subscribes late still gets the current board.
type MQTT struct {
	client paho.Client
	prefix string
}

// NewMQTT connects to broker.
func NewMQTT(broker, clientID, prefix string) (*MQTT, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &MQTT{client: client, prefix: prefix}, nil
}

// Topic returns the full topic for key.
func (p *MQTT) Topic(key string) string {
	return p.prefix + "/" + key
}

func (p *MQTT) Publish(ctx context.Context, key string, payload []byte) error {
	// QoS 1, retained
	token := p.client.Publish(p.Topic(key), 1, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTT) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
