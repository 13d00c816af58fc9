package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"pulse/app/internal/alerts"
)

var newMQTTClient = mqtt.NewClient

// MQTT publishes each alert as JSON on a topic
type MQTT struct {
	client mqtt.Client
	topic  string
}

// NewMQTT connects to the broker. The client reconnects on its own afterwards.
func NewMQTT(broker, clientID, topic string, timeout time.Duration) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)
	client := newMQTTClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect to mqtt broker %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", broker, err)
	}
	return &MQTT{client: client, topic: topic}, nil
}

func (m *MQTT) Name() string { return "mqtt" }

func (m *MQTT) Notify(ctx context.Context, a alerts.Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	token := m.client.Publish(m.topic, 1, false, body)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
