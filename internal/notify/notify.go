// Package notify publishes state-change events of the master node to an MQTT
// broker. Publishing never blocks the state machine; delivery failures are logged.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/oshokin/alarm-panel/internal/domain/alarm"
	"github.com/oshokin/alarm-panel/internal/logger"
)

const (
	// DefaultConnectRetries bounds broker connection attempts on start.
	DefaultConnectRetries = 5

	// quiesceMillis is how long Disconnect waits for in-flight work.
	quiesceMillis = 250

	// qos is at-least-once; state changes are rare and worth delivering.
	qos = 1

	connectMaxElapsed = 30 * time.Second
	publishTimeout    = 5 * time.Second
)

// Event is the JSON payload of a state change.
type Event struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	Previous  string    `json:"previous"`
	SounderOn bool      `json:"sounder_on"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent builds the payload for a snapshot.
func NewEvent(snapshot *alarm.Snapshot) *Event {
	return &Event{
		ID:        uuid.NewString(),
		State:     snapshot.State.String(),
		Previous:  snapshot.Previous.String(),
		SounderOn: snapshot.SounderOn,
		Timestamp: snapshot.Timestamp.UTC(),
	}
}

// client is the subset of mqtt.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher sends events to one topic. It implements controller.Observer.
type Publisher struct {
	client client
	topic  string

	// wg tracks pending deliveries.
	wg sync.WaitGroup
}

// Connect dials the broker with exponential backoff and returns a publisher.
func Connect(ctx context.Context, broker, clientID, topic string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(publishTimeout)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectMaxElapsed

	var c mqtt.Client

	attempt := 0

	err := backoff.Retry(func() error {
		attempt++

		c = mqtt.NewClient(opts)

		token := c.Connect()
		if token.Wait() && token.Error() != nil {
			logger.WarnKV(ctx, "MQTT connect failed", "broker", broker, "attempt", attempt, "error", token.Error())

			return token.Error()
		}

		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, DefaultConnectRetries-1), ctx))
	if err != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", broker, err)
	}

	logger.InfoKV(ctx, "Connected to MQTT broker", "broker", broker, "topic", topic)

	return newPublisher(c, topic), nil
}

func newPublisher(c client, topic string) *Publisher {
	return &Publisher{
		client: c,
		topic:  topic,
	}
}

// StateChanged publishes the snapshot as a retained message.
func (p *Publisher) StateChanged(ctx context.Context, snapshot *alarm.Snapshot) {
	payload, err := json.Marshal(NewEvent(snapshot))
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode state event", "error", err)

		return
	}

	token := p.client.Publish(p.topic, qos, true, payload)

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		if !token.WaitTimeout(publishTimeout) {
			logger.WarnKV(ctx, "State event not acknowledged", "topic", p.topic, "state", snapshot.State.String())

			return
		}

		if err := token.Error(); err != nil {
			logger.ErrorKV(ctx, "Failed to publish state event", "topic", p.topic, "error", err)
		}
	}()
}

// Close waits for pending deliveries and disconnects.
func (p *Publisher) Close() {
	p.wg.Wait()
	p.client.Disconnect(quiesceMillis)
}
