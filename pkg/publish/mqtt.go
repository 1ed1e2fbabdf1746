// SPDX-License-Identifier: GPL-2.0-or-later

// Package publish sends finished tracks to external sinks.
package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dashgps/pkg/log"
	"dashgps/pkg/track"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	mqttTimeout = 10 * time.Second

	// Milliseconds to wait for pending work on disconnect.
	mqttQuiesce = 250
)

// ErrTimeout broker did not respond in time.
var ErrTimeout = errors.New("timeout")

// mqttClient subset of mqtt.Client.
type mqttClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes waypoints as JSON messages.
type MQTT struct {
	client mqttClient
	broker string
	topic  string
	logger log.ILogger
}

// NewMQTT returns a publisher for broker, the client id includes the run id.
func NewMQTT(broker, topic string, runID uuid.UUID, logger log.ILogger) *MQTT {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("dashgps-" + runID.String()).
		SetConnectTimeout(mqttTimeout)

	return &MQTT{
		client: mqtt.NewClient(opts),
		broker: broker,
		topic:  topic,
		logger: logger,
	}
}

// Publish connects, publishes every waypoint in order
// with QoS 0 and no retain flag, then disconnects.
func (p *MQTT) Publish(waypoints []track.Waypoint) error {
	if err := wait(p.client.Connect()); err != nil {
		return fmt.Errorf("connect to mqtt broker %v: %w", p.broker, err)
	}
	defer p.client.Disconnect(mqttQuiesce)

	for i, wp := range waypoints {
		payload, err := json.Marshal(wp)
		if err != nil {
			return fmt.Errorf("marshal waypoint %d: %w", i, err)
		}
		if err := wait(p.client.Publish(p.topic, 0, false, payload)); err != nil {
			return fmt.Errorf("publish waypoint %d: %w", i, err)
		}
	}

	log.Info(p.logger).Src("publish").
		Msgf("published %d waypoints to %v on '%v'", len(waypoints), p.broker, p.topic)
	return nil
}

func wait(token mqtt.Token) error {
	if !token.WaitTimeout(mqttTimeout) {
		return ErrTimeout
	}
	return token.Error()
}
