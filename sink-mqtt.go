//go:build !tinygo

package ttgo

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTSink publishes records as JSON to <prefix>/<event> with QoS 1.
type MQTTSink struct {
	client mqtt.Client
	prefix string
}

// NewMQTTSink publishes through an already connected client.
func NewMQTTSink(client mqtt.Client, prefix string) *MQTTSink {
	return &MQTTSink{client: client, prefix: prefix}
}

// DialMQTT connects to the broker of c. The connection re-establishes itself
// after a disconnect.
func DialMQTT(c MQTTConfig) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().AddBroker(c.Broker)
	opts.ClientID = c.ClientID
	opts.Username = c.Username
	opts.Password = c.Password
	opts.AutoReconnect = true
	opts.ConnectRetry = true

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("%w: connect to %s: timeout", ErrPkg, c.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: connect to %s: %w", ErrPkg, c.Broker, err)
	}
	return NewMQTTSink(client, c.Topic), nil
}

// Publish queues r. Delivery is confirmed asynchronously by the client.
func (s *MQTTSink) Publish(r Record) error {
	if !s.client.IsConnectionOpen() {
		return fmt.Errorf("%w: MQTT not connected", ErrPkg)
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	s.client.Publish(s.prefix+"/"+r.Event, 1, false, payload)
	return nil
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
