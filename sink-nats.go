//go:build !tinygo

package ttgo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// natsConn is the part of *nats.Conn used by the sink.
type natsConn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATSSink publishes records as JSON to <prefix>.<event>.
type NATSSink struct {
	nc     natsConn
	prefix string
}

// NewNATSSink publishes through an open connection.
func NewNATSSink(nc *nats.Conn, prefix string) *NATSSink {
	return &NATSSink{nc: nc, prefix: prefix}
}

// DialNATS connects to the server of c.
func DialNATS(c NATSConfig, log Logger) (*NATSSink, error) {
	log = loggerOr(log)
	if c.ReconnectInterval == 0 {
		c.ReconnectInterval = 2 * time.Second
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = -1
	}
	nc, err := nats.Connect(c.URL,
		nats.Name("ttgo-node"),
		nats.ReconnectWait(c.ReconnectInterval),
		nats.MaxReconnects(c.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected: " + err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected to " + nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to NATS: %w", ErrPkg, err)
	}
	return NewNATSSink(nc, c.Subject), nil
}

func (s *NATSSink) Publish(r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.nc.Publish(s.prefix+"."+r.Event, data)
}

// Close flushes pending records and closes the connection.
func (s *NATSSink) Close() error {
	return s.nc.Drain()
}
