// Package events publishes job lifecycle events to NATS so downstream agents
// can react to marketplace activity without polling the gateway.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"jobsboard-backend/internal/metrics"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const defaultSubjectPrefix = "jobsboard"

// JobEvent is the envelope published for every lifecycle event
type JobEvent struct {
	EventID   string                 `json:"event_id"`
	Type      string                 `json:"type"`
	JobID     string                 `json:"job_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NATSPublisher publishes lifecycle events over a NATS connection. Publishing
// is best-effort: a failed publish is logged and counted, never propagated
// into the workflow that triggered it.
type NATSPublisher struct {
	conn          *nats.Conn
	subjectPrefix string
}

// NewNATSPublisher connects to NATS. Returns an error when the server is
// unreachable; callers treat a nil publisher as "events disabled".
func NewNATSPublisher(url, subjectPrefix string) (*NATSPublisher, error) {
	if subjectPrefix == "" {
		subjectPrefix = defaultSubjectPrefix
	}

	conn, err := nats.Connect(url,
		nats.Name("jobsboard-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logrus.WithField("error", err.Error()).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logrus.WithField("url", c.ConnectedUrl()).Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logrus.WithField("url", url).Info("NATS publisher connected")
	return &NATSPublisher{
		conn:          conn,
		subjectPrefix: subjectPrefix,
	}, nil
}

// PublishJobEvent publishes one lifecycle event. The subject is
// <prefix>.<type>, e.g. jobsboard.job.funded.
func (p *NATSPublisher) PublishJobEvent(eventType, jobID string, payload map[string]interface{}) {
	event := JobEvent{
		EventID:   uuid.New().String(),
		Type:      eventType,
		JobID:     jobID,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		logrus.WithField("error", err.Error()).Error("Failed to encode job event")
		metrics.EventPublishErrors.WithLabelValues(eventType).Inc()
		return
	}

	subject := p.subjectPrefix + "." + eventType
	if err := p.conn.Publish(subject, data); err != nil {
		logrus.WithFields(logrus.Fields{
			"subject": subject,
			"error":   err.Error(),
		}).Warn("Failed to publish job event")
		metrics.EventPublishErrors.WithLabelValues(eventType).Inc()
		return
	}
	metrics.EventsPublished.WithLabelValues(eventType).Inc()
}

// Close drains and closes the connection
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
	}
}
