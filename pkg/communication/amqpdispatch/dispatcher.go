// Package amqpdispatch hands resolved communications to an external mailer
// by publishing them to a RabbitMQ topic exchange.
package amqpdispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/dmitrymomot/apimgmt/pkg/communication"
	"github.com/dmitrymomot/apimgmt/pkg/logger"
)

// EventType identifies the envelope published for each communication.
const EventType = "communication.requested"

// Config holds broker settings.
type Config struct {
	URL      string `env:"AMQP_URL"` // Empty URL keeps communications in process.
	Exchange string `env:"AMQP_EXCHANGE" envDefault:"apimgmt.communications"`
}

// Meta describes an envelope.
type Meta struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Data is the body of a communication envelope.
type Data struct {
	Channel    string            `json:"channel"`
	Title      string            `json:"title"`
	Text       string            `json:"text"`
	Params     map[string]string `json:"params,omitempty"`
	Recipients []string          `json:"recipients"`
}

// Envelope is the published message body.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data Data `json:"data"`
}

// Publisher sends one AMQP message.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Dispatcher implements communication.Dispatcher over a Publisher.
type Dispatcher struct {
	pub      Publisher
	exchange string
	now      func() time.Time
	logger   *slog.Logger
}

var _ communication.Dispatcher = (*Dispatcher)(nil)

type Option func(*Dispatcher)

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func New(pub Publisher, exchange string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		pub:      pub,
		exchange: exchange,
		now:      time.Now,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(logger.Component("amqpdispatch"))
	return d
}

// RoutingKey returns the key a communication on channel is published with.
func RoutingKey(channel communication.Channel) string {
	return "communication." + strings.ToLower(channel.String())
}

func (d *Dispatcher) Dispatch(ctx context.Context, channel communication.Channel, userIDs []string, c *communication.Communication) error {
	if c == nil {
		return errors.New("amqpdispatch: nil communication")
	}

	env := Envelope{
		Meta: Meta{ID: uuid.NewString(), Type: EventType, CreatedAt: d.now().UTC()},
		Data: Data{
			Channel:    channel.String(),
			Title:      c.Title,
			Text:       c.Text,
			Params:     c.Params,
			Recipients: userIDs,
		},
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode communication: %w", err)
	}

	key := RoutingKey(channel)
	if err := d.pub.PublishWithContext(ctx, d.exchange, key, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    env.Meta.ID,
		Type:         EventType,
		Timestamp:    env.Meta.CreatedAt,
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}

	d.logger.InfoContext(ctx, "communication published",
		slog.String("exchange", d.exchange),
		slog.String("key", key),
		logger.Count(len(userIDs)),
	)
	return nil
}
