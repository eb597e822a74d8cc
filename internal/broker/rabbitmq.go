// Package broker publishes ride events to RabbitMQ.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"rideshare/internal/config"
	"rideshare/internal/domain"
)

const reconnectInterval = 10 * time.Second

// ErrConnectionClosed is returned by Publish while the broker connection is down.
var ErrConnectionClosed = errors.New("rabbitmq connection is closed")

// RabbitMQ publishes events to a topic exchange. The routing key is the notification
// channel with ':' replaced by '.', e.g. "ride.<id>" or "user.<id>".
type RabbitMQ struct {
	ctx    context.Context
	cfg    config.RabbitMQConfig
	logger *zap.Logger

	mu           sync.Mutex
	conn         *amqp.Connection
	ch           *amqp.Channel
	reconnecting bool
}

// New connects to RabbitMQ and declares the exchange. ctx bounds background reconnects.
func New(ctx context.Context, cfg config.RabbitMQConfig, logger *zap.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{ctx: ctx, cfg: cfg, logger: logger}
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	return r, nil
}

// Publish sends event as persistent JSON, routed by channel.
func (r *RabbitMQ) Publish(ctx context.Context, channel string, event domain.Event) error {
	r.mu.Lock()
	conn, ch := r.conn, r.ch
	r.mu.Unlock()

	if conn == nil || conn.IsClosed() || ch == nil || ch.IsClosed() {
		go r.reconnect()
		return ErrConnectionClosed
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, r.cfg.Exchange, RoutingKey(channel), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	if confirm != nil {
		ok, err := confirm.WaitContext(ctx)
		if err != nil {
			return fmt.Errorf("confirm %s: %w", channel, err)
		}
		if !ok {
			return fmt.Errorf("publish %s: broker nacked", channel)
		}
	}
	return nil
}

// RoutingKey maps a notification channel onto a topic routing key.
func RoutingKey(channel string) string {
	return strings.ReplaceAll(channel, ":", ".")
}

// IsAlive reports whether the connection and channel are open.
func (r *RabbitMQ) IsAlive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil && !r.conn.IsClosed() && r.ch != nil && !r.ch.IsClosed()
}

// Close closes the channel and connection.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.cfg.URL)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(r.cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return err
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return err
	}

	r.mu.Lock()
	r.conn = conn
	r.ch = ch
	r.mu.Unlock()
	return nil
}

func (r *RabbitMQ) reconnect() {
	r.mu.Lock()
	if r.reconnecting {
		r.mu.Unlock()
		return
	}
	r.reconnecting = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.reconnecting = false
		r.mu.Unlock()
	}()

	t := time.NewTicker(reconnectInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			if err := r.connect(); err != nil {
				r.logger.Warn("rabbitmq reconnect failed", zap.Error(err))
				continue
			}
			r.logger.Info("rabbitmq reconnected")
			return
		case <-r.ctx.Done():
			return
		}
	}
}
