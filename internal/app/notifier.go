package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rideshare/internal/broker"
	"rideshare/internal/config"
	internalRedis "rideshare/internal/redis"
	"rideshare/internal/service"
)

// Notifier backends.
const (
	NotifierRedis    = "redis"
	NotifierRabbitMQ = "rabbitmq"
	NotifierBoth     = "both"
	NotifierLog      = "log"
)

// Notifier is the notifier chosen by NOTIFIER_BACKEND plus whatever must be closed on shutdown.
type Notifier struct {
	service.Notifier
	broker *broker.RabbitMQ
}

// Close releases the broker connection, if any.
func (n *Notifier) Close() error {
	if n.broker == nil {
		return nil
	}
	return n.broker.Close()
}

// NewNotifier builds the configured notifier. ctx bounds the broker's background reconnects.
func NewNotifier(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) (*Notifier, error) {
	backend := cfg.Engine.NotifierBackend

	var redisNotifier service.Notifier
	if backend == NotifierRedis || backend == NotifierBoth {
		if redisClient == nil {
			return nil, errors.New("redis notifier requires REDIS_ADDR")
		}
		redisNotifier = internalRedis.NewPubSubNotifier(redisClient)
	}

	var mq *broker.RabbitMQ
	if backend == NotifierRabbitMQ || backend == NotifierBoth {
		var err error
		mq, err = broker.New(ctx, cfg.RabbitMQ, logger)
		if err != nil {
			return nil, err
		}
	}

	switch backend {
	case NotifierRedis:
		return &Notifier{Notifier: redisNotifier}, nil
	case NotifierRabbitMQ:
		return &Notifier{Notifier: mq, broker: mq}, nil
	case NotifierBoth:
		return &Notifier{Notifier: service.MultiNotifier{redisNotifier, mq}, broker: mq}, nil
	case NotifierLog:
		return &Notifier{Notifier: service.NewLogNotifier(logger)}, nil
	default:
		return nil, fmt.Errorf("unknown notifier backend %q", backend)
	}
}
