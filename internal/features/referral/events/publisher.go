// Package events publishes referral.confirmed events to an AMQP broker.
// Publishing is strictly best-effort: any failure is logged and returned
// so the caller can swallow it; the confirmation itself never depends on
// the broker being up.
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"miniapp-sync-backend/internal/common/logger"
	"miniapp-sync-backend/internal/features/referral/models"
)

const confirmedQueueName = "referral.confirmed"

// Publisher sends domain events. The nil Publisher is valid and drops
// everything, which is how deployments without a broker run.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher {
	if url == "" {
		return nil
	}
	return &Publisher{url: url}
}

// PublishConfirmed delivers a ConfirmedEvent to the referral.confirmed
// queue. Messages are persistent; the queue is declared idempotently.
func (p *Publisher) PublishConfirmed(ctx context.Context, event models.ConfirmedEvent) error {
	if p == nil {
		return nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		logger.Debug().Err(err).Msg("amqp dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Debug().Err(err).Msg("amqp channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		confirmedQueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		logger.Debug().Err(err).Msg("amqp queue declare failed")
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", confirmedQueueName, false, false, pub); err != nil {
		logger.Debug().Err(err).Msg("amqp publish failed")
		return err
	}

	logger.Debug().
		Str("user_id", event.UserID).
		Str("referrer_id", event.ReferrerID).
		Msg("referral confirmed event published")
	return nil
}
