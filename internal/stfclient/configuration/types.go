package configuration

import (
	"github.com/pkg/errors"

	"github.com/epic-swf/stfmon/internal/common/config"
	"github.com/epic-swf/stfmon/internal/common/serviceerrors"
)

type StfClientConfiguration struct {
	// Local database configuration
	Postgres config.PostgresConfig
	// General Pulsar configuration
	Pulsar config.PulsarConfig
	// Metrics configuration
	Metrics config.MetricsConfig
	// Pulsar subscription name. A stable name gives a durable subscription:
	// messages sent while the client is down are redelivered on reconnect
	// and absorbed by the idempotent upsert.
	SubscriptionName string
}

func (c *StfClientConfiguration) Validate() error {
	if c.Pulsar.NotificationTopic == "" {
		return errors.WithStack(&serviceerrors.ErrInvalidArgument{
			Name:    "pulsar.notificationTopic",
			Value:   c.Pulsar.NotificationTopic,
			Message: "a notification topic is required",
		})
	}
	if c.SubscriptionName == "" {
		return errors.WithStack(&serviceerrors.ErrInvalidArgument{
			Name:    "subscriptionName",
			Value:   c.SubscriptionName,
			Message: "a subscription name is required",
		})
	}
	return nil
}
