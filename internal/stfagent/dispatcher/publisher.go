package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/epic-swf/stfmon/internal/common/config"
	"github.com/epic-swf/stfmon/internal/common/pulsarutils"
)

// PulsarPublisher publishes notifications synchronously to a single topic.
// Synchronous sends keep the retry logic simple; notification volume is a
// small fraction of the STF rate so throughput is not a concern here.
type PulsarPublisher struct {
	client      pulsar.Client
	producer    pulsar.Producer
	sendTimeout time.Duration
}

func NewPulsarPublisher(pulsarConfig *config.PulsarConfig, sendTimeout time.Duration) (*PulsarPublisher, error) {
	client, err := pulsarutils.NewPulsarClient(pulsarConfig)
	if err != nil {
		return nil, errors.WithMessage(err, "Error creating pulsar client")
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Name:  fmt.Sprintf("stfmon-agent-%s", uuid.NewString()),
		Topic: pulsarConfig.NotificationTopic,
	})
	if err != nil {
		client.Close()
		return nil, errors.WithMessage(err, "Error creating pulsar producer")
	}

	return &PulsarPublisher{
		client:      client,
		producer:    producer,
		sendTimeout: sendTimeout,
	}, nil
}

func (p *PulsarPublisher) Publish(ctx context.Context, payload []byte) error {
	sendCtx, cancel := context.WithTimeout(ctx, p.sendTimeout)
	defer cancel()

	_, err := p.producer.Send(sendCtx, &pulsar.ProducerMessage{Payload: payload})
	return errors.WithStack(err)
}

func (p *PulsarPublisher) Close() {
	p.producer.Close()
	p.client.Close()
}
