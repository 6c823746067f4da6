package discovery

import (
	"context"
	"encoding/json"

	"github.com/apache/pulsar-client-go/pulsar"
	log "github.com/sirupsen/logrus"

	"github.com/epic-swf/stfmon/internal/common/config"
	"github.com/epic-swf/stfmon/internal/common/pulsarutils"
	"github.com/epic-swf/stfmon/internal/common/util"
	"github.com/epic-swf/stfmon/internal/stfagent/metrics"
)

// TriggerMessage is an inbound "data ready" event naming a file or a
// directory subtree to scan immediately.
type TriggerMessage struct {
	MsgType string `json:"msg_type"`
	Path    string `json:"path"`
}

const MsgTypeDataReady = "data_ready"

// TriggerSource subscribes to a Pulsar topic and scans the path named by
// each message. Triggers can arrive concurrently with continuous-mode
// scans; candidates funnel into the same downstream channel and the
// ledger's uniqueness constraint makes overlapping scans safe.
type TriggerSource struct {
	pulsarConfig config.PulsarConfig
	subscription string
	patterns     []string
	metrics      *metrics.Metrics
	consumer     pulsar.Consumer // injected in tests
}

func NewTriggerSource(pulsarConfig config.PulsarConfig, subscription string, patterns []string, m *metrics.Metrics) *TriggerSource {
	return &TriggerSource{
		pulsarConfig: pulsarConfig,
		subscription: subscription,
		patterns:     patterns,
		metrics:      m,
	}
}

func (s *TriggerSource) Run(ctx context.Context, out chan<- Candidate) error {
	if s.consumer == nil {
		client, err := pulsarutils.NewPulsarClient(&s.pulsarConfig)
		if err != nil {
			return err
		}
		defer client.Close()

		consumer, err := client.Subscribe(pulsar.ConsumerOptions{
			Topic:             s.pulsarConfig.TriggerTopic,
			SubscriptionName:  s.subscription,
			Type:              pulsar.Shared,
			ReceiverQueueSize: s.pulsarConfig.ReceiverQueueSize,
		})
		if err != nil {
			return err
		}
		defer consumer.Close()
		s.consumer = consumer
	}

	log.WithField("topic", s.pulsarConfig.TriggerTopic).Info("Starting trigger source")

	messages := pulsarutils.Receive(ctx, s.consumer, s.pulsarConfig.ReceiveTimeout, s.pulsarConfig.BackoffTime, s.metrics)
	for msg := range messages {
		s.handleTrigger(ctx, msg.Payload(), out)
		msgId := msg.ID()
		util.RetryUntilSuccess(
			ctx,
			func() error { return s.consumer.AckID(msgId) },
			func(err error) {
				log.WithError(err).Warn("Trigger ack failed; retrying")
			},
		)
	}
	return nil
}

func (s *TriggerSource) handleTrigger(ctx context.Context, payload []byte, out chan<- Candidate) {
	trigger := &TriggerMessage{}
	if err := json.Unmarshal(payload, trigger); err != nil {
		log.WithError(err).Warn("Could not parse trigger message")
		return
	}
	if trigger.MsgType != MsgTypeDataReady || trigger.Path == "" {
		log.Warnf("Ignoring trigger with msg_type %q", trigger.MsgType)
		return
	}

	for _, candidate := range ScanDirectory(trigger.Path, s.patterns) {
		if s.metrics != nil {
			s.metrics.RecordCandidateDiscovered()
		}
		select {
		case out <- candidate:
		case <-ctx.Done():
			return
		}
	}
}
