package configuration

import (
	"github.com/pkg/errors"

	"github.com/epic-swf/stfmon/internal/common/serviceerrors"
)

// Validate rejects configurations the pipeline cannot run with. It is
// called once at startup; an error here is fatal.
func (c *StfAgentConfiguration) Validate() error {
	if c.Sampling.Fraction < 0.0 || c.Sampling.Fraction > 1.0 {
		return errors.WithStack(&serviceerrors.ErrInvalidArgument{
			Name:    "sampling.fraction",
			Value:   c.Sampling.Fraction,
			Message: "must be between 0.0 and 1.0",
		})
	}
	if c.Sampling.Lookback <= 0 {
		return errors.WithStack(&serviceerrors.ErrInvalidArgument{
			Name:    "sampling.lookback",
			Value:   c.Sampling.Lookback,
			Message: "must be positive",
		})
	}

	switch c.Discovery.Mode {
	case DiscoveryModeContinuous, DiscoveryModeTriggered, DiscoveryModeBoth:
	default:
		return errors.WithStack(&serviceerrors.ErrInvalidArgument{
			Name:    "discovery.mode",
			Value:   c.Discovery.Mode,
			Message: "must be continuous, triggered or both",
		})
	}
	if c.Discovery.Mode != DiscoveryModeTriggered {
		if len(c.Discovery.WatchDirectories) == 0 {
			return errors.WithStack(&serviceerrors.ErrInvalidArgument{
				Name:    "discovery.watchDirectories",
				Value:   c.Discovery.WatchDirectories,
				Message: "at least one watch directory is required in continuous mode",
			})
		}
		if c.Discovery.ScanInterval <= 0 {
			return errors.WithStack(&serviceerrors.ErrInvalidArgument{
				Name:    "discovery.scanInterval",
				Value:   c.Discovery.ScanInterval,
				Message: "must be positive",
			})
		}
	}
	if c.Discovery.Mode != DiscoveryModeContinuous && c.Pulsar.TriggerTopic == "" {
		return errors.WithStack(&serviceerrors.ErrInvalidArgument{
			Name:    "pulsar.triggerTopic",
			Value:   c.Pulsar.TriggerTopic,
			Message: "required in triggered mode",
		})
	}
	if len(c.Discovery.FilePatterns) == 0 {
		return errors.WithStack(&serviceerrors.ErrInvalidArgument{
			Name:    "discovery.filePatterns",
			Value:   c.Discovery.FilePatterns,
			Message: "at least one file pattern is required",
		})
	}

	if c.Pulsar.NotificationTopic == "" {
		return errors.WithStack(&serviceerrors.ErrInvalidArgument{
			Name:    "pulsar.notificationTopic",
			Value:   c.Pulsar.NotificationTopic,
			Message: "a notification topic is required",
		})
	}

	if c.Dispatch.MaxAttempts <= 0 {
		return errors.WithStack(&serviceerrors.ErrInvalidArgument{
			Name:    "dispatch.maxAttempts",
			Value:   c.Dispatch.MaxAttempts,
			Message: "must be positive",
		})
	}
	if c.Dispatch.InitialBackoff <= 0 || c.Dispatch.MaxBackoff < c.Dispatch.InitialBackoff {
		return errors.WithStack(&serviceerrors.ErrInvalidArgument{
			Name:    "dispatch.initialBackoff",
			Value:   c.Dispatch.InitialBackoff,
			Message: "initialBackoff must be positive and no greater than maxBackoff",
		})
	}
	if c.Dispatch.SendTimeout <= 0 {
		return errors.WithStack(&serviceerrors.ErrInvalidArgument{
			Name:    "dispatch.sendTimeout",
			Value:   c.Dispatch.SendTimeout,
			Message: "must be positive",
		})
	}
	return nil
}

// ApplyDefaults fills in unset optional values with their documented
// defaults.
func (c *StfAgentConfiguration) ApplyDefaults() {
	if c.Discovery.Mode == "" {
		c.Discovery.Mode = DiscoveryModeContinuous
	}
	if c.Discovery.RecencyCacheSize == 0 {
		c.Discovery.RecencyCacheSize = 10000
	}
	if c.Dispatch.Parallelism == 0 {
		c.Dispatch.Parallelism = 4
	}
	if c.Dispatch.QueueSize == 0 {
		c.Dispatch.QueueSize = 1000
	}
	if c.Extract.BaseURL == "" {
		c.Extract.BaseURL = "file://"
	}
}
