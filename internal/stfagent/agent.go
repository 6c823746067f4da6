// Package stfagent wires the producer pipeline: discovery sources feed a
// candidate channel, accepted candidates are registered in the ledger and
// queued for dispatch, and dispatch workers publish notifications with
// per-attempt auditing. A buffered dispatch queue decouples publishing from
// discovery so a slow broker never stalls file discovery.
package stfagent

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/epic-swf/stfmon/internal/common"
	"github.com/epic-swf/stfmon/internal/common/database"
	"github.com/epic-swf/stfmon/internal/stfagent/configuration"
	"github.com/epic-swf/stfmon/internal/stfagent/discovery"
	"github.com/epic-swf/stfmon/internal/stfagent/dispatcher"
	"github.com/epic-swf/stfmon/internal/stfagent/extract"
	"github.com/epic-swf/stfmon/internal/stfagent/ledger"
	"github.com/epic-swf/stfmon/internal/stfagent/metrics"
	"github.com/epic-swf/stfmon/internal/stfagent/model"
	"github.com/epic-swf/stfmon/internal/stfagent/sampler"
)

const triggerSubscription = "stfmon-agent-triggers"

// Run starts the producer pipeline and blocks until ctx is cancelled.
func Run(ctx context.Context, config *configuration.StfAgentConfiguration) error {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return err
	}

	m := metrics.Get()
	shutdownMetricServer := common.ServeMetrics(config.Metrics.Port)
	defer shutdownMetricServer()

	log.Info("Opening connection pool to postgres")
	db, err := database.OpenPgxPool(config.Postgres)
	if err != nil {
		return errors.WithMessage(err, "Error opening connection to postgres")
	}
	defer db.Close()
	if err := database.UpdateDatabase(ctx, db, ledger.Migrations()); err != nil {
		return errors.WithMessage(err, "Error updating database schema")
	}
	fileLedger := ledger.New(db, m)

	publisher, err := dispatcher.NewPulsarPublisher(&config.Pulsar, config.Dispatch.SendTimeout)
	if err != nil {
		return errors.WithMessage(err, "Error creating pulsar publisher")
	}
	defer publisher.Close()

	fileDispatcher := dispatcher.New(
		publisher,
		fileLedger,
		config.Dispatch.MaxAttempts,
		config.Dispatch.InitialBackoff,
		config.Dispatch.MaxBackoff,
		m,
	)

	agent := &agent{
		config:     config,
		ledger:     fileLedger,
		dispatcher: fileDispatcher,
		sampler:    sampler.New(config.Sampling.Lookback, config.Sampling.Fraction),
		metrics:    m,
	}
	return agent.run(ctx)
}

type agent struct {
	config     *configuration.StfAgentConfiguration
	ledger     *ledger.Ledger
	dispatcher *dispatcher.Dispatcher
	sampler    *sampler.Sampler
	metrics    *metrics.Metrics
}

func (a *agent) run(ctx context.Context) error {
	candidates := make(chan discovery.Candidate)
	dispatchQueue := make(chan *model.StfFile, a.config.Dispatch.QueueSize)

	g, ctx := errgroup.WithContext(ctx)

	// Discovery sources. Continuous polling and message-driven triggers may
	// run concurrently; the ledger's uniqueness constraint makes the
	// overlap safe.
	sources, err := a.sources()
	if err != nil {
		return err
	}
	sourcesDone := make(chan struct{})
	sourceGroup, sourceCtx := errgroup.WithContext(ctx)
	for _, source := range sources {
		source := source
		sourceGroup.Go(func() error { return source.Run(sourceCtx, candidates) })
	}
	g.Go(func() error {
		defer close(candidates)
		defer close(sourcesDone)
		return sourceGroup.Wait()
	})

	// Sampling and ingestion. A failure on one candidate never blocks the
	// next; each file's fate is independent.
	g.Go(func() error {
		for candidate := range candidates {
			if err := a.processCandidate(ctx, candidate, dispatchQueue); err != nil {
				log.WithError(err).Warnf("Error processing candidate %s", candidate.Path)
			}
		}
		close(dispatchQueue)
		return nil
	})

	// Dispatch workers. Retries are per-file local backoff loops and may
	// run concurrently across files.
	dispatchGroup := &errgroup.Group{}
	for i := 0; i < a.config.Dispatch.Parallelism; i++ {
		dispatchGroup.Go(func() error {
			for file := range dispatchQueue {
				if err := a.dispatcher.Dispatch(ctx, file); err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Warnf("Error dispatching file %s", file.FileID)
				}
			}
			return nil
		})
	}
	g.Go(dispatchGroup.Wait)

	// Periodic re-dispatch pass for files stalled in processed.
	if a.config.Dispatch.RequeueInterval > 0 {
		g.Go(func() error {
			a.requeueStalled(ctx, sourcesDone)
			return nil
		})
	}

	log.Info("STF agent pipeline set up. Running until shutdown event received")
	err = g.Wait()
	log.Info("Shutdown event received - closing")
	return err
}

func (a *agent) sources() ([]discovery.Source, error) {
	var sources []discovery.Source
	mode := a.config.Discovery.Mode
	if mode == configuration.DiscoveryModeContinuous || mode == configuration.DiscoveryModeBoth {
		scanSource, err := discovery.NewScanSource(
			a.config.Discovery.WatchDirectories,
			a.config.Discovery.FilePatterns,
			a.config.Discovery.ScanInterval,
			a.config.Discovery.RecencyCacheSize,
			a.metrics,
		)
		if err != nil {
			return nil, err
		}
		sources = append(sources, scanSource)
	}
	if mode == configuration.DiscoveryModeTriggered || mode == configuration.DiscoveryModeBoth {
		sources = append(sources, discovery.NewTriggerSource(
			a.config.Pulsar, triggerSubscription, a.config.Discovery.FilePatterns, a.metrics))
	}
	return sources, nil
}

// processCandidate runs one candidate through sampling, registration and
// metadata extraction, queueing it for dispatch if it survives.
func (a *agent) processCandidate(ctx context.Context, candidate discovery.Candidate, dispatchQueue chan<- *model.StfFile) error {
	fileURL, err := extract.FileURL(a.config.Extract.BaseURL, candidate.Path)
	if err != nil {
		return err
	}

	// A file already present in the ledger must be rejected before the
	// probability trial so rescans never double-sample.
	exists, err := a.ledger.Exists(ctx, fileURL)
	if err != nil {
		return err
	}
	if exists {
		a.metrics.RecordSamplingDecision("duplicate")
		return nil
	}

	outcome := a.sampler.Accept(candidate)
	a.metrics.RecordSamplingDecision(string(outcome))
	if outcome != sampler.Accepted {
		return nil
	}

	file := &model.StfFile{
		FileID:        uuid.New(),
		RunNumber:     extract.RunNumber(candidate.Path, a.config.Extract.DefaultRunNumber),
		StfIdentifier: extract.StfIdentifier(candidate.Path),
		FileURL:       fileURL,
		SizeBytes:     candidate.SizeBytes,
		CreationTime:  candidate.CreationTime,
		Status:        model.FileRegistered,
		Metadata: map[string]interface{}{
			"original_path": candidate.Path,
			"hostname":      hostname(),
		},
	}
	created, err := a.ledger.Register(ctx, file)
	if err != nil {
		return err
	}
	if !created {
		// Another scan or trigger registered the same URL concurrently.
		a.metrics.RecordSamplingDecision("duplicate")
		return nil
	}
	log.Infof("Registered file %s -> %s", candidate.Path, file.FileID)

	if err := a.ledger.MarkProcessing(ctx, file.FileID); err != nil {
		return err
	}
	if a.config.Extract.ComputeChecksum {
		checksum, err := extract.Checksum(candidate.Path)
		if err != nil {
			// Extraction errors are terminal for the file; it is never
			// dispatched and the pipeline moves on to the next candidate.
			log.WithError(err).Warnf("Metadata extraction failed for %s", candidate.Path)
			return a.ledger.MarkFailed(ctx, file.FileID)
		}
		file.Checksum = checksum
		if err := a.ledger.SetChecksum(ctx, file.FileID, checksum); err != nil {
			return err
		}
	}
	if err := a.ledger.MarkProcessed(ctx, file.FileID); err != nil {
		return err
	}
	file.Status = model.FileProcessed

	select {
	case dispatchQueue <- file:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// requeueStalled periodically re-dispatches files stuck in processed, e.g.
// after the dispatcher exhausted its attempt ceiling or a crash lost the
// in-memory queue. The pass runs its files serially; it is a recovery
// path, not the hot path.
func (a *agent) requeueStalled(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(a.config.Dispatch.RequeueInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			files, err := a.ledger.StalledFiles(ctx, a.config.Dispatch.RequeueMinAge, a.config.Dispatch.QueueSize)
			if err != nil {
				log.WithError(err).Warn("Could not query stalled files")
				continue
			}
			if len(files) > 0 {
				log.Infof("Re-dispatching %d stalled files", len(files))
			}
			for _, file := range files {
				if err := a.dispatcher.Dispatch(ctx, file); err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					log.WithError(err).Warnf("Error re-dispatching file %s", file.FileID)
				}
			}
		}
	}
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
