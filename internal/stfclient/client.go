// Package stfclient runs the consumer: a single durable subscription whose
// messages are upserted into the local store, with live per-run aggregates
// and a summary printed on shutdown.
package stfclient

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/epic-swf/stfmon/internal/common"
	"github.com/epic-swf/stfmon/internal/common/database"
	"github.com/epic-swf/stfmon/internal/stfclient/clientdb"
	"github.com/epic-swf/stfmon/internal/stfclient/configuration"
	"github.com/epic-swf/stfmon/internal/stfclient/ingest"
	"github.com/epic-swf/stfmon/internal/stfclient/metrics"
)

// Run starts the consumer and blocks until ctx is cancelled. Shutdown is a
// graceful drain: the receive loop stops, the in-flight write flushes, and
// a per-run summary is emitted before returning.
func Run(ctx context.Context, config *configuration.StfClientConfiguration) error {
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
	if err := database.UpdateDatabase(ctx, db, clientdb.Migrations()); err != nil {
		return errors.WithMessage(err, "Error updating database schema")
	}
	store := clientdb.New(db, m)

	startTime := time.Now()
	ingestor := ingest.NewIngestor(config.Pulsar, config.SubscriptionName, store, m)

	log.Info("Consumer ingestor set up. Running until shutdown event received")
	err = ingestor.Run(ctx)

	// The receive loop has drained; report what this deployment has seen.
	printSummary(store, startTime)
	return err
}

func printSummary(store *clientdb.ClientDb, startTime time.Time) {
	summaryCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summaries, err := store.Summaries(summaryCtx)
	if err != nil {
		log.WithError(err).Error("Could not read run summaries")
		return
	}

	uptime := time.Since(startTime).Round(time.Second)
	var totalTfs, totalBytes int64
	for _, s := range summaries {
		totalTfs += s.TotalTfs
		totalBytes += s.TotalBytes
	}

	fmt.Println("==================================================")
	fmt.Println("STF MONITORING CLIENT SUMMARY")
	fmt.Println("==================================================")
	fmt.Printf("Uptime:            %s\n", uptime)
	fmt.Printf("TF files recorded: %d\n", totalTfs)
	fmt.Printf("Total data size:   %.2f MB\n", float64(totalBytes)/(1024*1024))
	if len(summaries) > 0 {
		fmt.Printf("Runs seen:         %d\n", len(summaries))
		fmt.Println("--------------------------------------------------")
		for _, s := range summaries {
			fmt.Printf("  Run %6d: %6d TF files, %10.2f MB\n",
				s.RunNumber, s.TotalTfs, float64(s.TotalBytes)/(1024*1024))
		}
	}
	fmt.Println("==================================================")
}
