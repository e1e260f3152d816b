// Package maintenance runs the recurring cleanup job that prunes stale
// cooldown entries and aged-out signal history records.
package maintenance

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"market-signal-engine/internal/cooldown"
	"market-signal-engine/internal/history"
)

// Job wraps a cron scheduler that periodically cleans up stale cooldown
// entries and aged-out history records.
type Job struct {
	cron           *cron.Cron
	cooldowns      *cooldown.Store
	history        *history.Store
	cooldownMaxAge time.Duration
	historyDays    int
}

// New builds a maintenance Job. The schedule passed to Start is a
// standard 5-field cron expression, "0 2 * * *" by default.
func New(cooldowns *cooldown.Store, hist *history.Store, cooldownMaxAge time.Duration, historyDays int) *Job {
	return &Job{
		cron:           cron.New(cron.WithLocation(time.UTC)),
		cooldowns:      cooldowns,
		history:        hist,
		cooldownMaxAge: cooldownMaxAge,
		historyDays:    historyDays,
	}
}

// Start schedules the cleanup job and starts the cron scheduler.
func (j *Job) Start(schedule string) error {
	_, err := j.cron.AddFunc(schedule, j.cleanup)
	if err != nil {
		return err
	}
	j.cron.Start()
	log.Printf("maintenance: cleanup job scheduled (%s)", schedule)
	return nil
}

// Stop halts the cron scheduler, waiting for any in-flight job.
func (j *Job) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *Job) cleanup() {
	deletedCooldowns, err := j.cooldowns.Cleanup(j.cooldownMaxAge)
	if err != nil {
		log.Printf("maintenance: cooldown cleanup failed: %v", err)
	} else {
		log.Printf("maintenance: pruned %d stale cooldown entries", deletedCooldowns)
	}

	deletedHistory, err := j.history.Cleanup(j.historyDays)
	if err != nil {
		log.Printf("maintenance: history cleanup failed: %v", err)
	} else {
		log.Printf("maintenance: pruned %d old history records", deletedHistory)
	}
}

// RunNow triggers an immediate out-of-band cleanup, bypassing the cron
// schedule. Used by the admin API's force-cleanup endpoint.
func (j *Job) RunNow() {
	j.cleanup()
}
