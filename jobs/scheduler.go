package jobs

import (
	"context"
	"os"

	"blogpin-backend/utils"

	"github.com/robfig/cron/v3"
)

// Scheduler wires the sweeps onto a cron. Jobs are re-entrant, so an
// overlapping trigger from a slow run is safe.
type Scheduler struct {
	cron *cron.Cron
	jobs *Jobs
}

func NewScheduler(jobs *Jobs) *Scheduler {
	c := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(utils.Logger))))
	return &Scheduler{cron: c, jobs: jobs}
}

func scheduleOr(envKey, fallback string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return fallback
}

// Start registers every sweep and starts the cron loop.
func (s *Scheduler) Start() {
	entries := []struct {
		name     string
		schedule string
		run      func()
	}{
		{"subscription expiry sweep", scheduleOr("EXPIRY_SWEEP_SCHEDULE", "*/10 * * * *"), func() {
			if _, err := s.jobs.ExpireSubscriptions(); err != nil {
				utils.LogError(err, "Expiry sweep failed")
			}
		}},
		{"webhook retry sweep", scheduleOr("WEBHOOK_RETRY_SCHEDULE", "0 * * * *"), func() {
			if _, err := s.jobs.RetryFailedWebhooks(); err != nil {
				utils.LogError(err, "Webhook retry sweep failed")
			}
		}},
		{"expiry reminder sweep", scheduleOr("REMINDER_SWEEP_SCHEDULE", "0 9 * * *"), func() {
			if _, err := s.jobs.SendExpiryReminders(); err != nil {
				utils.LogError(err, "Reminder sweep failed")
			}
		}},
		{"payment cleanup sweep", scheduleOr("PAYMENT_CLEANUP_SCHEDULE", "0 3 * * *"), func() {
			if _, err := s.jobs.CleanupOldPayments(); err != nil {
				utils.LogError(err, "Payment cleanup sweep failed")
			}
		}},
		{"webhook cleanup sweep", scheduleOr("WEBHOOK_CLEANUP_SCHEDULE", "30 3 * * *"), func() {
			if _, err := s.jobs.CleanupOldWebhookEvents(); err != nil {
				utils.LogError(err, "Webhook cleanup sweep failed")
			}
		}},
	}

	for _, entry := range entries {
		if _, err := s.cron.AddFunc(entry.schedule, entry.run); err != nil {
			utils.LogError(err, "Could not schedule the "+entry.name)
			continue
		}
		utils.LogInfo("Scheduled the " + entry.name + " (" + entry.schedule + ")")
	}

	s.cron.Start()
}

// Stop stops the cron loop and returns a context that completes once running
// jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
