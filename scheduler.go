package main

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// RunVerification verifies one batch end to end: match and compare its
// sent emails, write the report, persist the run and notify. Shared by the
// verify command and the scheduler.
func RunVerification(cfg Config, db *sql.DB, verifier *Verifier, batch Batch) (*VerificationOutcome, error) {
	records, err := GetSentEmailsByBatch(db, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("loading sent emails for batch %s: %w", batch.ID, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("batch %s has no sent emails", batch.ID)
	}

	outcome, err := verifier.VerifyBatch(records, batch.StartedAt, batch.SenderEmail)
	if err != nil {
		return nil, err
	}

	reportPath, err := WriteVerificationReport(outcome, cfg.ReportOutputDir, batch.RecipientEmail, cfg.FreshserviceDomain, cfg.GroupDirectory())
	if err != nil {
		log.Printf("verify report write error: %v", err)
		reportPath = ""
	}

	if err := RecordVerificationRun(db, NewBatchID(), batch.ID, outcome.Summary, reportPath); err != nil {
		log.Printf("verify run record error: %v", err)
	}

	if err := NotifySlack(cfg, outcome, reportPath); err != nil {
		log.Printf("verify slack notify error: %v", err)
	}

	log.Printf("verify batch=%s done found=%d/%d passed=%d failed=%d pass_rate=%.1f report=%s",
		batch.ID, outcome.Summary.Found, outcome.Summary.Total,
		outcome.Summary.Passed, outcome.Summary.Failed, outcome.Summary.PassRate, reportPath)
	return outcome, nil
}

// StartVerifyScheduler runs scheduled verification of the most recent
// unverified batch, once the batch is old enough for the help desk to have
// processed its emails. The schedule is a standard 5-field cron expression.
func StartVerifyScheduler(cfg Config, db *sql.DB, verifier *Verifier) {
	schedule := strings.TrimSpace(cfg.VerifySchedule)
	if schedule == "" {
		log.Println("Scheduled verification disabled (verify_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid verify_schedule '%s': %v — scheduled verification disabled", schedule, err)
		return
	}
	log.Printf("Scheduled verification enabled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			log.Printf("Next verification check at %s (in %s)", next.Format("Mon Jan 2 15:04"), next.Sub(now).Round(time.Minute))
			time.Sleep(next.Sub(now))

			if err := verifyNextBatch(cfg, db, verifier); err != nil {
				log.Printf("Scheduled verification error: %v", err)
			}
		}
	}()
}

func verifyNextBatch(cfg Config, db *sql.DB, verifier *Verifier) error {
	batch, err := LatestUnverifiedBatch(db)
	if err != nil {
		return fmt.Errorf("finding unverified batch: %w", err)
	}
	if batch == nil {
		log.Println("verify scheduler: no unverified batches")
		return nil
	}

	wait := time.Duration(cfg.VerifyWaitMinutes) * time.Minute
	if age := time.Since(batch.StartedAt); age < wait {
		log.Printf("verify scheduler: batch=%s age=%s below wait=%s, skipping", batch.ID, age.Round(time.Minute), wait)
		return nil
	}

	_, err = RunVerification(cfg, db, verifier, *batch)
	return err
}
