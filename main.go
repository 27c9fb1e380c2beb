package main

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ticketgen",
	Short: "Generate test IT support emails and audit help-desk categorization",
}

var sendCount int

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Generate and send a batch of test ticket emails",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := LoadConfig()
		cfg.RequireSending()

		db, err := InitDB(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("init database: %w", err)
		}
		defer db.Close()

		categories, err := ReadCategories(cfg.CategoriesPath)
		if err != nil {
			return err
		}

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		specs := GenerateDistribution(sendCount, categories, rng)
		priorities, types := DistributionStats(specs)
		log.Printf("send planned count=%d %s", len(specs), FormatDistribution(priorities, types))

		start, end, err := NextSequenceRange(db, len(specs))
		if err != nil {
			return fmt.Errorf("allocating sequence range: %w", err)
		}
		log.Printf("send sequence range %d-%d", start, end)

		batch := Batch{
			ID:             NewBatchID(),
			StartedAt:      time.Now(),
			SenderEmail:    cfg.SenderEmail,
			RecipientEmail: cfg.RecipientEmail,
		}
		if err := InsertBatch(db, batch); err != nil {
			return fmt.Errorf("recording batch: %w", err)
		}

		generator := NewContentGenerator(cfg)
		sender := NewEmailSender(cfg.GraphAccessToken, cfg.SenderEmail)

		var sent []SentEmailRecord
		failures := 0
		for i, spec := range specs {
			seq := start + int64(i)
			subject, body, err := generator.GenerateEmail(spec, seq)
			if err != nil {
				log.Printf("send sequence=%d generation failed: %v", seq, err)
				failures++
				continue
			}

			delay := time.Duration(cfg.SendDelaySeconds) * time.Second
			if len(sent) == 0 {
				delay = 0
			}
			if err := sender.SendWithDelay(cfg.RecipientEmail, subject, body, delay); err != nil {
				log.Printf("send sequence=%d delivery failed: %v", seq, err)
				failures++
				continue
			}

			rec := NewSentEmailRecord(seq, subject, spec.Priority, spec.Type, spec.CategoryPath())
			rec.BatchID = batch.ID
			rec.SentAt = time.Now()
			sent = append(sent, rec)
			log.Printf("send sequence=%d subject=%q", seq, subject)
		}

		if len(sent) > 0 {
			if _, err := InsertSentEmails(db, sent); err != nil {
				return fmt.Errorf("recording sent emails: %w", err)
			}
		}

		usage := generator.Usage()
		log.Printf("send done batch=%s sent=%d failed=%d tokens=%d cost=$%.4f",
			batch.ID, len(sent), failures, usage.TotalTokens(), generator.EstimatedCost())
		if len(sent) == 0 {
			return fmt.Errorf("no emails were sent")
		}
		return nil
	},
}

var verifyBatchID string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify help-desk tickets for a sent batch and write a report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := LoadConfig()

		db, err := InitDB(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("init database: %w", err)
		}
		defer db.Close()

		var batch *Batch
		if verifyBatchID != "" {
			batch, err = GetBatch(db, verifyBatchID)
		} else {
			batch, err = LatestBatch(db)
		}
		if err != nil {
			return fmt.Errorf("loading batch: %w", err)
		}
		if batch == nil {
			return fmt.Errorf("no batch to verify")
		}

		client := NewFreshserviceClient(cfg.FreshserviceDomain, cfg.FreshserviceAPIKey, cfg.FreshserviceInsecureTLS)
		verifier := NewVerifier(client, cfg.GroupDirectory())

		outcome, err := RunVerification(cfg, db, verifier, *batch)
		if err != nil {
			return err
		}
		fmt.Print(SummaryText(outcome))
		return nil
	},
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run scheduled verification of unverified batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := LoadConfig()
		if cfg.VerifySchedule == "" {
			return fmt.Errorf("verify_schedule must be set to run the daemon")
		}

		db, err := InitDB(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("init database: %w", err)
		}
		defer db.Close()

		client := NewFreshserviceClient(cfg.FreshserviceDomain, cfg.FreshserviceAPIKey, cfg.FreshserviceInsecureTLS)
		verifier := NewVerifier(client, cfg.GroupDirectory())

		log.Println("Starting ticketgen verification daemon...")
		StartVerifyScheduler(cfg, db, verifier)
		select {}
	},
}

var counterCmd = &cobra.Command{
	Use:   "counter",
	Short: "Show the last allocated ticket sequence number",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := LoadConfig()
		db, err := InitDB(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("init database: %w", err)
		}
		defer db.Close()

		last, err := CurrentSequence(db)
		if err != nil {
			return fmt.Errorf("reading counter: %w", err)
		}
		fmt.Printf("last ticket number: %d\n", last)
		return nil
	},
}

func init() {
	sendCmd.Flags().IntVar(&sendCount, "count", 5, "number of test emails to send")
	verifyCmd.Flags().StringVar(&verifyBatchID, "batch", "", "batch id to verify (default: most recent)")
	rootCmd.AddCommand(sendCmd, verifyCmd, daemonCmd, counterCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}
