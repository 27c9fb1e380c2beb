package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const reportRule = "================================================================================"
const reportSubRule = "--------------------------------------------------------------------------------"

// WriteVerificationReport renders the full report and writes it under
// outputDir, returning the file path.
func WriteVerificationReport(outcome *VerificationOutcome, outputDir, recipientEmail, domain string, groups *GroupDirectory) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("verification_report_%s.txt", outcome.VerifiedAt.Format("20060102_150405"))
	path := filepath.Join(outputDir, filename)
	content := RenderVerificationReport(outcome, recipientEmail, domain, groups)
	return path, os.WriteFile(path, []byte(content), 0644)
}

func RenderVerificationReport(outcome *VerificationOutcome, recipientEmail, domain string, groups *GroupDirectory) string {
	var b strings.Builder
	s := outcome.Summary

	b.WriteString(reportRule + "\n")
	b.WriteString("TICKET VERIFICATION REPORT\n")
	b.WriteString(reportRule + "\n\n")

	b.WriteString("BATCH INFORMATION\n")
	b.WriteString(reportSubRule + "\n")
	fmt.Fprintf(&b, "Batch Started:          %s\n", outcome.BatchStartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Verification Run:       %s\n", outcome.VerifiedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Wait Time:              %.1f minutes\n", outcome.VerifiedAt.Sub(outcome.BatchStartTime).Minutes())
	if recipientEmail != "" {
		fmt.Fprintf(&b, "Recipient Email:        %s\n", recipientEmail)
	}
	if domain != "" {
		fmt.Fprintf(&b, "Help-Desk Domain:       %s\n", domain)
	}
	b.WriteString("\n")

	b.WriteString("SUMMARY STATISTICS\n")
	b.WriteString(reportSubRule + "\n")
	fmt.Fprintf(&b, "Total Emails Sent:      %d\n", s.Total)
	fmt.Fprintf(&b, "Tickets Found:          %d\n", s.Found)
	fmt.Fprintf(&b, "Tickets Not Found:      %d\n", s.NotFound)
	fmt.Fprintf(&b, "Total Matches (PASS):   %d\n", s.Passed)
	fmt.Fprintf(&b, "Total Mismatches (FAIL):%d\n", s.Failed)
	fmt.Fprintf(&b, "Success Rate:           %.1f%%\n\n", s.PassRate)

	b.WriteString("FIELD ACCURACY\n")
	b.WriteString(reportSubRule + "\n")
	for _, field := range comparisonFields {
		stat, ok := s.FieldStats[field]
		if !ok || stat.Evaluated == 0 {
			continue
		}
		fmt.Fprintf(&b, "%-20s %d/%d (%.1f%%)\n", fieldLabel(field), stat.Correct, stat.Evaluated, stat.Percentage)
	}

	if len(s.GroupDistribution) > 0 {
		b.WriteString("\nGROUP ASSIGNMENT DISTRIBUTION\n")
		b.WriteString(reportSubRule + "\n")
		fmt.Fprintf(&b, "Valid Groups: %s\n\n", strings.Join(groups.ValidNames(), ", "))
		names := make([]string, 0, len(s.GroupDistribution))
		for name := range s.GroupDistribution {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "%-40s %d tickets\n", name, s.GroupDistribution[name])
		}
	}
	b.WriteString("\n")

	b.WriteString(reportRule + "\n")
	b.WriteString("DETAILED TICKET VERIFICATION\n")
	b.WriteString(reportRule + "\n\n")
	for _, result := range outcome.Results {
		writeTicketResult(&b, result)
	}

	b.WriteString(reportRule + "\n")
	b.WriteString("END OF VERIFICATION REPORT\n")
	b.WriteString(reportRule + "\n")
	return b.String()
}

func writeTicketResult(b *strings.Builder, r TicketVerificationResult) {
	var statusText string
	switch {
	case r.Status == StatusNotFound:
		statusText = "NOT FOUND"
	case r.Overall == ResultPass:
		statusText = "PASS"
	case r.Overall == ResultDiscovery:
		statusText = "DISCOVERY"
	default:
		statusText = fmt.Sprintf("FAIL (%d mismatches)", r.MismatchCount)
	}

	fmt.Fprintf(b, "TICKET #%d - %s\n", r.Sequence, statusText)
	b.WriteString(reportSubRule + "\n")
	if r.Status == StatusFound {
		fmt.Fprintf(b, "Help-Desk ID:           %d\n", r.TicketID)
	}
	subject := r.Subject
	if len(subject) > 70 {
		subject = subject[:67] + "..."
	}
	fmt.Fprintf(b, "Subject:                %s\n", subject)
	fmt.Fprintf(b, "Status:                 %s\n\n", r.Status)

	if r.Status == StatusFound {
		b.WriteString("Expected vs Actual Comparison:\n")
		b.WriteString(reportSubRule + "\n")
		fmt.Fprintf(b, "%-20s %-25s %-25s %-10s\n", "Field", "Expected", "Actual", "Status")
		b.WriteString(reportSubRule + "\n")
		for _, field := range comparisonFields {
			c, ok := r.Comparisons[field]
			if !ok {
				continue
			}
			fmt.Fprintf(b, "%-20s %-25s %-25s %-10s\n",
				fieldLabel(field), clip(c.Expected, 24), clip(c.Actual, 24), verdictLabel(c.Verdict))
		}
		b.WriteString("\n")

		switch r.Overall {
		case ResultPass:
			b.WriteString("Overall Result: ALL FIELDS CORRECT\n")
		case ResultDiscovery:
			b.WriteString("Overall Result: DISCOVERY (actual values reported, no judgment)\n")
		default:
			fmt.Fprintf(b, "Overall Result: %d FIELDS INCORRECT\n", r.MismatchCount)
			b.WriteString("\nPossible Reasons:\n")
			b.WriteString("- Email content may not have triggered the right categorization rules\n")
			b.WriteString("- Help-desk automation/workflow rules may override email-based assignment\n")
			b.WriteString("- The backend priority matrix may differ from the expectation model\n")
		}
	} else {
		b.WriteString("Possible Reasons:\n")
		b.WriteString("- Ticket still being processed (may take longer than expected)\n")
		b.WriteString("- Email was rejected, filtered, or bounced by the mail server\n")
		b.WriteString("- Email not received by the help-desk inbox; check spam and routing rules\n")
	}

	b.WriteString("\n" + reportRule + "\n\n")
}

// SummaryText is the short form for logs and notifications.
func SummaryText(outcome *VerificationOutcome) string {
	s := outcome.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "Verification completed at %s\n\n", outcome.VerifiedAt.Format("2006-01-02 15:04:05"))
	b.WriteString("Results:\n")
	fmt.Fprintf(&b, "  Total Sent:     %d\n", s.Total)
	fmt.Fprintf(&b, "  Found:          %d\n", s.Found)
	fmt.Fprintf(&b, "  Not Found:      %d\n", s.NotFound)
	fmt.Fprintf(&b, "  Passed:         %d\n", s.Passed)
	fmt.Fprintf(&b, "  Failed:         %d\n", s.Failed)
	fmt.Fprintf(&b, "  Success Rate:   %.1f%%\n\n", s.PassRate)
	b.WriteString("Field Accuracy:\n")
	for _, field := range comparisonFields {
		stat, ok := s.FieldStats[field]
		if !ok || stat.Evaluated == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %-20s %d/%d (%.1f%%)\n", fieldLabel(field), stat.Correct, stat.Evaluated, stat.Percentage)
	}
	return b.String()
}

func verdictLabel(v MatchVerdict) string {
	switch v {
	case VerdictMatch:
		return "MATCH"
	case VerdictMismatch:
		return "MISMATCH"
	}
	return "INFO"
}

func fieldLabel(field string) string {
	words := strings.Split(strings.ReplaceAll(field, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
