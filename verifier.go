package main

import (
	"fmt"
	"log"
	"strings"
	"time"
)

const expectedDiscovery = "Discovery Mode"

// Verifier resolves previously sent test emails to help-desk tickets and
// audits how each ticket was classified.
type Verifier struct {
	source TicketSource
	groups *GroupDirectory
}

func NewVerifier(source TicketSource, groups *GroupDirectory) *Verifier {
	if groups == nil {
		groups = DefaultGroupDirectory()
	}
	return &Verifier{source: source, groups: groups}
}

// VerifyBatch matches every sent record to at most one ticket, compares the
// matched pairs field by field and aggregates a batch summary. Absent
// tickets are routine data (NOT_FOUND), never errors; the only error case
// is the ticket source failing on every search fallback.
func (v *Verifier) VerifyBatch(records []SentEmailRecord, batchStart time.Time, senderEmail string) (*VerificationOutcome, error) {
	candidates, err := v.fetchCandidates(batchStart, senderEmail, len(records) > 0)
	if err != nil {
		return nil, err
	}

	// Consumed ticket ids are scoped to this run: concurrent runs never
	// share the set, and a ticket satisfies at most one record.
	consumed := make(map[int64]bool)

	results := make([]TicketVerificationResult, 0, len(records))
	for _, rec := range records {
		ticket := matchTicket(rec, candidates, consumed)
		if ticket == nil {
			log.Printf("verify sequence=%d tag=%s not found", rec.Sequence, rec.SubjectTag())
			results = append(results, TicketVerificationResult{
				Sequence:    rec.Sequence,
				Subject:     rec.Subject,
				Status:      StatusNotFound,
				Overall:     ResultNotFound,
				Comparisons: map[string]FieldComparison{},
			})
			continue
		}
		results = append(results, v.compareTicket(rec, *ticket))
	}

	return &VerificationOutcome{
		Results:        results,
		Summary:        summarize(results),
		BatchStartTime: batchStart,
		VerifiedAt:     time.Now(),
	}, nil
}

// fetchCandidates runs the widening search chain: batch window, then the
// window minus 24 hours, then unfiltered capped at maxTicketScan. Each
// widening step is explicit and logged. A step whose search errors counts
// as zero candidates so the next step still runs; only when every step
// errors does the whole batch fail.
func (v *Verifier) fetchCandidates(batchStart time.Time, senderEmail string, haveRecords bool) ([]HelpDeskTicket, error) {
	steps := []struct {
		name         string
		updatedSince string
	}{
		{"batch-window", FormatTimestamp(batchStart)},
		{"widened-24h", FormatTimestamp(batchStart.Add(-24 * time.Hour))},
		{"unfiltered", ""},
	}

	var lastErr error
	failed := 0
	for _, step := range steps {
		tickets, err := v.source.SearchTickets(senderEmail, step.updatedSince, maxTicketScan)
		if err != nil {
			log.Printf("verify search step=%s error: %v", step.name, err)
			lastErr = err
			failed++
			continue
		}
		log.Printf("verify search step=%s sender=%q found=%d", step.name, senderEmail, len(tickets))
		if len(tickets) > 0 {
			logTicketSubjects(tickets)
			return tickets, nil
		}
		if !haveRecords {
			// Nothing to look for, no point widening.
			break
		}
	}

	if failed == len(steps) {
		return nil, fmt.Errorf("ticket search failed at every fallback step: %w", lastErr)
	}
	return nil, nil
}

// matchTicket finds the first unconsumed candidate whose subject contains
// the record's tag and marks it consumed. First match wins, in candidate
// order; two records can never bind to the same ticket.
func matchTicket(rec SentEmailRecord, candidates []HelpDeskTicket, consumed map[int64]bool) *HelpDeskTicket {
	tag := rec.SubjectTag()
	for i := range candidates {
		t := &candidates[i]
		if consumed[t.ID] {
			continue
		}
		if strings.Contains(t.Subject, tag) {
			consumed[t.ID] = true
			return t
		}
	}
	return nil
}

func (v *Verifier) compareTicket(rec SentEmailRecord, ticket HelpDeskTicket) TicketVerificationResult {
	result := TicketVerificationResult{
		Sequence:    rec.Sequence,
		Subject:     rec.Subject,
		Status:      StatusFound,
		TicketID:    ticket.ID,
		Comparisons: make(map[string]FieldComparison, len(comparisonFields)),
	}

	// Null policy: unset urgency/impact compare as Low.
	actualUrgency := DefaultSeverity(ticket.Urgency)
	actualImpact := DefaultSeverity(ticket.Impact)
	actualType := normalizeTicketType(ticket.Type)

	record := func(field string, c FieldComparison) {
		result.Comparisons[field] = c
		switch c.Verdict {
		case VerdictMatch:
			result.MatchCount++
		case VerdictMismatch:
			result.MismatchCount++
		}
	}

	if rec.Mode == ModeDiscovery {
		// Discovery mode reports actual values without judgment; nothing
		// counts toward match or mismatch.
		record("priority", infoComparison(PriorityLabel(ticket.Priority)))
		record("urgency", infoComparison(actualUrgency.Label()))
		record("impact", infoComparison(actualImpact.Label()))
		record("type", infoComparison(actualType))
		record("category", infoComparison(renderActual(ticket.Category)))
		record("sub_category", infoComparison(renderActual(ticket.SubCategory)))
		record("item", infoComparison(renderActual(ticket.Item)))
		record("group", infoComparison(v.groupActual(ticket.GroupID)))
		result.Overall = ResultDiscovery
		return result
	}

	record("priority", FieldComparison{
		Expected: rec.ExpectedPriority,
		Actual:   PriorityLabel(ticket.Priority),
		Verdict:  verdict(ticket.Priority == PriorityNumber(rec.ExpectedPriority)),
	})
	record("urgency", FieldComparison{
		Expected: DisjunctionLabel(ExpectedUrgencies(rec.ExpectedPriority)),
		Actual:   actualUrgency.Label(),
		Verdict:  verdict(UrgencyMatches(rec.ExpectedPriority, actualUrgency)),
	})
	record("impact", FieldComparison{
		Expected: DisjunctionLabel(ExpectedImpacts(rec.ExpectedPriority)),
		Actual:   actualImpact.Label(),
		Verdict:  verdict(ImpactMatches(rec.ExpectedPriority, actualImpact)),
	})
	record("type", FieldComparison{
		Expected: rec.ExpectedType,
		Actual:   actualType,
		Verdict:  verdict(actualType == rec.ExpectedType),
	})

	expCat, expSub, expItem := splitCategoryPath(rec.ExpectedCategory)
	record("category", categoryComparison(expCat, ticket.Category))
	record("sub_category", categoryComparison(expSub, ticket.SubCategory))
	record("item", categoryComparison(expItem, ticket.Item))

	expectedGroup := fmt.Sprintf("One of %d valid groups", len(v.groups.names))
	if ticket.GroupID == nil {
		// An unassigned group is always a failure in normal mode.
		record("group", FieldComparison{Expected: expectedGroup, Actual: "Unassigned", Verdict: VerdictMismatch})
	} else {
		record("group", FieldComparison{
			Expected: expectedGroup,
			Actual:   v.groups.Name(*ticket.GroupID),
			Verdict:  verdict(v.groups.Valid(*ticket.GroupID)),
		})
	}

	if result.MismatchCount == 0 {
		result.Overall = ResultPass
	} else {
		result.Overall = ResultFail
	}
	return result
}

func verdict(match bool) MatchVerdict {
	if match {
		return VerdictMatch
	}
	return VerdictMismatch
}

func infoComparison(actual string) FieldComparison {
	return FieldComparison{Expected: expectedDiscovery, Actual: actual, Verdict: VerdictInfo}
}

// categoryComparison compares one hierarchy level. Both sides normalize
// absence to the empty string, so a level unset on both sides counts as a
// match; that mirrors the backend treating two unset levels as equal.
func categoryComparison(expected string, actual *string) FieldComparison {
	act := ""
	if actual != nil {
		act = strings.TrimSpace(*actual)
	}
	c := FieldComparison{
		Expected: expected,
		Actual:   act,
		Verdict:  verdict(expected == act),
	}
	if c.Expected == "" {
		c.Expected = "N/A"
	}
	if c.Actual == "" {
		c.Actual = "Not Set"
	}
	return c
}

// splitCategoryPath breaks "Category>Sub-Category>Item" into up to three
// trimmed levels. Missing or malformed segments degrade to empty rather
// than failing the batch.
func splitCategoryPath(path string) (cat, sub, item string) {
	parts := strings.Split(path, ">")
	levels := [3]string{}
	for i := 0; i < len(parts) && i < 3; i++ {
		levels[i] = strings.TrimSpace(parts[i])
	}
	return levels[0], levels[1], levels[2]
}

// normalizeTicketType collapses the source's type field onto the two
// values the expectation model knows.
func normalizeTicketType(t string) string {
	if t == "Incident" {
		return "Incident"
	}
	return "Service Request"
}

func (v *Verifier) groupActual(groupID *int64) string {
	if groupID == nil {
		return "Unassigned"
	}
	return v.groups.Name(*groupID)
}

func renderActual(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "Not Set"
	}
	return strings.TrimSpace(*s)
}

// summarize computes batch statistics. Discovery results count as found
// but in neither passed nor failed; the pass rate denominator is found,
// never total, so a high not-found rate cannot mask failures. Field
// accuracy counts only evaluated comparisons. The group distribution spans
// every found ticket regardless of mode or outcome.
func summarize(results []TicketVerificationResult) BatchSummary {
	s := BatchSummary{
		Total:             len(results),
		FieldStats:        make(map[string]FieldStat, len(comparisonFields)),
		GroupDistribution: make(map[string]int),
	}

	for _, r := range results {
		switch r.Status {
		case StatusFound:
			s.Found++
		case StatusNotFound:
			s.NotFound++
		}
		switch r.Overall {
		case ResultPass:
			s.Passed++
		case ResultFail:
			s.Failed++
		}
		if r.Status == StatusFound {
			if g, ok := r.Comparisons["group"]; ok {
				s.GroupDistribution[g.Actual]++
			}
		}
	}

	if s.Found > 0 {
		s.PassRate = float64(s.Passed) / float64(s.Found) * 100
	}

	for _, field := range comparisonFields {
		stat := FieldStat{}
		for _, r := range results {
			if r.Status != StatusFound {
				continue
			}
			c, ok := r.Comparisons[field]
			if !ok || !c.Verdict.Evaluated() {
				continue
			}
			stat.Evaluated++
			if c.Verdict == VerdictMatch {
				stat.Correct++
			}
		}
		if stat.Evaluated > 0 {
			stat.Percentage = float64(stat.Correct) / float64(stat.Evaluated) * 100
		}
		s.FieldStats[field] = stat
	}

	return s
}
