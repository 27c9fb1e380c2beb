package main

import (
	"fmt"
	"time"
)

// RecordMode says whether a sent email carries the full expected
// classification or is a discovery-only record (historical ticket whose
// expectations are unknown). Comparison branches on the mode as a unit,
// never on individual missing fields.
type RecordMode int

const (
	ModeNormal RecordMode = iota
	ModeDiscovery
)

type SentEmailRecord struct {
	Sequence int64  // unique number embedded in the subject tag
	Subject  string // full subject line as sent
	Mode     RecordMode

	// Expected classification; all empty in discovery mode.
	ExpectedPriority string // "Priority 1".."Priority 4"
	ExpectedType     string // "Incident" or "Service Request"
	ExpectedCategory string // ">"-delimited, 1-3 levels

	BatchID string
	SentAt  time.Time
}

// NewSentEmailRecord derives the mode: a record is normal only when
// priority, type and category are all present.
func NewSentEmailRecord(seq int64, subject, priority, ticketType, categoryPath string) SentEmailRecord {
	mode := ModeNormal
	if priority == "" || ticketType == "" || categoryPath == "" {
		mode = ModeDiscovery
	}
	return SentEmailRecord{
		Sequence:         seq,
		Subject:          subject,
		Mode:             mode,
		ExpectedPriority: priority,
		ExpectedType:     ticketType,
		ExpectedCategory: categoryPath,
	}
}

// SubjectTag is the sole contract between sending and verification: every
// test email embeds this exact bracketed tag somewhere in its subject.
func (r SentEmailRecord) SubjectTag() string {
	return SubjectTag(r.Sequence)
}

func SubjectTag(seq int64) string {
	return fmt.Sprintf("[TEST-TKT-%d]", seq)
}

// HelpDeskTicket mirrors the Freshservice ticket payload. Urgency, impact,
// category levels and group are nullable for email-created tickets.
type HelpDeskTicket struct {
	ID          int64   `json:"id"`
	Subject     string  `json:"subject"`
	Priority    int     `json:"priority"` // 1=Low .. 4=Urgent
	Urgency     *int    `json:"urgency"`  // 1=Low .. 3=High
	Impact      *int    `json:"impact"`   // 1=Low .. 3=High
	Type        string  `json:"type"`
	Category    *string `json:"category"`
	SubCategory *string `json:"sub_category"`
	Item        *string `json:"item"`
	GroupID     *int64  `json:"group_id"`
	Description string  `json:"description_text"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// MatchVerdict is the outcome of one field comparison. VerdictInfo marks
// informational-only comparisons (discovery mode) that never count toward
// match or mismatch totals.
type MatchVerdict int

const (
	VerdictInfo MatchVerdict = iota
	VerdictMatch
	VerdictMismatch
)

func (v MatchVerdict) Evaluated() bool {
	return v != VerdictInfo
}

type FieldComparison struct {
	Expected string
	Actual   string
	Verdict  MatchVerdict
}

type VerifyStatus string

const (
	StatusFound    VerifyStatus = "FOUND"
	StatusNotFound VerifyStatus = "NOT_FOUND"
)

type OverallResult string

const (
	ResultPass      OverallResult = "PASS"
	ResultFail      OverallResult = "FAIL"
	ResultDiscovery OverallResult = "DISCOVERY"
	ResultNotFound  OverallResult = "NOT_FOUND"
)

type TicketVerificationResult struct {
	Sequence      int64
	Subject       string
	Status        VerifyStatus
	TicketID      int64 // zero when NOT_FOUND
	Comparisons   map[string]FieldComparison
	Overall       OverallResult
	MatchCount    int
	MismatchCount int
}

type FieldStat struct {
	Correct    int
	Evaluated  int
	Percentage float64
}

type BatchSummary struct {
	Total    int
	Found    int
	NotFound int
	Passed   int
	Failed   int
	PassRate float64 // passed/found*100, 0 when found == 0

	FieldStats        map[string]FieldStat
	GroupDistribution map[string]int // group name -> ticket count, all FOUND results
}

// VerificationOutcome is what a batch verification run returns to reporting.
type VerificationOutcome struct {
	Results        []TicketVerificationResult
	Summary        BatchSummary
	BatchStartTime time.Time
	VerifiedAt     time.Time
}

// comparisonFields fixes the field order for reports and accuracy stats.
var comparisonFields = []string{
	"priority", "urgency", "impact", "type", "category", "sub_category", "item", "group",
}
