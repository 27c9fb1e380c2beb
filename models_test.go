package main

import "testing"

func TestSubjectTag(t *testing.T) {
	if got := SubjectTag(42); got != "[TEST-TKT-42]" {
		t.Fatalf("SubjectTag(42) = %q", got)
	}
	rec := NewSentEmailRecord(7, "[TEST-TKT-7] printer jam", "Priority 3", "Incident", "Hardware>Printer")
	if got := rec.SubjectTag(); got != "[TEST-TKT-7]" {
		t.Fatalf("rec.SubjectTag() = %q", got)
	}
}

func TestNewSentEmailRecordModeDerivation(t *testing.T) {
	cases := []struct {
		name     string
		priority string
		tktType  string
		category string
		want     RecordMode
	}{
		{"all fields present", "Priority 1", "Incident", "Network>VPN>Down", ModeNormal},
		{"missing priority", "", "Incident", "Network", ModeDiscovery},
		{"missing type", "Priority 2", "", "Network", ModeDiscovery},
		{"missing category", "Priority 2", "Incident", "", ModeDiscovery},
		{"all missing", "", "", "", ModeDiscovery},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := NewSentEmailRecord(1, "subject", tc.priority, tc.tktType, tc.category)
			if rec.Mode != tc.want {
				t.Fatalf("mode = %v, want %v", rec.Mode, tc.want)
			}
		})
	}
}

func TestMatchVerdictEvaluated(t *testing.T) {
	if VerdictInfo.Evaluated() {
		t.Fatal("info verdict must not count as evaluated")
	}
	if !VerdictMatch.Evaluated() || !VerdictMismatch.Evaluated() {
		t.Fatal("match and mismatch verdicts must count as evaluated")
	}
}
