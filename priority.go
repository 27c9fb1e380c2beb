package main

import (
	"fmt"
	"sort"
	"strings"
)

// Severity is the numeric urgency/impact scale used by the help-desk API.
type Severity int

const (
	SeverityLow    Severity = 1
	SeverityMedium Severity = 2
	SeverityHigh   Severity = 3
)

func (s Severity) Label() string {
	switch s {
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	}
	return fmt.Sprintf("Unknown (%d)", int(s))
}

// PriorityLabel translates the help-desk numeric priority to its name.
func PriorityLabel(n int) string {
	switch n {
	case 1:
		return "Low"
	case 2:
		return "Medium"
	case 3:
		return "High"
	case 4:
		return "Urgent"
	}
	return fmt.Sprintf("Unknown (%d)", n)
}

// PriorityNumber maps a business priority name to the help-desk numeric
// priority. Unrecognized names fall back to 2 (Medium); that is the agreed
// default, not an error.
func PriorityNumber(name string) int {
	switch name {
	case "Priority 1":
		return 4 // Urgent
	case "Priority 2":
		return 3 // High
	case "Priority 3":
		return 2 // Medium
	case "Priority 4":
		return 1 // Low
	}
	return 2
}

type severityPair struct {
	Urgency Severity
	Impact  Severity
}

// priorityMatrix lists every operationally equivalent (urgency, impact)
// combination for each business priority, per the ITIL priority matrix. A
// single priority can be satisfied by more than one pair.
var priorityMatrix = map[string][]severityPair{
	"Priority 1": {
		{SeverityHigh, SeverityHigh},
	},
	"Priority 2": {
		{SeverityHigh, SeverityMedium},
		{SeverityMedium, SeverityHigh},
	},
	"Priority 3": {
		{SeverityHigh, SeverityLow},
		{SeverityMedium, SeverityMedium},
		{SeverityLow, SeverityHigh},
	},
	"Priority 4": {
		{SeverityLow, SeverityLow},
	},
}

// ExpectedUrgencies returns the set of urgency values valid for the named
// priority, highest first. Unknown priorities yield an empty set.
func ExpectedUrgencies(priority string) []Severity {
	return collectSeverities(priority, func(p severityPair) Severity { return p.Urgency })
}

// ExpectedImpacts is the impact-axis counterpart of ExpectedUrgencies.
func ExpectedImpacts(priority string) []Severity {
	return collectSeverities(priority, func(p severityPair) Severity { return p.Impact })
}

func collectSeverities(priority string, pick func(severityPair) Severity) []Severity {
	seen := make(map[Severity]bool)
	var set []Severity
	for _, pair := range priorityMatrix[priority] {
		s := pick(pair)
		if !seen[s] {
			seen[s] = true
			set = append(set, s)
		}
	}
	sort.Slice(set, func(i, j int) bool { return set[i] > set[j] })
	return set
}

// UrgencyMatches reports whether the actual urgency is one of the valid
// values for the priority. An unknown priority matches nothing.
func UrgencyMatches(priority string, actual Severity) bool {
	return severityInSet(ExpectedUrgencies(priority), actual)
}

func ImpactMatches(priority string, actual Severity) bool {
	return severityInSet(ExpectedImpacts(priority), actual)
}

func severityInSet(set []Severity, actual Severity) bool {
	for _, s := range set {
		if s == actual {
			return true
		}
	}
	return false
}

// DisjunctionLabel renders a severity set for reporting ("High or Medium").
// This string exists only at the reporting boundary; matching always works
// on the set itself.
func DisjunctionLabel(set []Severity) string {
	if len(set) == 0 {
		return "Unknown"
	}
	labels := make([]string, len(set))
	for i, s := range set {
		labels[i] = s.Label()
	}
	return strings.Join(labels, " or ")
}

// DefaultSeverity applies the null policy: the help-desk source leaves
// urgency/impact unset on some email-created tickets, and its documented
// default for unset fields is Low.
func DefaultSeverity(v *int) Severity {
	if v == nil {
		return SeverityLow
	}
	return Severity(*v)
}
