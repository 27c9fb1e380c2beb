package main

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
)

// Category is one row of the catalog the help desk classifies against.
type Category struct {
	Name        string
	SubCategory string
	Item        string
}

// ReadCategories loads the catalog from a CSV with Category, Sub-Category
// and Item columns. Rows without a category are skipped.
func ReadCategories(path string) ([]Category, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open categories file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read categories csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("categories file %s has no data rows", path)
	}

	// Header lookup tolerates stray whitespace in column names.
	cols := map[string]int{}
	for i, name := range rows[0] {
		cols[strings.TrimSpace(name)] = i
	}
	catCol, ok := cols["Category"]
	if !ok {
		return nil, fmt.Errorf("categories file %s is missing a 'Category' column", path)
	}
	subCol, hasSub := cols["Sub-Category"]
	itemCol, hasItem := cols["Item"]

	field := func(row []string, idx int) string {
		if idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var categories []Category
	for _, row := range rows[1:] {
		c := Category{Name: field(row, catCol)}
		if c.Name == "" {
			continue
		}
		if hasSub {
			c.SubCategory = field(row, subCol)
		}
		if hasItem {
			c.Item = field(row, itemCol)
		}
		categories = append(categories, c)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("categories file %s has no valid entries", path)
	}
	return categories, nil
}

// Weighted toward lower priorities so batches look like real traffic.
var priorityWeights = map[string]float64{
	"Priority 1": 0.1,
	"Priority 2": 0.2,
	"Priority 3": 0.4,
	"Priority 4": 0.3,
}

var typeWeights = map[string]float64{
	"Incident":        0.6,
	"Service Request": 0.4,
}

var (
	allPriorities = []string{"Priority 1", "Priority 2", "Priority 3", "Priority 4"}
	allTypes      = []string{"Incident", "Service Request"}
)

// GenerateDistribution plans a batch: each planned ticket gets a random
// category and a weighted-random priority and type.
func GenerateDistribution(total int, categories []Category, rng *rand.Rand) []TicketSpec {
	specs := make([]TicketSpec, 0, total)
	for i := 0; i < total; i++ {
		c := categories[rng.Intn(len(categories))]
		specs = append(specs, TicketSpec{
			Category:    c.Name,
			SubCategory: c.SubCategory,
			Item:        c.Item,
			Priority:    weightedChoice(allPriorities, priorityWeights, rng),
			Type:        weightedChoice(allTypes, typeWeights, rng),
		})
	}
	return specs
}

func weightedChoice(items []string, weights map[string]float64, rng *rand.Rand) string {
	defaultWeight := 1.0 / float64(len(items))
	total := 0.0
	for _, item := range items {
		w, ok := weights[item]
		if !ok {
			w = defaultWeight
		}
		total += w
	}

	r := rng.Float64() * total
	cumulative := 0.0
	for _, item := range items {
		w, ok := weights[item]
		if !ok {
			w = defaultWeight
		}
		cumulative += w
		if r <= cumulative {
			return item
		}
	}
	return items[0]
}

// DistributionStats tallies planned priorities and types for the pre-send
// summary log.
func DistributionStats(specs []TicketSpec) (map[string]int, map[string]int) {
	priorities := make(map[string]int)
	types := make(map[string]int)
	for _, s := range specs {
		priorities[s.Priority]++
		types[s.Type]++
	}
	return priorities, types
}

func FormatDistribution(priorities, types map[string]int) string {
	var b strings.Builder
	b.WriteString("Priorities:")
	for _, k := range sortedKeys(priorities) {
		fmt.Fprintf(&b, " %s=%d", k, priorities[k])
	}
	b.WriteString(" Types:")
	for _, k := range sortedKeys(types) {
		fmt.Fprintf(&b, " %s=%d", k, types[k])
	}
	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
