package main

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// GroupDirectory is the allow-list of assignment groups a ticket may land
// in. The list is hand-maintained against the help-desk backend and drifts,
// so it can be overridden from a YAML file instead of rebuilding.
type GroupDirectory struct {
	names map[int64]string
}

type groupFile struct {
	Groups []groupEntry `yaml:"groups"`
}

type groupEntry struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// DefaultGroupDirectory returns the compiled-in six valid groups.
func DefaultGroupDirectory() *GroupDirectory {
	return &GroupDirectory{names: map[int64]string{
		76000128925: "Service Desk Team",
		76000128926: "Infrastructure Team",
		76000128927: "Application Team",
		76000138755: "Enterprise Technology",
		76000165188: "Lightbulbs",
		76000209739: "People & Safety Systems",
	}}
}

// LoadGroupDirectory reads a group allow-list from a YAML file.
func LoadGroupDirectory(path string) (*GroupDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read groups file: %w", err)
	}
	var f groupFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse groups yaml: %w", err)
	}
	if len(f.Groups) == 0 {
		return nil, fmt.Errorf("groups file %s defines no groups", path)
	}
	names := make(map[int64]string, len(f.Groups))
	for _, g := range f.Groups {
		if g.ID == 0 || g.Name == "" {
			return nil, fmt.Errorf("groups file %s: every entry needs id and name", path)
		}
		names[g.ID] = g.Name
	}
	return &GroupDirectory{names: names}, nil
}

// Valid reports allow-list membership. Membership is the pass/fail check
// for the group field; names outside the list are still reportable.
func (d *GroupDirectory) Valid(id int64) bool {
	_, ok := d.names[id]
	return ok
}

// Name resolves a group id for reporting, falling back to a recognizable
// placeholder for ids outside the directory.
func (d *GroupDirectory) Name(id int64) string {
	if name, ok := d.names[id]; ok {
		return name
	}
	return fmt.Sprintf("Unknown Group (ID: %d)", id)
}

// ValidNames lists the allow-listed group names, sorted for stable report
// output.
func (d *GroupDirectory) ValidNames() []string {
	names := make([]string, 0, len(d.names))
	for _, n := range d.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
