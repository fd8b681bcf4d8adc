package procedure

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tripYAML = `
name: plan-trip
description: Plan a trip end to end
triggers:
  - 'plan (?:a|my) trip to (?P<destination>[\w ]+?)(?: with (?P<companion>\w+))?$'
steps:
  - action: research
    template: "Research flights to {destination}"
    category: travel
  - action: generate
    template: "Invite {companion} to {destination}"
    category: marketing
    when: companion
  - action: generate
    template: "Draft a solo packing list for {destination}"
    category: travel
    when: "!companion"
  - action: generate
    template: "Summarise {unknown} costs"
    category: finance
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestParseAndExpand(t *testing.T) {
	p, err := Parse([]byte(tripYAML), "trip.yaml")
	require.NoError(t, err)
	assert.Equal(t, "plan-trip", p.Name)

	vars, ok := p.Match("Plan a trip to Lisbon")
	require.True(t, ok)
	assert.Equal(t, "Lisbon", vars["destination"])
	assert.Empty(t, vars["companion"])

	steps := p.Expand(vars)
	require.Len(t, steps, 3)
	assert.Equal(t, "Research flights to Lisbon", steps[0].Description)
	assert.Equal(t, "travel", steps[0].Category)
	assert.Equal(t, "Draft a solo packing list for Lisbon", steps[1].Description)
	assert.Equal(t, "Summarise {unknown} costs", steps[2].Description, "unknown placeholders are kept")
	for i, s := range steps {
		assert.Equal(t, i, s.Index)
	}

	vars, ok = p.Match("plan my trip to Porto with Ana")
	require.True(t, ok)
	steps = p.Expand(vars)
	require.Len(t, steps, 3)
	assert.Equal(t, "Invite Ana to Porto", steps[1].Description)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "name: [unterminated"},
		{"no name", "triggers: [x]\nsteps: [{template: a}]"},
		{"no triggers", "name: a\nsteps: [{template: a}]"},
		{"no steps", "name: a\ntriggers: [x]"},
		{"bad regex", "name: a\ntriggers: ['(']\nsteps: [{template: a}]"},
		{"empty template", "name: a\ntriggers: [x]\nsteps: [{action: b}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "bad.yaml")
			assert.Error(t, err)
		})
	}
}

func TestMatcher_FirstInLoadOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "20-generic.yaml", "name: generic\ntriggers: ['trip']\nsteps: [{template: generic}]\n")
	writeFile(t, dir, "10-trip.yaml", tripYAML)
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, ".hidden.yaml", "garbage: [")

	procs, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, procs, 2)

	m := NewMatcher(procs)
	match, ok := m.Match("plan a trip to Rome")
	require.True(t, ok)
	assert.Equal(t, "plan-trip", match.Procedure.Name)
	assert.Equal(t, "Rome", match.Vars["destination"])

	match, ok = m.Match("any trip ideas?")
	require.True(t, ok)
	assert.Equal(t, "generic", match.Procedure.Name)

	_, ok = m.Match("order pizza")
	assert.False(t, ok)
}

func TestLoadDir_MissingAndDuplicate(t *testing.T) {
	procs, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, procs)

	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "name: same\ntriggers: [x]\nsteps: [{template: a}]\n")
	writeFile(t, dir, "b.yml", "name: same\ntriggers: [y]\nsteps: [{template: b}]\n")
	_, err = LoadDir(dir)
	assert.Error(t, err)
}

func TestWatcher_Reloads(t *testing.T) {
	dir := t.TempDir()
	m := NewMatcher(nil)
	w, err := NewWatcher(dir, m, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, dir, "trip.yaml", tripYAML)
	waitReload(t, w)

	_, ok := m.Match("plan a trip to Oslo")
	assert.True(t, ok)

	// A broken edit keeps the previous set.
	writeFile(t, dir, "trip.yaml", "name: [broken")
	waitReload(t, w)
	_, ok = m.Match("plan a trip to Oslo")
	assert.True(t, ok)

	require.NoError(t, os.Remove(filepath.Join(dir, "trip.yaml")))
	waitReload(t, w)
	_, ok = m.Match("plan a trip to Oslo")
	assert.False(t, ok)
}

func waitReload(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case <-w.Reloaded():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}
}
