// Package procedure loads multi-step procedures from YAML and matches
// requests against their trigger patterns.
package procedure

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Step is one templated step. Placeholders are written {name}.
type Step struct {
	Action   string `yaml:"action"`
	Template string `yaml:"template"`
	Category string `yaml:"category"`
	// When names a variable that must be non-empty for the step to be
	// included. A leading "!" inverts the test.
	When string `yaml:"when,omitempty"`
}

// Procedure is a named plan triggered by regular expressions with named groups.
type Procedure struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Triggers    []string `yaml:"triggers"`
	Steps       []Step   `yaml:"steps"`

	// Source is the file the procedure was loaded from.
	Source string `yaml:"-"`

	triggers []*regexp.Regexp
}

// ExpandedStep is a step with placeholders substituted.
type ExpandedStep struct {
	Index       int
	Action      string
	Description string
	Category    string
}

// Parse decodes and validates one procedure document.
func Parse(data []byte, source string) (*Procedure, error) {
	var p Procedure
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	p.Source = source
	if err := p.Compile(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return &p, nil
}

// Compile validates the procedure and compiles its triggers case-insensitively.
func (p *Procedure) Compile() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("procedure has no name")
	}
	if len(p.Triggers) == 0 {
		return fmt.Errorf("procedure %s has no triggers", p.Name)
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("procedure %s has no steps", p.Name)
	}

	compiled := make([]*regexp.Regexp, 0, len(p.Triggers))
	for _, t := range p.Triggers {
		re, err := regexp.Compile("(?i)" + t)
		if err != nil {
			return fmt.Errorf("procedure %s: trigger %q: %w", p.Name, t, err)
		}
		compiled = append(compiled, re)
	}
	for i, s := range p.Steps {
		if strings.TrimSpace(s.Template) == "" {
			return fmt.Errorf("procedure %s: step %d has no template", p.Name, i+1)
		}
	}
	p.triggers = compiled
	return nil
}

// Match returns the variables bound by the first trigger that matches text.
func (p *Procedure) Match(text string) (map[string]string, bool) {
	for _, re := range p.triggers {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		vars := make(map[string]string)
		for i, name := range re.SubexpNames() {
			if name != "" && i < len(m) {
				vars[name] = strings.TrimSpace(m[i])
			}
		}
		return vars, true
	}
	return nil, false
}

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Expand substitutes vars into each step, dropping steps whose guard fails.
// Unknown placeholders are left untouched. Indexes are assigned after filtering.
func (p *Procedure) Expand(vars map[string]string) []ExpandedStep {
	var out []ExpandedStep
	for _, s := range p.Steps {
		if !guardPasses(s.When, vars) {
			continue
		}
		desc := placeholder.ReplaceAllStringFunc(s.Template, func(tok string) string {
			name := tok[1 : len(tok)-1]
			if v, ok := vars[name]; ok {
				return v
			}
			return tok
		})
		out = append(out, ExpandedStep{
			Index:       len(out),
			Action:      s.Action,
			Description: desc,
			Category:    s.Category,
		})
	}
	return out
}

func guardPasses(when string, vars map[string]string) bool {
	when = strings.TrimSpace(when)
	if when == "" {
		return true
	}
	if strings.HasPrefix(when, "!") {
		return strings.TrimSpace(vars[strings.TrimPrefix(when, "!")]) == ""
	}
	return strings.TrimSpace(vars[when]) != ""
}
