// Package layout reads board structure (boards and their columns) from
// Markdown files with YAML frontmatter and keeps the store in sync with them.
//
// A layout file looks like:
//
//	---
//	id: 1
//	name: Team board
//	columns:
//	  - id: 1
//	    name: To Do
//	  - id: 2
//	    name: Done
//	---
//	Free-form description.
package layout

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// ErrNoFrontmatter is returned for files without a leading YAML block.
var ErrNoFrontmatter = errors.New("layout: missing frontmatter")

// Layout is the declared structure of one board.
type Layout struct {
	ID          int64    `yaml:"id"`
	Name        string   `yaml:"name"`
	Columns     []Column `yaml:"columns"`
	Description string   `yaml:"-"`
}

// Column is one declared column, in display order.
type Column struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// Validate implements validation.Validatable.
func (c Column) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.Name, validation.Required),
	)
}

// Validate checks identity, naming and column uniqueness.
func (l *Layout) Validate() error {
	if err := validation.ValidateStruct(l,
		validation.Field(&l.ID, validation.Required, validation.Min(int64(1))),
		validation.Field(&l.Name, validation.Required),
		validation.Field(&l.Columns, validation.Required),
	); err != nil {
		return err
	}
	seen := make(map[int64]struct{}, len(l.Columns))
	for _, c := range l.Columns {
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("layout: duplicate column id %d", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// Parse decodes and validates a layout file. When the frontmatter has no
// name, the first H1 heading of the body is used.
func Parse(data []byte) (*Layout, error) {
	block, body, ok := splitFrontmatter(data)
	if !ok {
		return nil, ErrNoFrontmatter
	}
	var l Layout
	if err := yaml.Unmarshal(block, &l); err != nil {
		return nil, fmt.Errorf("layout: decode frontmatter: %w", err)
	}
	l.Description = strings.TrimSpace(body)
	if l.Name == "" {
		l.Name = firstHeading(body)
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	return &l, nil
}

// splitFrontmatter separates the YAML block between leading --- delimiters
// from the Markdown body.
func splitFrontmatter(data []byte) ([]byte, string, bool) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", false
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", false
	}

	block := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")
	return block, body, true
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
