package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teranos/maestro/errors"
)

// Format is a schedule file format.
type Format string

const (
	FormatText Format = "txt"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts txt, json or yaml (and yml). Empty means txt.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "txt", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", errors.Wrapf(errors.ErrInvalidRequest, "unknown schedule format %q", s)
}

// Schedule is the result of one run.
type Schedule struct {
	RunID       string         `json:"run_id" yaml:"run_id"`
	WindowStart time.Time      `json:"window_start" yaml:"window_start"`
	WindowEnd   time.Time      `json:"window_end" yaml:"window_end"`
	Lines       []ScheduleLine `json:"lines" yaml:"lines"`
}

// Sort orders lines by start time, keeping the relative order of lines
// that start together.
func (s *Schedule) Sort() {
	sort.SliceStable(s.Lines, func(i, j int) bool {
		return s.Lines[i].Start.Before(s.Lines[j].Start)
	})
}

// Observations is the number of non-focus lines.
func (s *Schedule) Observations() int {
	n := 0
	for _, l := range s.Lines {
		if !l.IsFocus() {
			n++
		}
	}
	return n
}

// LinesFor returns the lines whose candidate ID is id.
func (s *Schedule) LinesFor(id int64) []ScheduleLine {
	var out []ScheduleLine
	for _, l := range s.Lines {
		if l.CandidateID != nil && *l.CandidateID == id {
			out = append(out, l)
		}
	}
	return out
}

// Write renders the schedule in format f.
func (s *Schedule) Write(w io.Writer, f Format) error {
	switch f {
	case FormatText, "":
		return s.writeText(w)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(s), "encode schedule json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return errors.Wrap(err, "encode schedule yaml")
		}
		return errors.Wrap(enc.Close(), "encode schedule yaml")
	}
	return errors.Wrapf(errors.ErrInvalidRequest, "unknown schedule format %q", f)
}

// writeText writes the header, a blank line, then one line per block. Focus
// loops are set off by blank lines.
func (s *Schedule) writeText(w io.Writer) error {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n\n")
	for _, l := range s.Lines {
		if l.IsFocus() {
			fmt.Fprintf(&b, "\n%s\n\n", l)
			continue
		}
		b.WriteString(l.String())
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return errors.Wrap(err, "write schedule")
}

// FileName is the default output name for a night starting at start.
func FileName(start time.Time, f Format) string {
	if f == "" {
		f = FormatText
	}
	return fmt.Sprintf("schedule_%s.%s", start.UTC().Format("20060102"), f)
}

// WriteFile writes the schedule to path, creating parent directories.
func (s *Schedule) WriteFile(path string, f Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create schedule directory for %s", path)
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create schedule file %s", path)
	}
	if err := s.Write(file, f); err != nil {
		file.Close()
		return err
	}
	return errors.Wrapf(file.Close(), "close schedule file %s", path)
}
