package audit

import (
	"bytes"
	"encoding/json"
	"sync"
)

// Entry is one parsed line of the audit stream.
type Entry struct {
	Level   string         // zerolog level string
	Tag     string         // operation tag, empty if the line carried none
	Message string         // log message
	Fields  map[string]any // all decoded fields, including tag and message
}

// Recorder is an io.Writer that captures audit lines in memory so the
// verification harness and tests can assert on them. Safe for concurrent
// writers.
type Recorder struct {
	mu      sync.Mutex
	lines   []string
	entries []Entry
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Write records one log event. zerolog hands each event to Write as a
// single newline-terminated buffer.
func (r *Recorder) Write(p []byte) (int, error) {
	line := string(bytes.TrimRight(p, "\n"))

	var fields map[string]any
	entry := Entry{Fields: map[string]any{}}
	if err := json.Unmarshal([]byte(line), &fields); err == nil {
		entry.Fields = fields
		if v, ok := fields["level"].(string); ok {
			entry.Level = v
		}
		if v, ok := fields[TagField].(string); ok {
			entry.Tag = v
		}
		if v, ok := fields["message"].(string); ok {
			entry.Message = v
		}
	}

	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.entries = append(r.entries, entry)
	r.mu.Unlock()

	return len(p), nil
}

// Entries returns a copy of all recorded entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Lines returns a copy of the raw recorded lines.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// CountTag returns how many recorded entries carry the given tag.
func (r *Recorder) CountTag(tag string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if e.Tag == tag {
			n++
		}
	}
	return n
}

// HasTag reports whether at least one recorded entry carries the given tag.
func (r *Recorder) HasTag(tag string) bool {
	return r.CountTag(tag) > 0
}
