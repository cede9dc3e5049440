package models

import (
	"fmt"
	"path/filepath"

	"github.com/seriarr/seriarr/internal/pattern"
)

// LookaheadUnbounded disables the probe bound: the series is probed until
// the first episode number the remote index does not know about.
const LookaheadUnbounded = -1

const (
	defaultNumberWidth = "2"
	defaultMaxAhead    = 5
)

// SeriesOptions carries the per-series settings from configuration.
type SeriesOptions struct {
	Name            string
	Directory       string
	RemoteDirectory string
	Template        string
	NumberWidth     string
	MaxAhead        *int
}

// Series tracks one show: its compiled filename pattern, its storage
// locations and the entries discovered during the current pass.
type Series struct {
	Name            string
	Directory       string
	RemoteDirectory string // download target on the queue server side
	Pattern         *pattern.Pattern
	MaxAhead        int
	Entries         []*Entry
}

// NewSeries validates the options, compiles the filename template and
// applies defaults. A failure here is fatal for this series only.
func NewSeries(opts SeriesOptions) (*Series, error) {
	if opts.Directory == "" {
		return nil, fmt.Errorf("series %q: directory is required", opts.Name)
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(opts.Directory)
	}

	if opts.Template == "" {
		return nil, fmt.Errorf("series %q: pattern is required", name)
	}

	width := opts.NumberWidth
	if width == "" {
		width = defaultNumberWidth
	}

	compiled, err := pattern.Compile(opts.Template, width)
	if err != nil {
		return nil, fmt.Errorf("series %q: %w", name, err)
	}

	maxAhead := defaultMaxAhead
	if opts.MaxAhead != nil {
		maxAhead = *opts.MaxAhead
	}
	if maxAhead < LookaheadUnbounded {
		return nil, fmt.Errorf("series %q: max_ahead must be non-negative, or %d for unbounded", name, LookaheadUnbounded)
	}

	remote := opts.RemoteDirectory
	if remote == "" {
		remote = opts.Directory
	}

	return &Series{
		Name:            name,
		Directory:       opts.Directory,
		RemoteDirectory: remote,
		Pattern:         compiled,
		MaxAhead:        maxAhead,
	}, nil
}

// MaxNumber returns the highest episode number across all entries, or zero
// when the series has none. Probing for new episodes starts above it.
func (s *Series) MaxNumber() int {
	max := 0
	for _, entry := range s.Entries {
		if entry.Number > max {
			max = entry.Number
		}
	}
	return max
}

// AddEntry appends an entry unless one with the same filename is already
// tracked. Entries are unique by filename; because population stages run in
// a fixed order, the earlier stage's status wins on collision.
func (s *Series) AddEntry(entry *Entry) bool {
	for _, existing := range s.Entries {
		if existing.FileName == entry.FileName {
			return false
		}
	}
	s.Entries = append(s.Entries, entry)
	return true
}

// ClearEntries resets the entry collection at the start of a pass.
func (s *Series) ClearEntries() {
	s.Entries = nil
}

// PendingEntries returns the entries that still need a download request.
func (s *Series) PendingEntries() []*Entry {
	var pending []*Entry
	for _, entry := range s.Entries {
		if entry.Status == StatusPending {
			pending = append(pending, entry)
		}
	}
	return pending
}

// CountByStatus tallies the entries per status.
func (s *Series) CountByStatus() map[Status]int {
	counts := make(map[Status]int)
	for _, entry := range s.Entries {
		counts[entry.Status]++
	}
	return counts
}
