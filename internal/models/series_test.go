package models

import (
	"testing"
)

func newTestSeries(t *testing.T, opts SeriesOptions) *Series {
	t.Helper()
	series, err := NewSeries(opts)
	if err != nil {
		t.Fatalf("NewSeries failed: %v", err)
	}
	return series
}

func TestNewSeriesDefaults(t *testing.T) {
	series := newTestSeries(t, SeriesOptions{
		Directory: "/data/Show",
		Template:  "Show - {number}{garbage}.mkv",
	})

	if series.Name != "Show" {
		t.Errorf("Name = %q, want the directory basename %q", series.Name, "Show")
	}
	if series.RemoteDirectory != "/data/Show" {
		t.Errorf("RemoteDirectory = %q, want the local directory", series.RemoteDirectory)
	}
	if series.MaxAhead != 5 {
		t.Errorf("MaxAhead = %d, want default 5", series.MaxAhead)
	}

	// default width is two digits
	if got := series.Pattern.Query(4); got != "Show - 04*.mkv" {
		t.Errorf("Query(4) = %q, want %q", got, "Show - 04*.mkv")
	}
}

func TestNewSeriesValidation(t *testing.T) {
	cases := []struct {
		name string
		opts SeriesOptions
	}{
		{"missing directory", SeriesOptions{Template: "Show - {number}.mkv"}},
		{"missing pattern", SeriesOptions{Directory: "/data/Show"}},
		{"pattern without number", SeriesOptions{Directory: "/data/Show", Template: "Show - {garbage}.mkv"}},
		{"bad width", SeriesOptions{Directory: "/data/Show", Template: "Show - {number}.mkv", NumberWidth: "wide"}},
		{"bad lookahead", SeriesOptions{Directory: "/data/Show", Template: "Show - {number}.mkv", MaxAhead: intPtr(-2)}},
	}

	for _, c := range cases {
		if _, err := NewSeries(c.opts); err == nil {
			t.Errorf("%s: expected an error", c.name)
		}
	}
}

func TestNewSeriesUnboundedLookahead(t *testing.T) {
	series := newTestSeries(t, SeriesOptions{
		Directory: "/data/Show",
		Template:  "Show - {number}.mkv",
		MaxAhead:  intPtr(LookaheadUnbounded),
	})

	if series.MaxAhead != LookaheadUnbounded {
		t.Errorf("MaxAhead = %d, want the unbounded sentinel %d", series.MaxAhead, LookaheadUnbounded)
	}
}

func TestMaxNumber(t *testing.T) {
	series := newTestSeries(t, SeriesOptions{
		Directory: "/data/Show",
		Template:  "Show - {number}.mkv",
	})

	if got := series.MaxNumber(); got != 0 {
		t.Errorf("MaxNumber() on empty series = %d, want 0", got)
	}

	series.AddEntry(&Entry{Number: 3, FileName: "a", Status: StatusOwned})
	series.AddEntry(&Entry{Number: 5, FileName: "b", Status: StatusOwned})
	series.AddEntry(&Entry{Number: 4, FileName: "c", Status: StatusQueued})

	if got := series.MaxNumber(); got != 5 {
		t.Errorf("MaxNumber() = %d, want 5", got)
	}
}

func TestAddEntryRejectsDuplicateFileName(t *testing.T) {
	series := newTestSeries(t, SeriesOptions{
		Directory: "/data/Show",
		Template:  "Show - {number}.mkv",
	})

	if !series.AddEntry(&Entry{Number: 1, FileName: "Show - 01.mkv", Status: StatusOwned}) {
		t.Fatal("first AddEntry should succeed")
	}
	if series.AddEntry(&Entry{Number: 1, FileName: "Show - 01.mkv", Status: StatusQueued}) {
		t.Fatal("duplicate filename should be rejected")
	}

	if len(series.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(series.Entries))
	}
	if series.Entries[0].Status != StatusOwned {
		t.Errorf("the earlier entry's status must win, got %s", series.Entries[0].Status)
	}
}

func TestPendingEntries(t *testing.T) {
	series := newTestSeries(t, SeriesOptions{
		Directory: "/data/Show",
		Template:  "Show - {number}.mkv",
	})

	series.AddEntry(&Entry{Number: 1, FileName: "a", Status: StatusOwned})
	series.AddEntry(&Entry{Number: 2, FileName: "b", Status: StatusPending, TorrentID: "42"})
	series.AddEntry(&Entry{Number: 3, FileName: "c", Status: StatusQueued})
	series.AddEntry(&Entry{Number: 4, FileName: "d", Status: StatusPending, TorrentID: "43"})

	pending := series.PendingEntries()
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending entries, got %d", len(pending))
	}
	if pending[0].Number != 2 || pending[1].Number != 4 {
		t.Errorf("pending entries out of order: %d, %d", pending[0].Number, pending[1].Number)
	}

	counts := series.CountByStatus()
	if counts[StatusOwned] != 1 || counts[StatusQueued] != 1 || counts[StatusPending] != 2 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func intPtr(n int) *int {
	return &n
}
