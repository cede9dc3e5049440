package models

// Entry represents one concrete episode instance of a series.
type Entry struct {
	Number    int
	FileName  string
	Status    Status
	TorrentID string // set on pending entries, used to build the fetch URL
}
