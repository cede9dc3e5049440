package models

// Status represents where a tracked episode currently lives. Exactly one
// status holds at a time; the only transition is pending -> queued, when a
// download request is accepted.
type Status string

const (
	StatusOwned   Status = "owned"   // confirmed present in local storage
	StatusQueued  Status = "queued"  // known to the download queue server
	StatusPending Status = "pending" // resolved upstream, not yet requested
)
