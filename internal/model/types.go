package model

// Entry is one file member of the selected archive, tracked independently
// through the simulated transfer.
type Entry struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	SizeBytes uint64 `json:"size_bytes"`
	Processed bool   `json:"processed"`
}

// BatchSummary is the machine-readable rollup printed by the CLI.
type BatchSummary struct {
	Archive        string  `json:"archive,omitempty"`
	Destination    string  `json:"destination,omitempty"`
	Status         string  `json:"status"`
	Total          int     `json:"total"`
	Processed      int     `json:"processed"`
	TotalBytes     uint64  `json:"total_bytes"`
	ProcessedBytes uint64  `json:"processed_bytes"`
	Entries        []Entry `json:"entries"`
}
