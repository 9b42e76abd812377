package api

// IngestStats summarizes one ingestion pass.
type IngestStats struct {
	Categories int `json:"categories"`
	Articles   int `json:"articles"`
	// LanguageRows counts category and article language records together.
	LanguageRows int `json:"language_rows"`
	// Skipped counts directories that could not be read.
	Skipped int `json:"skipped"`
}
