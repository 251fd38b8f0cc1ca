package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Import batch lifecycle states.
const (
	ImportStatusPending   = "pending"
	ImportStatusCompleted = "completed"
	ImportStatusFailed    = "failed"
)

// Import row outcomes. Every input row produces exactly one row record with
// one of these statuses, including rows that failed to process.
const (
	RowStatusMerged    = "merged"
	RowStatusAmbiguous = "ambiguous"
	RowStatusError     = "error"
)

// Known import sources.
const (
	SourceSheet  = "sheet"
	SourceLastFM = "lastfm"
)

// ImportRecord represents one import batch.
type ImportRecord struct {
	id        string
	source    string
	status    string
	rowCount  int
	errDetail string
	createdAt time.Time
	updatedAt time.Time
}

// NewImportRecord creates a pending ImportRecord for the given source tag.
func NewImportRecord(source string) *ImportRecord {
	now := time.Now()
	return &ImportRecord{
		source:    source,
		status:    ImportStatusPending,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *ImportRecord) ID() string           { return r.id }
func (r *ImportRecord) Source() string       { return r.source }
func (r *ImportRecord) Status() string       { return r.status }
func (r *ImportRecord) RowCount() int        { return r.rowCount }
func (r *ImportRecord) ErrorDetail() string  { return r.errDetail }
func (r *ImportRecord) CreatedAt() time.Time { return r.createdAt }
func (r *ImportRecord) UpdatedAt() time.Time { return r.updatedAt }

func (r *ImportRecord) SetID(id string)            { r.id = id }
func (r *ImportRecord) SetStatus(status string)    { r.status = status }
func (r *ImportRecord) SetRowCount(n int)          { r.rowCount = n }
func (r *ImportRecord) SetErrorDetail(msg string)  { r.errDetail = msg }
func (r *ImportRecord) SetCreatedAt(t time.Time)   { r.createdAt = t }
func (r *ImportRecord) SetUpdatedAt(t time.Time)   { r.updatedAt = t }

// MarshalJSON exposes the record's persisted fields for CLI output.
func (r *ImportRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string    `json:"id"`
		Source    string    `json:"source"`
		Status    string    `json:"status"`
		RowCount  int       `json:"row_count"`
		Error     string    `json:"error,omitempty"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}{r.id, r.source, r.status, r.rowCount, r.errDetail, r.createdAt, r.updatedAt})
}

// Validate checks that the record has a source and a known status.
func (r *ImportRecord) Validate() error {
	if r.source == "" {
		return fmt.Errorf("import record requires a source")
	}
	switch r.status {
	case ImportStatusPending, ImportStatusCompleted, ImportStatusFailed:
		return nil
	default:
		return fmt.Errorf("unknown import status %q", r.status)
	}
}

// ImportRow is the audit record for a single input row in an import batch.
// SongID references the created (merged) or matched (ambiguous) song, if any.
type ImportRow struct {
	id         string
	importID   string
	position   int
	raw        string
	title      string
	artist     string
	dateText   string
	notes      string
	status     string
	songID     *string
	confidence float64
	errDetail  string
	createdAt  time.Time
}

// NewImportRow creates an audit row at the given zero-based input position.
func NewImportRow(importID string, position int, raw string) *ImportRow {
	return &ImportRow{
		importID:  importID,
		position:  position,
		raw:       raw,
		createdAt: time.Now(),
	}
}

func (r *ImportRow) ID() string           { return r.id }
func (r *ImportRow) ImportID() string     { return r.importID }
func (r *ImportRow) Position() int        { return r.position }
func (r *ImportRow) Raw() string          { return r.raw }
func (r *ImportRow) Title() string        { return r.title }
func (r *ImportRow) Artist() string       { return r.artist }
func (r *ImportRow) DateText() string     { return r.dateText }
func (r *ImportRow) Notes() string        { return r.notes }
func (r *ImportRow) Status() string       { return r.status }
func (r *ImportRow) SongID() *string      { return r.songID }
func (r *ImportRow) Confidence() float64  { return r.confidence }
func (r *ImportRow) ErrorDetail() string  { return r.errDetail }
func (r *ImportRow) CreatedAt() time.Time { return r.createdAt }
func (r *ImportRow) UpdatedAt() time.Time { return r.createdAt }

func (r *ImportRow) SetID(id string)          { r.id = id }
func (r *ImportRow) SetCreatedAt(t time.Time) { r.createdAt = t }

// SetMapped records the field values extracted by column mapping.
func (r *ImportRow) SetMapped(title, artist, dateText, notes string) {
	r.title = title
	r.artist = artist
	r.dateText = dateText
	r.notes = notes
}

// SetOutcome records the processing result for this row.
func (r *ImportRow) SetOutcome(status string, songID *string, confidence float64) {
	r.status = status
	r.songID = songID
	r.confidence = confidence
}

// SetErrorDetail records why an error row failed to process.
func (r *ImportRow) SetErrorDetail(msg string) {
	r.errDetail = msg
}

// MarshalJSON exposes the row's persisted fields for CLI output.
func (r *ImportRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         string  `json:"id"`
		ImportID   string  `json:"import_id"`
		Position   int     `json:"position"`
		Raw        string  `json:"raw"`
		Title      string  `json:"title"`
		Artist     string  `json:"artist"`
		DateText   string  `json:"date_text,omitempty"`
		Notes      string  `json:"notes,omitempty"`
		Status     string  `json:"status"`
		SongID     *string `json:"song_id,omitempty"`
		Confidence float64 `json:"confidence"`
		Error      string  `json:"error,omitempty"`
	}{r.id, r.importID, r.position, r.raw, r.title, r.artist, r.dateText, r.notes, r.status, r.songID, r.confidence, r.errDetail})
}

// Validate checks that the row belongs to a batch and has a known status.
func (r *ImportRow) Validate() error {
	if r.importID == "" {
		return fmt.Errorf("import row requires an import ID")
	}
	switch r.status {
	case RowStatusMerged, RowStatusAmbiguous, RowStatusError:
	default:
		return fmt.Errorf("unknown row status %q", r.status)
	}
	if r.confidence < 0 || r.confidence > 1 {
		return fmt.Errorf("confidence %f out of range", r.confidence)
	}
	return nil
}
