package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Song is a catalog entry in the listening history.
//
// The normalized title/artist pair is the equality key used for duplicate
// detection and must never be stale relative to the display strings; the
// repository recomputes both on every create and update. Sequence is the
// unique positive integer giving the catalog its total order.
type Song struct {
	id              string
	title           string
	artist          string
	normTitle       string
	normArtist      string
	firstListenDate *string
	sequence        int
	curated         bool
	notes           string
	createdAt       time.Time
	updatedAt       time.Time
}

// NewSong creates a Song with the given display strings and sequence slot.
// firstListenDate is an ISO YYYY-MM-DD string, or nil for an undated entry.
func NewSong(title, artist string, sequence int, firstListenDate *string) *Song {
	now := time.Now()
	return &Song{
		title:           title,
		artist:          artist,
		sequence:        sequence,
		firstListenDate: firstListenDate,
		createdAt:       now,
		updatedAt:       now,
	}
}

func (s *Song) ID() string           { return s.id }
func (s *Song) Title() string        { return s.title }
func (s *Song) Artist() string       { return s.artist }
func (s *Song) NormTitle() string    { return s.normTitle }
func (s *Song) NormArtist() string   { return s.normArtist }
func (s *Song) Sequence() int        { return s.sequence }
func (s *Song) Curated() bool        { return s.curated }
func (s *Song) Notes() string        { return s.notes }
func (s *Song) CreatedAt() time.Time { return s.createdAt }
func (s *Song) UpdatedAt() time.Time { return s.updatedAt }

// FirstListenDate returns the ISO date of the first listen, or nil if undated.
func (s *Song) FirstListenDate() *string { return s.firstListenDate }

func (s *Song) SetID(id string)             { s.id = id }
func (s *Song) SetTitle(title string)       { s.title = title }
func (s *Song) SetArtist(artist string)     { s.artist = artist }
func (s *Song) SetSequence(seq int)         { s.sequence = seq }
func (s *Song) SetCurated(curated bool)     { s.curated = curated }
func (s *Song) SetNotes(notes string)       { s.notes = notes }
func (s *Song) SetCreatedAt(t time.Time)    { s.createdAt = t }
func (s *Song) SetUpdatedAt(t time.Time)    { s.updatedAt = t }
func (s *Song) SetFirstListenDate(d *string) { s.firstListenDate = d }

// SetNormalized records the canonical comparison strings for the current
// title/artist. Called by the repository whenever either display string changes.
func (s *Song) SetNormalized(normTitle, normArtist string) {
	s.normTitle = normTitle
	s.normArtist = normArtist
}

// MarshalJSON exposes the song's persisted fields for CLI output.
func (s *Song) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID              string  `json:"id"`
		Title           string  `json:"title"`
		Artist          string  `json:"artist"`
		FirstListenDate *string `json:"first_listen_date,omitempty"`
		Sequence        int     `json:"sequence"`
		Curated         bool    `json:"curated"`
		Notes           string  `json:"notes,omitempty"`
	}{s.id, s.title, s.artist, s.firstListenDate, s.sequence, s.curated, s.notes})
}

// Validate checks that the song has a title or artist and a positive sequence.
func (s *Song) Validate() error {
	if s.title == "" && s.artist == "" {
		return fmt.Errorf("song requires a title or an artist")
	}
	if s.sequence <= 0 {
		return fmt.Errorf("song sequence must be positive, got %d", s.sequence)
	}
	return nil
}
