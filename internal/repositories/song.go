package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/chartlog/internal/match"
	"github.com/desertthunder/chartlog/internal/models"
	"github.com/desertthunder/chartlog/internal/shared"
)

const songColumns = "id, title, artist, norm_title, norm_artist, first_listen_date, sequence, curated, notes, created_at, updated_at"

// SongRepository implements models.Repository[*models.Song] over the catalog.
//
// Normalized title/artist fields are recomputed here on every create and
// update so they can never go stale relative to the display strings.
type SongRepository struct {
	db *sql.DB
}

// NewSongRepository creates a new SongRepository with the given database connection
func NewSongRepository(db *sql.DB) *SongRepository {
	return &SongRepository{db: db}
}

var _ match.Catalog = (*SongRepository)(nil)

// Create inserts a new [models.Song] with a generated ID and freshly computed
// normalized fields. The song's sequence must already be allocated.
func (r *SongRepository) Create(song *models.Song) error {
	song.SetID(shared.GenerateID())
	song.SetNormalized(match.Normalize(song.Title()), match.Normalize(song.Artist()))

	if err := song.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := fmt.Sprintf("INSERT INTO songs (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", songColumns)

	_, err := r.db.Exec(query,
		song.ID(),
		song.Title(),
		song.Artist(),
		song.NormTitle(),
		song.NormArtist(),
		nullString(song.FirstListenDate()),
		song.Sequence(),
		song.Curated(),
		song.Notes(),
		song.CreatedAt(),
		song.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}

	return nil
}

// Get retrieves a song by ID
func (r *SongRepository) Get(id string) (*models.Song, error) {
	query := fmt.Sprintf("SELECT %s FROM songs WHERE id = ?", songColumns)
	return r.scanOne(r.db.QueryRow(query, id))
}

// Update modifies an existing song, recomputing normalized fields and bumping
// the updated timestamp. Sequence is deliberately not written here; it changes
// only through UpdateSequence.
func (r *SongRepository) Update(song *models.Song) error {
	song.SetNormalized(match.Normalize(song.Title()), match.Normalize(song.Artist()))

	if err := song.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	song.SetUpdatedAt(now)

	query := `
		UPDATE songs
		SET title = ?, artist = ?, norm_title = ?, norm_artist = ?, first_listen_date = ?, curated = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		song.Title(),
		song.Artist(),
		song.NormTitle(),
		song.NormArtist(),
		nullString(song.FirstListenDate()),
		song.Curated(),
		song.Notes(),
		now,
		song.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update song: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSongNotFound, song.ID())
	}

	return nil
}

// UpdateSequence moves a song to a new sequence slot. The unique constraint on
// songs.sequence surfaces transient collisions, which is why the resequencer
// writes in two passes.
func (r *SongRepository) UpdateSequence(id string, sequence int) error {
	result, err := r.db.Exec("UPDATE songs SET sequence = ?, updated_at = ? WHERE id = ?", sequence, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update sequence: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSongNotFound, id)
	}

	return nil
}

// Delete removes a song, first nulling out any import rows that reference it
// so no dangling audit references remain.
func (r *SongRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE import_rows SET song_id = NULL WHERE song_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear import row references: %w", err)
	}

	result, err := tx.Exec("DELETE FROM songs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSongNotFound, id)
	}

	return tx.Commit()
}

// List retrieves all songs matching the given criteria in sequence order.
func (r *SongRepository) List(criteria map[string]any) ([]*models.Song, error) {
	query := fmt.Sprintf("SELECT %s FROM songs WHERE 1=1", songColumns)
	args := []any{}

	if artist, ok := criteria["artist"].(string); ok && artist != "" {
		query += " AND artist = ?"
		args = append(args, artist)
	}

	if curated, ok := criteria["curated"].(bool); ok {
		query += " AND curated = ?"
		args = append(args, curated)
	}

	query += " ORDER BY sequence ASC"

	return r.queryMany(query, args...)
}

// ListBySequence retrieves songs in ascending sequence order, optionally
// restricted to a slice of current sequence values. Zero bounds mean open.
func (r *SongRepository) ListBySequence(fromSeq, toSeq int) ([]*models.Song, error) {
	query := fmt.Sprintf("SELECT %s FROM songs WHERE 1=1", songColumns)
	args := []any{}

	if fromSeq > 0 {
		query += " AND sequence >= ?"
		args = append(args, fromSeq)
	}
	if toSeq > 0 {
		query += " AND sequence <= ?"
		args = append(args, toSeq)
	}

	query += " ORDER BY sequence ASC"

	return r.queryMany(query, args...)
}

// FindByNormalized returns the song whose normalized fields both match, or nil
// if none exists. At most one row is consumed; the unique index upstream keeps
// duplicates out, but the lookup does not assume it.
func (r *SongRepository) FindByNormalized(normTitle, normArtist string) (*models.Song, error) {
	query := fmt.Sprintf("SELECT %s FROM songs WHERE norm_title = ? AND norm_artist = ? LIMIT 1", songColumns)

	song, err := r.scanOne(r.db.QueryRow(query, normTitle, normArtist))
	if err != nil {
		if errors.Is(err, shared.ErrSongNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return song, nil
}

// SearchCandidates returns up to limit songs whose normalized title or artist
// contains the token as a substring. Normalized fields are already lowercase,
// so LIKE gives the case-insensitive match directly.
func (r *SongRepository) SearchCandidates(token string, limit int) ([]*models.Song, error) {
	if limit <= 0 {
		limit = match.DefaultCandidateLimit
	}

	query := fmt.Sprintf("SELECT %s FROM songs WHERE norm_title LIKE ? OR norm_artist LIKE ? LIMIT ?", songColumns)
	pattern := "%" + token + "%"

	return r.queryMany(query, pattern, pattern, limit)
}

// MaxSequence returns the highest sequence value in use, or 0 for an empty
// catalog. Seeds the import pipeline's running counter.
func (r *SongRepository) MaxSequence() (int, error) {
	var max int
	if err := r.db.QueryRow("SELECT COALESCE(MAX(sequence), 0) FROM songs").Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to read max sequence: %w", err)
	}
	return max, nil
}

func (r *SongRepository) queryMany(query string, args ...any) ([]*models.Song, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	var songs []*models.Song
	for rows.Next() {
		song, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return songs, nil
}

type songScanner interface {
	Scan(dest ...any) error
}

func scanSong(s songScanner) (*models.Song, error) {
	var (
		id         string
		title      string
		artist     string
		normTitle  string
		normArtist string
		listenDate sql.NullString
		sequence   int
		curated    bool
		notes      string
		createdAt  time.Time
		updatedAt  time.Time
	)

	err := s.Scan(&id, &title, &artist, &normTitle, &normArtist, &listenDate, &sequence, &curated, &notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	song := models.NewSong(title, artist, sequence, stringPtr(listenDate))
	song.SetID(id)
	song.SetNormalized(normTitle, normArtist)
	song.SetCurated(curated)
	song.SetNotes(notes)
	song.SetCreatedAt(createdAt)
	song.SetUpdatedAt(updatedAt)

	return song, nil
}

// scanOne scans a single [sql.Row] into a [models.Song]
func (r *SongRepository) scanOne(row *sql.Row) (*models.Song, error) {
	song, err := scanSong(row)
	if err == sql.ErrNoRows {
		return nil, shared.ErrSongNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}
	return song, nil
}

// scanRow scans a row from [sql.Rows] into a [models.Song]
func (r *SongRepository) scanRow(rows *sql.Rows) (*models.Song, error) {
	song, err := scanSong(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}
	return song, nil
}
