package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/chartlog/internal/models"
	"github.com/desertthunder/chartlog/internal/shared"
)

// ImportRepository persists import batches and their audit rows.
//
// Audit rows for a batch are written in a single transaction: either every
// input row gets its record or none do, and the batch is marked failed.
type ImportRepository struct {
	db *sql.DB
}

// NewImportRepository creates a new ImportRepository with the given database connection
func NewImportRepository(db *sql.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

// CreateRecord inserts a new pending [models.ImportRecord] with a generated ID.
func (r *ImportRepository) CreateRecord(record *models.ImportRecord) error {
	record.SetID(shared.GenerateID())

	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO import_records (id, source, status, row_count, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		record.ID(),
		record.Source(),
		record.Status(),
		record.RowCount(),
		record.ErrorDetail(),
		record.CreatedAt(),
		record.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert import record: %w", err)
	}

	return nil
}

// UpdateRecord writes the record's status, row count and error detail.
func (r *ImportRepository) UpdateRecord(record *models.ImportRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	record.SetUpdatedAt(now)

	query := `
		UPDATE import_records
		SET status = ?, row_count = ?, error = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, record.Status(), record.RowCount(), record.ErrorDetail(), now, record.ID())
	if err != nil {
		return fmt.Errorf("failed to update import record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrImportNotFound, record.ID())
	}

	return nil
}

// GetRecord retrieves an import record by ID
func (r *ImportRepository) GetRecord(id string) (*models.ImportRecord, error) {
	query := `
		SELECT id, source, status, row_count, error, created_at, updated_at
		FROM import_records
		WHERE id = ?
	`

	var (
		recordID  string
		source    string
		status    string
		rowCount  int
		errDetail sql.NullString
		createdAt time.Time
		updatedAt time.Time
	)

	err := r.db.QueryRow(query, id).Scan(&recordID, &source, &status, &rowCount, &errDetail, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrImportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan import record: %w", err)
	}

	record := models.NewImportRecord(source)
	record.SetID(recordID)
	record.SetStatus(status)
	record.SetRowCount(rowCount)
	record.SetErrorDetail(errDetail.String)
	record.SetCreatedAt(createdAt)
	record.SetUpdatedAt(updatedAt)

	return record, nil
}

// CreateRowsBatch inserts all audit rows for a batch inside one transaction.
// Any failure rolls back every row.
func (r *ImportRepository) CreateRowsBatch(rows []*models.ImportRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO import_rows (id, import_id, position, raw, title, artist, date_text, notes, status, song_id, confidence, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		row.SetID(shared.GenerateID())

		if err := row.Validate(); err != nil {
			return fmt.Errorf("validation failed for row %d: %w", row.Position(), err)
		}

		_, err := stmt.Exec(
			row.ID(),
			row.ImportID(),
			row.Position(),
			row.Raw(),
			row.Title(),
			row.Artist(),
			row.DateText(),
			row.Notes(),
			row.Status(),
			nullString(row.SongID()),
			row.Confidence(),
			row.ErrorDetail(),
			row.CreatedAt(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert import row %d: %w", row.Position(), err)
		}
	}

	return tx.Commit()
}

// ListRows retrieves all audit rows for a batch in input order.
func (r *ImportRepository) ListRows(importID string) ([]*models.ImportRow, error) {
	query := `
		SELECT id, import_id, position, raw, title, artist, date_text, notes, status, song_id, confidence, error, created_at
		FROM import_rows
		WHERE import_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query, importID)
	if err != nil {
		return nil, fmt.Errorf("failed to query import rows: %w", err)
	}
	defer rows.Close()

	var result []*models.ImportRow
	for rows.Next() {
		var (
			id         string
			batchID    string
			position   int
			raw        string
			title      string
			artist     string
			dateText   string
			notes      string
			status     string
			songID     sql.NullString
			confidence float64
			errDetail  string
			createdAt  time.Time
		)

		if err := rows.Scan(&id, &batchID, &position, &raw, &title, &artist, &dateText, &notes, &status, &songID, &confidence, &errDetail, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan import row: %w", err)
		}

		row := models.NewImportRow(batchID, position, raw)
		row.SetID(id)
		row.SetMapped(title, artist, dateText, notes)
		row.SetOutcome(status, stringPtr(songID), confidence)
		row.SetErrorDetail(errDetail)
		row.SetCreatedAt(createdAt)

		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

// ListRecords retrieves all import records, newest first.
func (r *ImportRepository) ListRecords() ([]*models.ImportRecord, error) {
	query := `
		SELECT id, source, status, row_count, error, created_at, updated_at
		FROM import_records
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query import records: %w", err)
	}
	defer rows.Close()

	var records []*models.ImportRecord
	for rows.Next() {
		var (
			id        string
			source    string
			status    string
			rowCount  int
			errDetail sql.NullString
			createdAt time.Time
			updatedAt time.Time
		)

		if err := rows.Scan(&id, &source, &status, &rowCount, &errDetail, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import record: %w", err)
		}

		record := models.NewImportRecord(source)
		record.SetID(id)
		record.SetStatus(status)
		record.SetRowCount(rowCount)
		record.SetErrorDetail(errDetail.String)
		record.SetCreatedAt(createdAt)
		record.SetUpdatedAt(updatedAt)

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}
