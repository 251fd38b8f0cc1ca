package tasks

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chartlog/internal/match"
	"github.com/desertthunder/chartlog/internal/models"
	"github.com/desertthunder/chartlog/internal/repositories"
	"github.com/desertthunder/chartlog/internal/shared"
)

// DefaultPreviewLimit caps the number of rows inspected by Preview.
const DefaultPreviewLimit = 50

// Field names used by column mapping.
const (
	fieldTitle  = "title"
	fieldArtist = "artist"
	fieldDate   = "date"
	fieldNotes  = "notes"
)

// ImportOpts configures one paste-import run.
type ImportOpts struct {
	Source    string // source tag for the batch, defaults to "sheet"
	Delimiter string // explicit field delimiter; empty means auto-detect
	HasHeader bool   // first non-blank line is a header row
}

// ImportResult summarizes a completed paste import.
type ImportResult struct {
	Record    *models.ImportRecord `json:"-"`
	ImportID  string               `json:"import_id"`
	Total     int                  `json:"total"`
	Merged    int                  `json:"merged"`
	Ambiguous int                  `json:"ambiguous"`
	Errors    int                  `json:"errors"`
	Rows      []*models.ImportRow  `json:"-"`
}

// PreviewRow is the read-only inspection result for one input row.
type PreviewRow struct {
	Position   int     `json:"position"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	DateText   string  `json:"date_text"`
	ParsedDate string  `json:"parsed_date,omitempty"`
	DateValid  bool    `json:"date_valid"`
	ExactID    string  `json:"exact_id,omitempty"`
	SuggestID  string  `json:"suggest_id,omitempty"`
	SuggestFor string  `json:"suggest_for,omitempty"` // "title - artist" of the suggested song
	Score      float64 `json:"score,omitempty"`
}

// PreviewResult is the read-only variant of an import run.
type PreviewResult struct {
	Delimiter string       `json:"delimiter"`
	Rows      []PreviewRow `json:"rows"`
	Truncated bool         `json:"truncated"`
}

// Importer runs the paste-import pipeline: delimited text in, catalog writes
// and one audit row per input row out.
type Importer struct {
	songs     *repositories.SongRepository
	imports   *repositories.ImportRepository
	matcher   *match.SongMatcher
	threshold float64
	logger    *log.Logger
}

// NewImporter creates an import pipeline over the given repositories.
// threshold gates fuzzy suggestions in preview mode only; the matcher itself
// applies none.
func NewImporter(songs *repositories.SongRepository, imports *repositories.ImportRepository, matcher *match.SongMatcher, threshold float64, logger *log.Logger) *Importer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Importer{
		songs:     songs,
		imports:   imports,
		matcher:   matcher,
		threshold: threshold,
		logger:    logger,
	}
}

// Run imports delimited paste text into the catalog. Rows are processed
// sequentially in input order; the running sequence counter is threaded
// through each step so later rows observe earlier allocations. All audit rows
// are persisted in one batch after processing; a batch write failure marks the
// whole record failed (already-created songs are not rolled back).
func (im *Importer) Run(text string, opts ImportOpts) (*ImportResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: paste text", shared.ErrEmptyInput)
	}
	if opts.Source == "" {
		opts.Source = models.SourceSheet
	}

	record := models.NewImportRecord(opts.Source)
	if err := im.imports.CreateRecord(record); err != nil {
		return nil, fmt.Errorf("failed to create import record: %w", err)
	}

	lines, delimiter := splitRows(text, opts.Delimiter)
	mapping, dataLines := columnMapping(lines, delimiter, opts.HasHeader)

	currentMax, err := im.songs.MaxSequence()
	if err != nil {
		return nil, fmt.Errorf("failed to seed sequence counter: %w", err)
	}

	result := &ImportResult{Record: record, ImportID: record.ID(), Total: len(dataLines)}

	for i, line := range dataLines {
		row, newMax := im.processRow(record.ID(), i, line, delimiter, mapping, currentMax)
		currentMax = newMax
		result.Rows = append(result.Rows, row)

		switch row.Status() {
		case models.RowStatusMerged:
			result.Merged++
		case models.RowStatusAmbiguous:
			result.Ambiguous++
		case models.RowStatusError:
			result.Errors++
		}
	}

	if err := im.imports.CreateRowsBatch(result.Rows); err != nil {
		record.SetStatus(models.ImportStatusFailed)
		record.SetErrorDetail(err.Error())
		if uerr := im.imports.UpdateRecord(record); uerr != nil {
			im.logger.Error("failed to mark import failed", "import", record.ID(), "err", uerr)
		}
		return nil, fmt.Errorf("failed to persist audit rows: %w", err)
	}

	record.SetStatus(models.ImportStatusCompleted)
	record.SetRowCount(len(dataLines))
	if err := im.imports.UpdateRecord(record); err != nil {
		return nil, fmt.Errorf("failed to complete import record: %w", err)
	}

	im.logger.Info("import completed",
		"import", record.ID(),
		"rows", result.Total,
		"merged", result.Merged,
		"ambiguous", result.Ambiguous,
		"errors", result.Errors,
	)

	return result, nil
}

// processRow handles a single input row. The sequence counter comes in and
// goes out explicitly so the step stays a pure function of its inputs plus
// the store.
func (im *Importer) processRow(importID string, position int, line, delimiter string, mapping map[string]int, currentMax int) (*models.ImportRow, int) {
	row := models.NewImportRow(importID, position, line)

	fields := splitFields(line, delimiter)
	title := fieldAt(fields, mapping, fieldTitle)
	artist := fieldAt(fields, mapping, fieldArtist)
	dateText := fieldAt(fields, mapping, fieldDate)
	notes := fieldAt(fields, mapping, fieldNotes)
	row.SetMapped(title, artist, dateText, notes)

	parsedDate, dateOK := match.ParseDate(dateText)
	if dateText != "" && !dateOK {
		row.SetOutcome(models.RowStatusError, nil, 0)
		row.SetErrorDetail(fmt.Sprintf("unparseable date %q", dateText))
		im.logger.Warn("skipping row with unparseable date", "row", position, "date", dateText)
		return row, currentMax
	}

	existing, err := im.matcher.Exact(title, artist)
	if err != nil {
		row.SetOutcome(models.RowStatusError, nil, 0)
		row.SetErrorDetail(err.Error())
		im.logger.Error("exact lookup failed", "row", position, "raw", line, "err", err)
		return row, currentMax
	}

	if existing != nil {
		// An exact catalog match requires human review; never auto-merge.
		id := existing.ID()
		row.SetOutcome(models.RowStatusAmbiguous, &id, 1.0)
		return row, currentMax
	}

	var datePtr *string
	if dateOK {
		datePtr = &parsedDate
	}

	song := models.NewSong(title, artist, currentMax+1, datePtr)
	song.SetCurated(true)
	song.SetNotes(notes)

	if err := im.songs.Create(song); err != nil {
		row.SetOutcome(models.RowStatusError, nil, 0)
		row.SetErrorDetail(err.Error())
		im.logger.Error("failed to create song", "row", position, "raw", line, "err", err)
		return row, currentMax
	}

	id := song.ID()
	row.SetOutcome(models.RowStatusMerged, &id, 1.0)
	return row, currentMax + 1
}

// Preview performs the same mapping, parsing and exact-match lookup as Run
// over a capped prefix of the input without writing anything. Rows without an
// exact match additionally get a threshold-gated fuzzy suggestion.
func (im *Importer) Preview(text string, opts ImportOpts) (*PreviewResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: paste text", shared.ErrEmptyInput)
	}

	lines, delimiter := splitRows(text, opts.Delimiter)
	mapping, dataLines := columnMapping(lines, delimiter, opts.HasHeader)

	result := &PreviewResult{Delimiter: delimiter}
	if len(dataLines) > DefaultPreviewLimit {
		dataLines = dataLines[:DefaultPreviewLimit]
		result.Truncated = true
	}

	for i, line := range dataLines {
		fields := splitFields(line, delimiter)
		title := fieldAt(fields, mapping, fieldTitle)
		artist := fieldAt(fields, mapping, fieldArtist)
		dateText := fieldAt(fields, mapping, fieldDate)

		preview := PreviewRow{Position: i, Title: title, Artist: artist, DateText: dateText}
		preview.ParsedDate, preview.DateValid = match.ParseDate(dateText)
		if dateText == "" {
			preview.DateValid = true
		}

		existing, err := im.matcher.Exact(title, artist)
		if err != nil {
			return nil, fmt.Errorf("exact lookup failed for row %d: %w", i, err)
		}

		if existing != nil {
			preview.ExactID = existing.ID()
		} else {
			fuzzy, err := im.matcher.Fuzzy(title, artist)
			if err != nil {
				return nil, fmt.Errorf("fuzzy lookup failed for row %d: %w", i, err)
			}
			if fuzzy != nil && fuzzy.Score >= im.threshold {
				preview.SuggestID = fuzzy.Song.ID()
				preview.SuggestFor = fmt.Sprintf("%s - %s", fuzzy.Song.Title(), fuzzy.Song.Artist())
				preview.Score = fuzzy.Score
			}
		}

		result.Rows = append(result.Rows, preview)
	}

	return result, nil
}

// splitRows splits paste text into non-blank trimmed lines and resolves the
// field delimiter: an explicit override wins, then tab if present, then
// whichever of comma/semicolon occurs more (comma on ties), then tab.
func splitRows(text, override string) ([]string, string) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}

	if override != "" {
		return lines, override
	}

	if strings.Contains(text, "\t") {
		return lines, "\t"
	}

	commas := strings.Count(text, ",")
	semicolons := strings.Count(text, ";")
	switch {
	case commas >= semicolons && commas > 0:
		return lines, ","
	case semicolons > 0:
		return lines, ";"
	default:
		return lines, "\t"
	}
}

// splitFields splits one row into trimmed fields.
func splitFields(line, delimiter string) []string {
	fields := strings.Split(line, delimiter)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// columnMapping resolves which column index holds which field. With a header
// row, columns are claimed by case-insensitive substring match on the header
// names; without one, the fixed positional order {title, artist, date, notes}
// applies.
func columnMapping(lines []string, delimiter string, hasHeader bool) (map[string]int, []string) {
	mapping := map[string]int{fieldTitle: 0, fieldArtist: 1, fieldDate: 2, fieldNotes: 3}

	if !hasHeader || len(lines) == 0 {
		return mapping, lines
	}

	mapping = map[string]int{}
	for i, header := range splitFields(lines[0], delimiter) {
		name := strings.ToLower(header)
		switch {
		case strings.Contains(name, fieldTitle) || strings.Contains(name, "song"):
			claim(mapping, fieldTitle, i)
		case strings.Contains(name, fieldArtist):
			claim(mapping, fieldArtist, i)
		case strings.Contains(name, fieldDate) || strings.Contains(name, "first"):
			claim(mapping, fieldDate, i)
		case strings.Contains(name, "note"):
			claim(mapping, fieldNotes, i)
		}
	}

	return mapping, lines[1:]
}

// claim assigns a column to a field unless an earlier column already did.
func claim(mapping map[string]int, field string, index int) {
	if _, taken := mapping[field]; !taken {
		mapping[field] = index
	}
}

// fieldAt returns the mapped field value, or empty when the column is missing.
func fieldAt(fields []string, mapping map[string]int, field string) string {
	index, ok := mapping[field]
	if !ok || index < 0 || index >= len(fields) {
		return ""
	}
	return fields[index]
}
