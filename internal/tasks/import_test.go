package tasks

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/chartlog/internal/match"
	"github.com/desertthunder/chartlog/internal/models"
	"github.com/desertthunder/chartlog/internal/repositories"
	"github.com/desertthunder/chartlog/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func buildImporter(t *testing.T, db *sql.DB) (*Importer, *repositories.SongRepository, *repositories.ImportRepository) {
	t.Helper()
	songs := repositories.NewSongRepository(db)
	imports := repositories.NewImportRepository(db)
	matcher := match.NewSongMatcher(songs, 0)
	return NewImporter(songs, imports, matcher, 0.68, nil), songs, imports
}

func TestImporterRun(t *testing.T) {
	t.Run("creates songs and audit rows for each input row", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		importer, songs, imports := buildImporter(t, db)

		text := "Title A\tArtist A\t25/12/2005\nTitle B\tArtist B\t\n"
		result, err := importer.Run(text, ImportOpts{})
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}

		if result.Total != 2 || result.Merged != 2 || result.Ambiguous != 0 || result.Errors != 0 {
			t.Errorf("unexpected counts: total=%d merged=%d ambiguous=%d errors=%d",
				result.Total, result.Merged, result.Ambiguous, result.Errors)
		}

		list, err := songs.ListBySequence(0, 0)
		if err != nil {
			t.Fatalf("failed to list songs: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 songs, got %d", len(list))
		}
		if list[0].Title() != "Title A" || list[0].Sequence() != 1 {
			t.Errorf("unexpected first song: %s seq %d", list[0].Title(), list[0].Sequence())
		}
		if list[1].Title() != "Title B" || list[1].Sequence() != 2 {
			t.Errorf("unexpected second song: %s seq %d", list[1].Title(), list[1].Sequence())
		}
		if list[0].FirstListenDate() == nil || *list[0].FirstListenDate() != "2005-12-25" {
			t.Errorf("expected day-first parsed date 2005-12-25, got %v", list[0].FirstListenDate())
		}
		if list[1].FirstListenDate() != nil {
			t.Errorf("expected undated second song, got %v", list[1].FirstListenDate())
		}
		if !list[0].Curated() {
			t.Error("imported songs should be curated")
		}

		rows, err := imports.ListRows(result.ImportID)
		if err != nil {
			t.Fatalf("failed to list audit rows: %v", err)
		}
		if len(rows) != result.Total {
			t.Errorf("expected one audit row per input row, got %d for %d", len(rows), result.Total)
		}

		record, err := imports.GetRecord(result.ImportID)
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}
		if record.Status() != models.ImportStatusCompleted || record.RowCount() != 2 {
			t.Errorf("unexpected record state: %s rows=%d", record.Status(), record.RowCount())
		}
	})

	t.Run("sequence counter continues from existing catalog", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		importer, songs, _ := buildImporter(t, db)
		seed := models.NewSong("Existing", "Artist", 40, nil)
		if err := songs.Create(seed); err != nil {
			t.Fatalf("failed to seed catalog: %v", err)
		}

		result, err := importer.Run("New Song\tNew Artist\n", ImportOpts{})
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		if result.Merged != 1 {
			t.Fatalf("expected 1 merged row, got %d", result.Merged)
		}

		list, err := songs.ListBySequence(41, 0)
		if err != nil {
			t.Fatalf("failed to list songs: %v", err)
		}
		if len(list) != 1 || list[0].Sequence() != 41 {
			t.Errorf("expected new song at sequence 41, got %v", list)
		}
	})

	t.Run("unparseable date produces an error row", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		importer, songs, imports := buildImporter(t, db)

		result, err := importer.Run("Title A\tArtist A\t12/25/2005\n", ImportOpts{})
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		if result.Errors != 1 || result.Merged != 0 {
			t.Errorf("expected 1 error row, got errors=%d merged=%d", result.Errors, result.Merged)
		}

		list, err := songs.ListBySequence(0, 0)
		if err != nil {
			t.Fatalf("failed to list songs: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("expected no songs created, got %d", len(list))
		}

		rows, err := imports.ListRows(result.ImportID)
		if err != nil {
			t.Fatalf("failed to list rows: %v", err)
		}
		if len(rows) != 1 || rows[0].Status() != models.RowStatusError {
			t.Fatalf("expected one error row, got %v", rows)
		}
		if rows[0].ErrorDetail() == "" {
			t.Error("error row should carry the failure detail")
		}
	})

	t.Run("exact match is flagged ambiguous, never merged", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		importer, songs, imports := buildImporter(t, db)
		existing := models.NewSong("Wonderwall", "Oasis", 1, nil)
		if err := songs.Create(existing); err != nil {
			t.Fatalf("failed to seed catalog: %v", err)
		}

		result, err := importer.Run("The Wonderwall\tOasis\n", ImportOpts{})
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		if result.Ambiguous != 1 || result.Merged != 0 {
			t.Errorf("expected 1 ambiguous row, got ambiguous=%d merged=%d", result.Ambiguous, result.Merged)
		}

		list, err := songs.ListBySequence(0, 0)
		if err != nil {
			t.Fatalf("failed to list songs: %v", err)
		}
		if len(list) != 1 {
			t.Errorf("expected catalog unchanged, got %d songs", len(list))
		}

		rows, err := imports.ListRows(result.ImportID)
		if err != nil {
			t.Fatalf("failed to list rows: %v", err)
		}
		if len(rows) != 1 || rows[0].SongID() == nil || *rows[0].SongID() != existing.ID() {
			t.Error("ambiguous row should reference the matched song")
		}
	})

	t.Run("header row claims columns by name", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		importer, songs, _ := buildImporter(t, db)

		text := "First Listen,Song,Artist\n25/12/2005,Title A,Artist A\n"
		result, err := importer.Run(text, ImportOpts{HasHeader: true})
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		if result.Total != 1 || result.Merged != 1 {
			t.Fatalf("unexpected counts: %+v", result)
		}

		list, err := songs.ListBySequence(0, 0)
		if err != nil {
			t.Fatalf("failed to list songs: %v", err)
		}
		if list[0].Title() != "Title A" || list[0].Artist() != "Artist A" {
			t.Errorf("header mapping failed: %s - %s", list[0].Artist(), list[0].Title())
		}
		if list[0].FirstListenDate() == nil || *list[0].FirstListenDate() != "2005-12-25" {
			t.Errorf("date column not mapped: %v", list[0].FirstListenDate())
		}
	})

	t.Run("empty input is rejected", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		importer, _, _ := buildImporter(t, db)
		if _, err := importer.Run("  \n \n", ImportOpts{}); !errors.Is(err, shared.ErrEmptyInput) {
			t.Errorf("expected ErrEmptyInput, got %v", err)
		}
	})
}

func TestImporterPreview(t *testing.T) {
	t.Run("writes nothing and reports matches", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		importer, songs, _ := buildImporter(t, db)
		existing := models.NewSong("Wonderwall", "Oasis", 1, nil)
		if err := songs.Create(existing); err != nil {
			t.Fatalf("failed to seed catalog: %v", err)
		}

		text := "Wonderwall\tOasis\t25/12/2005\nBrand New Song\tNew Artist\tgarbage\n"
		preview, err := importer.Preview(text, ImportOpts{})
		if err != nil {
			t.Fatalf("Preview() error: %v", err)
		}

		if preview.Delimiter != "\t" {
			t.Errorf("expected tab delimiter, got %q", preview.Delimiter)
		}
		if len(preview.Rows) != 2 {
			t.Fatalf("expected 2 preview rows, got %d", len(preview.Rows))
		}

		if preview.Rows[0].ExactID != existing.ID() {
			t.Errorf("expected exact match on first row, got %q", preview.Rows[0].ExactID)
		}
		if !preview.Rows[0].DateValid || preview.Rows[0].ParsedDate != "2005-12-25" {
			t.Errorf("expected parsed date on first row, got %+v", preview.Rows[0])
		}
		if preview.Rows[1].DateValid {
			t.Error("expected invalid date flagged on second row")
		}

		list, err := songs.ListBySequence(0, 0)
		if err != nil {
			t.Fatalf("failed to list songs: %v", err)
		}
		if len(list) != 1 {
			t.Errorf("preview must not write; catalog has %d songs", len(list))
		}
	})

	t.Run("suggests similar songs above the threshold", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		importer, songs, _ := buildImporter(t, db)
		existing := models.NewSong("Wonderwall", "Oasis", 1, nil)
		if err := songs.Create(existing); err != nil {
			t.Fatalf("failed to seed catalog: %v", err)
		}

		preview, err := importer.Preview("Wonderwal\tOasis\n", ImportOpts{})
		if err != nil {
			t.Fatalf("Preview() error: %v", err)
		}

		row := preview.Rows[0]
		if row.ExactID != "" {
			t.Error("misspelled title should not match exactly")
		}
		if row.SuggestID != existing.ID() {
			t.Errorf("expected fuzzy suggestion %s, got %q", existing.ID(), row.SuggestID)
		}
		if row.Score < 0.68 {
			t.Errorf("suggestion score %v below threshold", row.Score)
		}
	})
}

func TestSplitRows(t *testing.T) {
	tc := []struct {
		name     string
		text     string
		override string
		want     string
	}{
		{
			name: "tab wins when present",
			text: "a\tb,c\nd\te;f\n",
			want: "\t",
		},
		{
			name: "comma beats semicolon on tie",
			text: "a,b;c\nd,e;f\n",
			want: ",",
		},
		{
			name: "semicolon when it dominates",
			text: "a;b\nc;d;e\n",
			want: ";",
		},
		{
			name: "tab fallback with no delimiters",
			text: "just one column\n",
			want: "\t",
		},
		{
			name:     "override wins",
			text:     "a\tb\n",
			override: "|",
			want:     "|",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			_, got := splitRows(tt.text, tt.override)
			if got != tt.want {
				t.Errorf("splitRows() delimiter = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("blank lines are dropped", func(t *testing.T) {
		lines, _ := splitRows("a\tb\n\n  \nc\td\n", "")
		if len(lines) != 2 {
			t.Errorf("expected 2 lines, got %d", len(lines))
		}
	})
}

func TestColumnMapping(t *testing.T) {
	t.Run("positional without header", func(t *testing.T) {
		mapping, data := columnMapping([]string{"a\tb\tc"}, "\t", false)
		if mapping[fieldTitle] != 0 || mapping[fieldArtist] != 1 || mapping[fieldDate] != 2 || mapping[fieldNotes] != 3 {
			t.Errorf("unexpected positional mapping: %v", mapping)
		}
		if len(data) != 1 {
			t.Errorf("data lines should be untouched, got %d", len(data))
		}
	})

	t.Run("header claims by substring", func(t *testing.T) {
		mapping, data := columnMapping([]string{"Notes\tSong Name\tFirst Heard\tArtist", "n\tt\td\ta"}, "\t", true)
		if mapping[fieldNotes] != 0 || mapping[fieldTitle] != 1 || mapping[fieldDate] != 2 || mapping[fieldArtist] != 3 {
			t.Errorf("unexpected header mapping: %v", mapping)
		}
		if len(data) != 1 {
			t.Errorf("header line should be consumed, got %d data lines", len(data))
		}
	})

	t.Run("first claim wins on duplicates", func(t *testing.T) {
		mapping, _ := columnMapping([]string{"Title\tSong Title", "a\tb"}, "\t", true)
		if mapping[fieldTitle] != 0 {
			t.Errorf("expected first title column claimed, got %d", mapping[fieldTitle])
		}
	})

	t.Run("unmapped field reads empty", func(t *testing.T) {
		mapping, _ := columnMapping([]string{"Title\tArtist", "a\tb"}, "\t", true)
		if got := fieldAt([]string{"a", "b"}, mapping, fieldDate); got != "" {
			t.Errorf("expected empty for unmapped date, got %q", got)
		}
	})
}
