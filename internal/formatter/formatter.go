// package formatter renders catalog data and pipeline results to plain text
// for terminal output.
package formatter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/desertthunder/chartlog/internal/models"
	"github.com/desertthunder/chartlog/internal/tasks"
)

// SongsToText converts a song list to plain text, one line per song in
// sequence order.
func SongsToText(songs []*models.Song) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Songs: %d\n\n", len(songs)))
	for _, song := range songs {
		date := dateOrEmpty(song)
		if date == "" {
			date = "undated"
		}
		buf.WriteString(fmt.Sprintf("%4d. %s - %s [%s]\n", song.Sequence(), song.Artist(), song.Title(), date))
	}

	return buf.Bytes()
}

// ImportResultToText summarizes a completed import run.
func ImportResultToText(result *tasks.ImportResult) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Import: %s\n", result.ImportID))
	buf.WriteString(fmt.Sprintf("Rows: %d (merged %d, ambiguous %d, errors %d)\n", result.Total, result.Merged, result.Ambiguous, result.Errors))

	for _, row := range result.Rows {
		if row.Status() == models.RowStatusMerged {
			continue
		}
		detail := row.ErrorDetail()
		if row.Status() == models.RowStatusAmbiguous && row.SongID() != nil {
			detail = fmt.Sprintf("matches existing song %s", *row.SongID())
		}
		buf.WriteString(fmt.Sprintf("  row %d [%s]: %s (%s)\n", row.Position(), row.Status(), row.Raw(), detail))
	}

	return buf.Bytes()
}

// PreviewToText renders a dry-run import preview as an aligned table.
func PreviewToText(preview *tasks.PreviewResult) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Delimiter: %s\n\n", delimiterName(preview.Delimiter)))

	for _, row := range preview.Rows {
		status := "new"
		switch {
		case row.ExactID != "":
			status = "exact match"
		case row.SuggestID != "":
			status = fmt.Sprintf("similar to %s (%.2f)", row.SuggestFor, row.Score)
		}

		date := row.ParsedDate
		if row.DateText != "" && !row.DateValid {
			date = fmt.Sprintf("invalid: %s", row.DateText)
		}

		buf.WriteString(fmt.Sprintf("%4d. %s - %s", row.Position, row.Artist, row.Title))
		if date != "" {
			buf.WriteString(fmt.Sprintf(" [%s]", date))
		}
		buf.WriteString(fmt.Sprintf(" -> %s\n", status))
	}

	if preview.Truncated {
		buf.WriteString("\n(preview truncated)\n")
	}

	return buf.Bytes()
}

// PlanToText renders a resequence plan: the pending moves plus any date
// diagnostics.
func PlanToText(plan *tasks.ResequencePlan) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Songs examined: %d\n", plan.Total))
	buf.WriteString(fmt.Sprintf("Moves planned: %d\n", len(plan.Updates)))

	for _, update := range plan.Updates {
		buf.WriteString(fmt.Sprintf("  %s: %d -> %d\n", update.ID, update.FromSequence, update.ToSequence))
	}

	if len(plan.Inversions) > 0 {
		buf.WriteString(fmt.Sprintf("\nDate inversions: %d\n", len(plan.Inversions)))
		for _, inv := range plan.Inversions {
			buf.WriteString(fmt.Sprintf("  %s (%s) precedes %s (%s)\n", inv.EarlierID, inv.EarlierDate, inv.LaterID, inv.LaterDate))
		}
	}

	if len(plan.DateIssues) > 0 {
		buf.WriteString(fmt.Sprintf("\nUnparseable stored dates: %d\n", len(plan.DateIssues)))
		for _, issue := range plan.DateIssues {
			buf.WriteString(fmt.Sprintf("  %s: %q\n", issue.SongID, issue.DateText))
		}
	}

	return buf.Bytes()
}

// ReportToText renders an applied resequence run.
func ReportToText(report *tasks.ResequenceReport) []byte {
	var buf bytes.Buffer

	buf.Write(PlanToText(report.Plan))
	buf.WriteString(fmt.Sprintf("\nApplied: %d\n", report.Applied))
	if report.Failed > 0 {
		buf.WriteString(fmt.Sprintf("Failed: %d\n", report.Failed))
	}

	return buf.Bytes()
}

// HistoryToText renders feed history entries in ascending play order.
func HistoryToText(history *tasks.HistoryResult) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Plays: %d (pages %d, dropped %d)\n\n", len(history.Entries), history.PagesFetched, history.Dropped))

	for _, entry := range history.Entries {
		buf.WriteString(fmt.Sprintf("%s  %s - %s", entry.Date, entry.Artist, entry.Title))
		if entry.SongID != nil {
			buf.WriteString(fmt.Sprintf("  (in catalog: %s)", *entry.SongID))
		}
		buf.WriteString("\n")
	}

	writeWarnings(&buf, history.Warnings)
	return buf.Bytes()
}

// SearchToText renders feed search hits with how each one matched.
func SearchToText(result *tasks.SearchResult) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Hits: %d (pages scanned %d)\n\n", len(result.Hits), result.PagesScanned))

	for _, hit := range result.Hits {
		kind := hit.MatchKind
		if hit.MatchKind == "fuzzy" {
			kind = fmt.Sprintf("fuzzy %.2f", hit.Score)
		}
		buf.WriteString(fmt.Sprintf("%s  %s - %s  [%s]\n", hit.Date, hit.Artist, hit.Title, kind))
	}

	writeWarnings(&buf, result.Warnings)
	return buf.Bytes()
}

// ImportRecordsToText renders the import audit log, newest first.
func ImportRecordsToText(records []*models.ImportRecord) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Imports: %d\n\n", len(records)))
	for _, record := range records {
		buf.WriteString(fmt.Sprintf("%s  %s  %-10s rows=%d", record.CreatedAt().Format("2006-01-02 15:04"), record.ID(), record.Status(), record.RowCount()))
		if record.ErrorDetail() != "" {
			buf.WriteString(fmt.Sprintf("  error=%s", record.ErrorDetail()))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

func writeWarnings(buf *bytes.Buffer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	buf.WriteString(fmt.Sprintf("\nWarnings (%d):\n", len(warnings)))
	for _, warning := range warnings {
		buf.WriteString("  " + warning + "\n")
	}
}

func delimiterName(delimiter string) string {
	switch delimiter {
	case "\t":
		return "tab"
	case ",":
		return "comma"
	case ";":
		return "semicolon"
	default:
		return strings.TrimSpace(delimiter)
	}
}

func dateOrEmpty(song *models.Song) string {
	if date := song.FirstListenDate(); date != nil {
		return *date
	}
	return ""
}
