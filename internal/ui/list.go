package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/chartlog/internal/models"
)

var (
	_ list.Item = songItem{}
	_ list.Item = importItem{}
	_ list.Item = rowItem{}
)

// songItem wraps [models.Song] to implement [list.Item].
type songItem struct {
	song *models.Song
}

func (i songItem) FilterValue() string { return i.song.Title() + " " + i.song.Artist() }
func (i songItem) Title() string {
	return fmt.Sprintf("%d. %s - %s", i.song.Sequence(), i.song.Artist(), i.song.Title())
}
func (i songItem) Description() string {
	if date := i.song.FirstListenDate(); date != nil {
		return fmt.Sprintf("first listened %s", *date)
	}
	return "undated"
}

// importItem wraps [models.ImportRecord] to implement [list.Item].
type importItem struct {
	record *models.ImportRecord
}

func (i importItem) FilterValue() string { return i.record.ID() }
func (i importItem) Title() string {
	return fmt.Sprintf("%s (%s)", i.record.CreatedAt().Format("2006-01-02 15:04"), i.record.Source())
}
func (i importItem) Description() string {
	desc := fmt.Sprintf("%s • %d rows", i.record.Status(), i.record.RowCount())
	if i.record.ErrorDetail() != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.record.ErrorDetail())
	}
	return desc
}

// rowItem wraps [models.ImportRow] to implement [list.Item].
type rowItem struct {
	row *models.ImportRow
}

func (i rowItem) FilterValue() string { return i.row.Raw() }
func (i rowItem) Title() string {
	return fmt.Sprintf("%d. %s - %s", i.row.Position(), i.row.Artist(), i.row.Title())
}
func (i rowItem) Description() string {
	switch i.row.Status() {
	case models.RowStatusAmbiguous:
		if id := i.row.SongID(); id != nil {
			return fmt.Sprintf("ambiguous • matches %s", *id)
		}
		return "ambiguous"
	case models.RowStatusError:
		return fmt.Sprintf("error • %s", i.row.ErrorDetail())
	default:
		return "merged"
	}
}
