package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/chartlog/internal/models"
	"github.com/desertthunder/chartlog/internal/repositories"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SongListView ViewState = iota
	SongDetailView
	ImportListView
	RowListView
)

// Model represents the TUI application state.
type Model struct {
	view         ViewState
	songs        *repositories.SongRepository
	imports      *repositories.ImportRepository
	width        int
	height       int
	songList     list.Model
	importList   list.Model
	rowList      list.Model
	selectedSong *models.Song
	err          error
	help         help.Model
	keys         keyMap
}

type songsFetchedMsg struct {
	songs []*models.Song
	err   error
}

type importsFetchedMsg struct {
	records []*models.ImportRecord
	err     error
}

type rowsFetchedMsg struct {
	importID string
	rows     []*models.ImportRow
	err      error
}

// NewModel creates a new TUI model with the provided repositories.
func NewModel(songs *repositories.SongRepository, imports *repositories.ImportRepository) *Model {
	return &Model{
		view:    SongListView,
		songs:   songs,
		imports: imports,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init initializes the TUI by fetching the catalog.
func (m *Model) Init() tea.Cmd {
	return m.fetchSongs()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.songList.SetSize(msg.Width-4, msg.Height-8)
		m.importList.SetSize(msg.Width-4, msg.Height-8)
		m.rowList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case SongListView:
			return m.handleSongListKeys(msg)
		case SongDetailView:
			return m.handleDetailKeys(msg)
		case ImportListView:
			return m.handleImportListKeys(msg)
		case RowListView:
			return m.handleRowListKeys(msg)
		}

	case songsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.songs))
		for i, song := range msg.songs {
			items[i] = songItem{song: song}
		}
		m.songList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.songList.Title = "Catalog"
		m.songList.SetSize(m.width-4, m.height-8)
		return m, nil

	case importsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = SongListView
			return m, nil
		}
		items := make([]list.Item, len(msg.records))
		for i, record := range msg.records {
			items[i] = importItem{record: record}
		}
		m.importList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.importList.Title = "Imports"
		m.importList.SetSize(m.width-4, m.height-8)
		m.view = ImportListView
		return m, nil

	case rowsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = ImportListView
			return m, nil
		}
		items := make([]list.Item, len(msg.rows))
		for i, row := range msg.rows {
			items[i] = rowItem{row: row}
		}
		m.rowList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.rowList.Title = fmt.Sprintf("Rows in %s", msg.importID)
		m.rowList.SetSize(m.width-4, m.height-8)
		m.view = RowListView
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case SongListView:
		return m.renderSongList()
	case SongDetailView:
		return m.renderSongDetail()
	case ImportListView:
		return m.renderImportList()
	case RowListView:
		return m.renderRowList()
	default:
		return ""
	}
}

func (m *Model) handleSongListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "i":
		return m, m.fetchImports()
	case "enter":
		if selected := m.songList.SelectedItem(); selected != nil {
			if item, ok := selected.(songItem); ok {
				m.selectedSong = item.song
				m.view = SongDetailView
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.songList, cmd = m.songList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = SongListView
		m.selectedSong = nil
	}
	return m, nil
}

func (m *Model) handleImportListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = SongListView
		return m, nil
	case "enter":
		if selected := m.importList.SelectedItem(); selected != nil {
			if item, ok := selected.(importItem); ok {
				return m, m.fetchRows(item.record.ID())
			}
		}
	}

	var cmd tea.Cmd
	m.importList, cmd = m.importList.Update(msg)
	return m, cmd
}

func (m *Model) handleRowListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = ImportListView
		return m, nil
	}

	var cmd tea.Cmd
	m.rowList, cmd = m.rowList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case SongListView:
		m.songList, cmd = m.songList.Update(msg)
	case ImportListView:
		m.importList, cmd = m.importList.Update(msg)
	case RowListView:
		m.rowList, cmd = m.rowList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchSongs() tea.Cmd {
	return func() tea.Msg {
		songs, err := m.songs.ListBySequence(0, 0)
		return songsFetchedMsg{songs: songs, err: err}
	}
}

func (m *Model) fetchImports() tea.Cmd {
	return func() tea.Msg {
		records, err := m.imports.ListRecords()
		return importsFetchedMsg{records: records, err: err}
	}
}

func (m *Model) fetchRows(importID string) tea.Cmd {
	return func() tea.Msg {
		rows, err := m.imports.ListRows(importID)
		return rowsFetchedMsg{importID: importID, rows: rows, err: err}
	}
}

func (m *Model) renderSongList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.imports, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.songList.View(), helpView)
}

func (m *Model) renderSongDetail() string {
	song := m.selectedSong
	if song == nil {
		return styles.err.Render("No song selected\n\nPress esc to go back")
	}

	title := styles.title.Render(fmt.Sprintf("%s - %s", song.Artist(), song.Title()))

	date := "undated"
	if d := song.FirstListenDate(); d != nil {
		date = *d
	}

	info := fmt.Sprintf("\nSequence: %d\nFirst listen: %s\nCurated: %t\n", song.Sequence(), date, song.Curated())
	if song.Notes() != "" {
		info += fmt.Sprintf("Notes: %s\n", song.Notes())
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s%s\n%s", title, info, helpView)
}

func (m *Model) renderImportList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.importList.View(), helpView)
}

func (m *Model) renderRowList() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.rowList.View(), helpView)
}
