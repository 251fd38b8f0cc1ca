// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for browsing the catalog:
//  1. [SongListView] : Browse the catalog in sequence order
//  2. [SongDetailView] : Inspect one song's dates, flags and notes
//  3. [ImportListView] : Browse past import batches
//  4. [RowListView] : Review the audit rows of one batch
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View
// pattern. Everything is read-only; catalog mutation stays on the CLI.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui
