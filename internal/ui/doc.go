// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a two-view workflow for browsing the catalog:
//  1. [BookListView] : Browse the Book Haven catalog
//  2. [BookDetailView] : Read a book's description and live comment thread
//
// Opening a book loads its comment history and joins its broadcast room;
// leaving the detail view leaves the room again, so exactly one room is held
// at a time. Pushed comments flow through the comment channel's update
// callback into the bubbletea message loop.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, c, r, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui
