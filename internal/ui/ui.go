package ui

import (
	"context"
	"fmt"

	"github.com/bookhaven/haven/internal/comments"
	"github.com/bookhaven/haven/internal/models"
	"github.com/bookhaven/haven/internal/services"
	"github.com/bookhaven/haven/internal/shared"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	BookListView ViewState = iota
	BookDetailView
)

// IdentitySource exposes the live identity, if any. Implemented by
// identity.Manager.
type IdentitySource interface {
	Identity() *models.Identity
}

// HistoryRecorder persists recently opened books. Implemented by
// repositories.ViewHistoryRepository via RecordView.
type HistoryRecorder interface {
	Create(record *models.ViewRecord) error
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	catalog  services.Catalog
	channel  *comments.Channel
	identity IdentitySource
	history  HistoryRecorder

	width  int
	height int

	bookList list.Model
	books    []models.Book
	book     *models.Book
	thread   []models.Comment

	compose   textinput.Model
	composing bool
	notice    string

	updates chan []models.Comment

	err  error
	help help.Model
	keys keyMap
}

type booksFetchedMsg struct {
	books []models.Book
	err   error
}

type threadLoadedMsg struct {
	book *models.Book
	err  error
}

type commentsUpdatedMsg []models.Comment

type commentPostedMsg struct {
	err error
}

// NewModel creates a new TUI model with the provided dependencies.
// The history recorder is optional.
func NewModel(ctx context.Context, catalog services.Catalog, channel *comments.Channel, identity IdentitySource, history HistoryRecorder) *Model {
	compose := textinput.New()
	compose.Placeholder = "Write a comment..."
	compose.CharLimit = 500

	m := &Model{
		ctx:      ctx,
		view:     BookListView,
		catalog:  catalog,
		channel:  channel,
		identity: identity,
		history:  history,
		compose:  compose,
		updates:  make(chan []models.Comment, 16),
		help:     help.New(),
		keys:     newKeyMap(),
	}

	channel.OnUpdate(func(thread []models.Comment) {
		select {
		case m.updates <- thread:
		default:
		}
	})

	return m
}

// Init initializes the TUI by fetching the catalog.
func (m *Model) Init() tea.Cmd {
	return m.fetchBooks()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.bookList.Width() == 0 {
			m.bookList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case BookListView:
			return m.handleBookListKeys(msg)
		case BookDetailView:
			return m.handleDetailKeys(msg)
		}

	case booksFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.books = msg.books
		items := make([]list.Item, len(msg.books))
		for i, book := range msg.books {
			items[i] = bookItem{book: book}
		}
		m.bookList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.bookList.Title = "Book Haven"
		m.bookList.SetSize(m.width-4, m.height-8)
		return m, nil

	case threadLoadedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Failed to load comments: %v", msg.err)
		}
		m.book = msg.book
		m.thread = m.channel.Comments()
		m.view = BookDetailView
		return m, m.waitForComments()

	case commentsUpdatedMsg:
		if m.view == BookDetailView {
			m.thread = msg
		}
		return m, m.waitForComments()

	case commentPostedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Comment not sent: %v", msg.err)
			return m, nil
		}
		m.notice = ""
		m.compose.Reset()
		m.composing = false
		return m, nil
	}

	if m.view == BookListView {
		var cmd tea.Cmd
		m.bookList, cmd = m.bookList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case BookListView:
		return m.renderBookList()
	case BookDetailView:
		return m.renderDetail()
	default:
		return ""
	}
}

func (m *Model) handleBookListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		selected := m.bookList.SelectedItem()
		if selected != nil {
			if item, ok := selected.(bookItem); ok {
				return m, m.openBook(item.book)
			}
		}
	}

	var cmd tea.Cmd
	m.bookList, cmd = m.bookList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.composing {
		switch msg.String() {
		case "esc":
			m.composing = false
			m.compose.Blur()
			return m, nil
		case "enter":
			return m, m.postComment(m.compose.Value())
		}
		var cmd tea.Cmd
		m.compose, cmd = m.compose.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.closeThread()
		return m, tea.Quit
	case "esc":
		m.closeThread()
		m.view = BookListView
		return m, nil
	case "c":
		m.composing = true
		m.notice = ""
		return m, m.compose.Focus()
	case "r":
		return m, m.reloadThread()
	}
	return m, nil
}

// closeThread tears the comment subscription down when the detail view exits.
func (m *Model) closeThread() {
	if err := m.channel.Unsubscribe(); err != nil {
		m.notice = fmt.Sprintf("Failed to leave comment room: %v", err)
	}
	m.composing = false
	m.compose.Reset()
}

func (m *Model) fetchBooks() tea.Cmd {
	return func() tea.Msg {
		books, err := m.catalog.ListBooks(m.ctx, "")
		return booksFetchedMsg{books: books, err: err}
	}
}

// openBook loads the comment history for book and joins its broadcast room.
// The view history write is best effort.
func (m *Model) openBook(book models.Book) tea.Cmd {
	return func() tea.Msg {
		if m.history != nil {
			record := models.NewViewRecord(0, book.ID, book.Title)
			_ = m.history.Create(record)
		}

		if err := m.channel.Load(m.ctx, book.ID); err != nil {
			return threadLoadedMsg{book: &book, err: err}
		}
		if err := m.channel.Subscribe(book.ID); err != nil {
			return threadLoadedMsg{book: &book, err: err}
		}
		return threadLoadedMsg{book: &book}
	}
}

func (m *Model) reloadThread() tea.Cmd {
	return func() tea.Msg {
		if m.book == nil {
			return nil
		}
		err := m.channel.Load(m.ctx, m.book.ID)
		return threadLoadedMsg{book: m.book, err: err}
	}
}

func (m *Model) postComment(text string) tea.Cmd {
	return func() tea.Msg {
		if m.book == nil {
			return nil
		}
		err := m.channel.Post(m.ctx, m.book.ID, text, m.identity.Identity())
		return commentPostedMsg{err: err}
	}
}

func (m *Model) waitForComments() tea.Cmd {
	return func() tea.Msg {
		return commentsUpdatedMsg(<-m.updates)
	}
}

func (m *Model) renderBookList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.bookList.View(), helpView)
}

func (m *Model) renderDetail() string {
	if m.book == nil {
		return styles.err.Render("No book selected\n\nPress esc to go back")
	}

	title := styles.title.Render(m.book.Title)
	info := fmt.Sprintf("by %s • %s • $%.2f • %.1f/5\n", m.book.Author, m.book.Category, m.book.Price, m.book.Rating)

	body := ""
	if m.book.Description != "" {
		body = shared.Truncate(m.book.Description, 400) + "\n"
	}

	thread := fmt.Sprintf("\nComments (%d)\n", len(m.thread))
	for _, comment := range m.thread {
		thread += fmt.Sprintf("  %s %s\n    %s\n",
			styles.ok.Render(comment.AuthorName),
			styles.help.Render(shared.RelativeTime(comment.CreatedAt)),
			comment.Text)
	}

	footer := ""
	if m.notice != "" {
		footer = styles.warn.Render(m.notice) + "\n"
	}

	if m.composing {
		footer += m.compose.View()
	} else {
		helpKeys := []key.Binding{m.keys.comment, m.keys.refresh, m.keys.back, m.keys.quit}
		footer += m.help.ShortHelpView(helpKeys)
	}

	return fmt.Sprintf("%s\n%s%s%s\n%s", title, info, body, thread, footer)
}
