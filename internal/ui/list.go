package ui

import (
	"fmt"

	"github.com/bookhaven/haven/internal/models"
	"github.com/charmbracelet/bubbles/list"
)

var _ list.Item = bookItem{}

// bookItem wraps [models.Book] to implement [list.Item].
type bookItem struct {
	book models.Book
}

func (i bookItem) FilterValue() string { return i.book.Title }
func (i bookItem) Title() string       { return i.book.Title }
func (i bookItem) Description() string {
	desc := i.book.Author
	if i.book.Category != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.book.Category)
	}
	return fmt.Sprintf("%s • $%.2f", desc, i.book.Price)
}
