// package formatter provides functions to export catalog data to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bookhaven/haven/internal/models"
	"github.com/bookhaven/haven/internal/shared"
)

// ExportToCSV converts a book list to CSV format with columns: ID, Title, Author, Category, Price, Rating, Owner
func ExportToCSV(books []models.Book) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Author", "Category", "Price", "Rating", "Owner"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, book := range books {
		record := []string{
			book.ID,
			book.Title,
			book.Author,
			book.Category,
			strconv.FormatFloat(book.Price, 'f', 2, 64),
			strconv.FormatFloat(book.Rating, 'f', 1, 64),
			book.OwnerName,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a book and its comment thread to Markdown format with optional cover image
func ExportToMarkdown(book models.Book, comments []models.Comment, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", book.Title))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	buf.WriteString(fmt.Sprintf("**Author**: %s\n", book.Author))
	buf.WriteString(fmt.Sprintf("**Category**: %s\n", book.Category))
	buf.WriteString(fmt.Sprintf("**Price**: $%.2f\n", book.Price))
	buf.WriteString(fmt.Sprintf("**Rating**: %.1f/5\n", book.Rating))
	if book.OwnerName != "" {
		buf.WriteString(fmt.Sprintf("**Listed by**: %s\n", book.OwnerName))
	}
	buf.WriteString("\n")

	if book.Description != "" {
		buf.WriteString(fmt.Sprintf("%s\n\n", book.Description))
	}

	buf.WriteString(fmt.Sprintf("## Comments (%d)\n\n", len(comments)))
	for _, comment := range comments {
		when := ""
		if !comment.CreatedAt.IsZero() {
			when = fmt.Sprintf(" (%s)", comment.CreatedAt.Format("2006-01-02 15:04"))
		}
		buf.WriteString(fmt.Sprintf("- **%s**%s: %s\n", comment.AuthorName, when, comment.Text))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a book and its comment thread to plain text format
func ExportToText(book models.Book, comments []models.Comment) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Title: %s\n", book.Title))
	buf.WriteString(fmt.Sprintf("Author: %s\n", book.Author))
	buf.WriteString(fmt.Sprintf("Category: %s\n", book.Category))
	buf.WriteString(fmt.Sprintf("Price: %.2f\n", book.Price))
	if book.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", book.Description))
	}
	buf.WriteString(fmt.Sprintf("Comments: %d\n\n", len(comments)))

	for i, comment := range comments {
		buf.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, comment.AuthorName, comment.Text))
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToMetadataJSON generates a JSON representation of a book's metadata (without its comment thread)
func ToMetadataJSON(book models.Book) ([]byte, error) {
	return shared.MarshalJSON(book, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	BooksFile    string
	MetadataFile string
}

// catalogMetadata summarizes a catalog CSV export.
type catalogMetadata struct {
	Count      int       `json:"count"`
	ExportedAt time.Time `json:"exported_at"`
}

// WriteCSVExport exports a book list to CSV format with an accompanying summary JSON file.
//
// Creates {base}_books.csv and {base}_metadata.json
func WriteCSVExport(books []models.Book, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = "catalog"
	}

	csvData, err := ExportToCSV(books)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	booksFile := baseFilepath + "_books.csv"
	if err := os.WriteFile(booksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := shared.MarshalJSON(catalogMetadata{Count: len(books), ExportedAt: time.Now().UTC()}, true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		BooksFile:    booksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a book and its comment thread to Markdown format in a dedicated directory.
//
// Directory name defaults to the book ID.
// The imageURL parameter is optional - if provided, attempts to download the cover image.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(book models.Book, comments []models.Comment, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = book.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := fmt.Sprintf("%s/%s", outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(book, comments, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := fmt.Sprintf("%s/README.md", outputDir)
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a book and its comment thread to plain text format.
//
// Defaults to {book.ID}_thread.txt as the filename.
func WriteTextExport(book models.Book, comments []models.Comment, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_thread.txt", book.ID)
	}

	textData, err := ExportToText(book, comments)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}

// WriteSnapshotManifest writes a JSON manifest describing a snapshot run.
func WriteSnapshotManifest(result any, path string) error {
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
