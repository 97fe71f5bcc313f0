package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bookhaven/haven/internal/models"
	"github.com/bookhaven/haven/internal/shared"
)

// maxHistoryEntries bounds the view history; older entries are pruned on insert.
const maxHistoryEntries = 50

// ViewHistoryRepository implements [models.Repository] for [models.ViewRecord] persistence.
type ViewHistoryRepository struct {
	db *sql.DB
}

// NewViewHistoryRepository creates a new [ViewHistoryRepository] with the given database connection
func NewViewHistoryRepository(db *sql.DB) *ViewHistoryRepository {
	return &ViewHistoryRepository{db: db}
}

// Create inserts a view record with generated ID and sequence, pruning older
// entries beyond the history cap. Reopening a book replaces its old entry so
// the history stays one row per book.
func (r *ViewHistoryRepository) Create(record *models.ViewRecord) error {
	sequence, err := NextSequence(r.db, "view_history")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	record.SetID(id)

	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if _, err := r.db.Exec("DELETE FROM view_history WHERE book_id = ?", record.BookID()); err != nil {
		return fmt.Errorf("failed to replace history entry: %w", err)
	}

	query := `
		INSERT INTO view_history (id, sequence, book_id, book_title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, record.BookID(), record.BookTitle(),
		record.CreatedAt(), record.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert view record: %w", err)
	}

	prune := `
		DELETE FROM view_history
		WHERE id NOT IN (SELECT id FROM view_history ORDER BY sequence DESC LIMIT ?)
	`
	if _, err := r.db.Exec(prune, maxHistoryEntries); err != nil {
		return fmt.Errorf("failed to prune view history: %w", err)
	}

	return nil
}

// Get retrieves a view record by ID
func (r *ViewHistoryRepository) Get(id string) (*models.ViewRecord, error) {
	query := `
		SELECT id, sequence, book_id, book_title, created_at, updated_at
		FROM view_history
		WHERE id = ?
	`

	record, err := scanViewRecord(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("view record not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query view record: %w", err)
	}

	return record, nil
}

// Update modifies an existing view record
func (r *ViewHistoryRepository) Update(record *models.ViewRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	record.SetUpdatedAt(now)

	query := `
		UPDATE view_history
		SET book_title = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, record.BookTitle(), now, record.ID())
	if err != nil {
		return fmt.Errorf("failed to update view record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("view record not found: %s", record.ID())
	}

	return nil
}

// Delete removes a view record by ID
func (r *ViewHistoryRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM view_history WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete view record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("view record not found: %s", id)
	}

	return nil
}

// List retrieves view records most recent first
func (r *ViewHistoryRepository) List(criteria map[string]any) ([]*models.ViewRecord, error) {
	query := `
		SELECT id, sequence, book_id, book_title, created_at, updated_at
		FROM view_history
	`

	args := []any{}

	if bookID, ok := criteria["book_id"].(string); ok && bookID != "" {
		query += " WHERE book_id = ?"
		args = append(args, bookID)
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query view history: %w", err)
	}
	defer rows.Close()

	var records []*models.ViewRecord
	for rows.Next() {
		record, err := scanViewRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan view record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

func scanViewRecord(row scanner) (*models.ViewRecord, error) {
	var (
		id        string
		sequence  int
		bookID    string
		bookTitle sql.NullString
		createdAt time.Time
		updatedAt time.Time
	)

	if err := row.Scan(&id, &sequence, &bookID, &bookTitle, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	record := models.NewViewRecord(sequence, bookID, bookTitle.String)
	record.SetID(id)
	record.SetUpdatedAt(updatedAt)

	return record, nil
}
