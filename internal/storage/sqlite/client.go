package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/medfolio/backend/internal/search"
	"github.com/medfolio/backend/internal/storage/models"
	"github.com/medfolio/backend/pkg/logger"
	"github.com/medfolio/backend/pkg/retry"
)

var ErrNotFound = errors.New("document not found")

type Client struct {
	db          *sql.DB
	retryConfig retry.Config
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	retryConfig := retry.Config{
		MaxAttempts:  3,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Logger:       logger.GetLogger(),
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db, retryConfig: retryConfig}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		display_name TEXT NOT NULL,
		filename TEXT,
		category TEXT,
		notes TEXT,
		upload_date INTEGER NOT NULL,
		status TEXT NOT NULL,
		search_summary TEXT,
		searchable_text TEXT,
		structured_data TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id);
	CREATE INDEX IF NOT EXISTS idx_documents_owner_category ON documents(owner_id, category);
	CREATE INDEX IF NOT EXISTS idx_documents_upload ON documents(upload_date);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// FetchDocuments returns the owner's documents newest-first, optionally
// pre-filtered by category and limited. Implements search.DocumentStore.
func (c *Client) FetchDocuments(ctx context.Context, ownerID string, opts search.FetchOptions) ([]models.DocumentRecord, error) {
	query := `
		SELECT id, owner_id, display_name, filename, category, notes,
		       upload_date, status, search_summary, searchable_text,
		       structured_data, created_at, updated_at
		FROM documents
		WHERE owner_id = ?`
	args := []interface{}{ownerID}

	if opts.Category != "" {
		query += " AND category = ?"
		args = append(args, opts.Category)
	}
	query += " ORDER BY upload_date DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	return retry.DoWithResult(ctx, c.retryConfig, func() ([]models.DocumentRecord, error) {
		rows, err := c.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch documents: %w", err)
		}
		defer rows.Close()

		var docs []models.DocumentRecord
		for rows.Next() {
			doc, err := scanDocument(rows)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to iterate documents: %w", err)
		}
		return docs, nil
	})
}

func (c *Client) GetDocument(ctx context.Context, id, ownerID string) (*models.DocumentRecord, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, owner_id, display_name, filename, category, notes,
		       upload_date, status, search_summary, searchable_text,
		       structured_data, created_at, updated_at
		FROM documents
		WHERE id = ? AND owner_id = ?`, id, ownerID)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) InsertDocument(ctx context.Context, doc *models.DocumentRecord) error {
	doc.ApplyDefaults(time.Now())
	if err := doc.Validate(); err != nil {
		return err
	}

	structured, err := marshalStructuredData(doc.Analysis.StructuredData)
	if err != nil {
		return err
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO documents (id, owner_id, display_name, filename, category, notes,
			upload_date, status, search_summary, searchable_text, structured_data,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID,
		doc.OwnerID,
		doc.DisplayName,
		doc.Filename,
		doc.Category,
		doc.Notes,
		doc.UploadDate.Unix(),
		doc.Status,
		doc.Analysis.SearchSummary,
		doc.Analysis.SearchableText,
		structured,
		doc.CreatedAt.Unix(),
		doc.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// UpdateDocument applies a patch to an immutable snapshot of the stored
// record and persists the result, returning the new record.
func (c *Client) UpdateDocument(ctx context.Context, id, ownerID string, patch models.DocumentPatch) (*models.DocumentRecord, error) {
	current, err := c.GetDocument(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	updated := models.ApplyPatch(*current, patch, time.Now())
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	structured, err := marshalStructuredData(updated.Analysis.StructuredData)
	if err != nil {
		return nil, err
	}

	_, err = c.db.ExecContext(ctx, `
		UPDATE documents
		SET display_name = ?, category = ?, notes = ?, status = ?,
		    search_summary = ?, searchable_text = ?, structured_data = ?,
		    updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		updated.DisplayName,
		updated.Category,
		updated.Notes,
		updated.Status,
		updated.Analysis.SearchSummary,
		updated.Analysis.SearchableText,
		structured,
		updated.UpdatedAt.Unix(),
		id,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
	return &updated, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id, ownerID string) error {
	result, err := c.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (models.DocumentRecord, error) {
	var doc models.DocumentRecord
	var filename, category, notes, searchSummary, searchableText, structured sql.NullString
	var uploadDate, createdAt, updatedAt int64

	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.DisplayName,
		&filename,
		&category,
		&notes,
		&uploadDate,
		&doc.Status,
		&searchSummary,
		&searchableText,
		&structured,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return doc, err
	}

	doc.Filename = filename.String
	doc.Category = category.String
	doc.Notes = notes.String
	doc.UploadDate = time.Unix(uploadDate, 0)
	doc.CreatedAt = time.Unix(createdAt, 0)
	doc.UpdatedAt = time.Unix(updatedAt, 0)
	doc.Analysis.SearchSummary = searchSummary.String
	doc.Analysis.SearchableText = searchableText.String

	if structured.String != "" {
		if err := json.Unmarshal([]byte(structured.String), &doc.Analysis.StructuredData); err != nil {
			return doc, fmt.Errorf("failed to decode structured data for %s: %w", doc.ID, err)
		}
	}
	return doc, nil
}

func marshalStructuredData(data map[string]interface{}) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode structured data: %w", err)
	}
	return string(b), nil
}
