package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/dbx"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
)

const fileColumns = `id, user_id, name, type, parent_id, is_public, local_path, created_at`

// PostgresRepository implements the file catalog over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*models.File, error) {
	var (
		f         models.File
		typ       string
		localPath sql.NullString
	)
	if err := s.Scan(&f.ID, &f.UserID, &f.Name, &typ, &f.ParentID, &f.IsPublic, &localPath, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.Type = models.FileType(typ)
	f.LocalPath = localPath.String
	return &f, nil
}

// Create inserts a record. Folders are stored with a NULL local_path.
func (r *PostgresRepository) Create(ctx context.Context, nf *models.NewFile) (*models.File, error) {
	query := `
		INSERT INTO files (user_id, name, type, parent_id, is_public, local_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + fileColumns

	localPath := sql.NullString{String: nf.LocalPath, Valid: nf.LocalPath != ""}

	f, err := scanFile(r.db.QueryRowContext(ctx, query,
		nf.UserID, nf.Name, string(nf.Type), nf.ParentID, nf.IsPublic, localPath))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

// GetByID returns the record regardless of owner.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDAndUser returns the record only when it belongs to userID.
func (r *PostgresRepository) GetByIDAndUser(ctx context.Context, id, userID int64) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND user_id = $2`
	return r.getOne(ctx, query, id, userID)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.File, error) {
	f, err := scanFile(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

// ListByParent returns one page of userID's records under parentID in
// insertion order.
func (r *PostgresRepository) ListByParent(ctx context.Context, userID, parentID int64, limit, offset int) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE user_id = $1 AND parent_id = $2
		ORDER BY id
		LIMIT $3 OFFSET $4`

	rows, err := r.db.QueryContext(ctx, query, userID, parentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	result := make([]*models.File, 0, limit)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SetPublic updates is_public of a record owned by userID and returns the
// updated row. Records of other users are reported as not found.
func (r *PostgresRepository) SetPublic(ctx context.Context, id, userID int64, isPublic bool) (*models.File, error) {
	query := `UPDATE files SET is_public = $3
		WHERE id = $1 AND user_id = $2
		RETURNING ` + fileColumns

	return r.getOne(ctx, query, id, userID, isPublic)
}

// Count returns the number of catalog records.
func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
