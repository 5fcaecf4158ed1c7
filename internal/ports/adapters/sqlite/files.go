package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/forPelevin/redub/internal/ports"
	"github.com/forPelevin/redub/internal/types"
)

// SaveFile records a stored file. A project keeps one file per type; saving
// again replaces the record.
func (s *Store) SaveFile(ctx context.Context, rec types.FileRecord) error {
	_, err := s.exec(ctx,
		`INSERT INTO project_files (project_id, file_type, storage_key, file_size, created_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(project_id, file_type) DO UPDATE SET
             storage_key = excluded.storage_key,
             file_size = excluded.file_size,
             created_at = excluded.created_at`,
		rec.ProjectID,
		rec.Type,
		rec.StorageKey,
		rec.Size,
		now(),
	)
	if err != nil {
		return fmt.Errorf("save file: %w", err)
	}
	return nil
}

func (s *Store) GetFile(ctx context.Context, projectID string, ft types.FileType) (types.FileRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT project_id, file_type, storage_key, file_size, created_at FROM project_files WHERE project_id = ? AND file_type = ?`,
		projectID, ft,
	)
	rec, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.FileRecord{}, fmt.Errorf("%s file of %s: %w", ft, projectID, ports.ErrNotFound)
	}
	if err != nil {
		return types.FileRecord{}, fmt.Errorf("get file: %w", err)
	}
	return rec, nil
}

func (s *Store) ListFiles(ctx context.Context, projectID string) ([]types.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_id, file_type, storage_key, file_size, created_at FROM project_files WHERE project_id = ? ORDER BY created_at`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []types.FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanFile(scanner interface{ Scan(dest ...any) error }) (types.FileRecord, error) {
	var (
		rec     types.FileRecord
		ft      string
		created string
	)
	if err := scanner.Scan(&rec.ProjectID, &ft, &rec.StorageKey, &rec.Size, &created); err != nil {
		return types.FileRecord{}, err
	}
	rec.Type = types.FileType(ft)
	rec.CreatedAt = parseTimeString(created)
	return rec, nil
}
