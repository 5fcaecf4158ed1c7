package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/forPelevin/redub/internal/ports"
	"github.com/forPelevin/redub/internal/types"
)

const projectColumns = "id, name, status, processing_step, error_message, voice, avatar_config, zoom_config, cleaned_script, processed_video_key, created_at, updated_at"

var processingStatuses = []types.ProjectStatus{
	types.StatusCleaning,
	types.StatusCleaned,
	types.StatusGeneratingVoice,
	types.StatusGeneratedVoiceover,
	types.StatusProcessingVideo,
}

// CreateProject inserts p, assigning an id and timestamps when missing.
func (s *Store) CreateProject(ctx context.Context, p types.Project) (types.Project, error) {
	if strings.TrimSpace(p.Name) == "" {
		return types.Project{}, errors.New("create project: name is required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = types.StatusUploaded
	}
	avatar, err := json.Marshal(p.Avatar)
	if err != nil {
		return types.Project{}, fmt.Errorf("marshal avatar config: %w", err)
	}
	zoom, err := marshalZoom(p.Zoom)
	if err != nil {
		return types.Project{}, err
	}
	ts := now()
	_, err = s.exec(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.Name,
		p.Status,
		nullableString(p.ProcessingStep),
		nullableString(p.ErrorMessage),
		p.Voice,
		string(avatar),
		zoom,
		nullableString(p.CleanedScript),
		nullableString(p.ProcessedKey),
		ts,
		ts,
	)
	if err != nil {
		return types.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return s.GetProject(ctx, p.ID)
}

func (s *Store) GetProject(ctx context.Context, id string) (types.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Project{}, fmt.Errorf("project %s: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return types.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListProjects returns all projects, most recently updated first.
func (s *Store) ListProjects(ctx context.Context) ([]types.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []types.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, id string, u types.StatusUpdate) error {
	if !u.Status.Valid() {
		return fmt.Errorf("update status: unknown status %q", u.Status)
	}
	res, err := s.exec(ctx,
		`UPDATE projects
         SET status = ?,
             processing_step = CASE WHEN ? = '' THEN processing_step ELSE ? END,
             error_message = CASE WHEN ? = 1 THEN NULL WHEN ? = '' THEN error_message ELSE ? END,
             updated_at = ?
         WHERE id = ?`,
		u.Status,
		u.Step, u.Step,
		boolToInt(u.ClearMessage), u.Message, u.Message,
		now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return requireAffected(res, "project "+id)
}

// BeginRun claims a project for a pipeline run. Projects already in a
// processing status are refused with ErrRunInProgress.
func (s *Store) BeginRun(ctx context.Context, id string) error {
	args := []any{types.StatusCleaning, "Starting", now(), id}
	for _, st := range processingStatuses {
		args = append(args, st)
	}
	res, err := s.exec(ctx,
		`UPDATE projects
         SET status = ?, processing_step = ?, error_message = NULL, updated_at = ?
         WHERE id = ? AND status NOT IN (`+makePlaceholders(len(processingStatuses))+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("project %s: %w", id, ErrRunInProgress)
}

// ReclaimRun marks an abandoned run as failed so a new run can begin. It is
// a no-op for projects that are not in a processing status.
func (s *Store) ReclaimRun(ctx context.Context, id, reason string) (bool, error) {
	args := []any{types.StatusError, reason, now(), id}
	for _, st := range processingStatuses {
		args = append(args, st)
	}
	res, err := s.exec(ctx,
		`UPDATE projects SET status = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status IN (`+makePlaceholders(len(processingStatuses))+`)`,
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("reclaim run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reclaim run: %w", err)
	}
	return n > 0, nil
}

func (s *Store) SetZoomConfig(ctx context.Context, projectID string, cfg *types.ZoomConfig) error {
	zoom, err := marshalZoom(cfg)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx, `UPDATE projects SET zoom_config = ?, updated_at = ? WHERE id = ?`, zoom, now(), projectID)
	if err != nil {
		return fmt.Errorf("set zoom config: %w", err)
	}
	return requireAffected(res, "project "+projectID)
}

func (s *Store) SetAvatarConfig(ctx context.Context, projectID string, cfg types.AvatarConfig) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal avatar config: %w", err)
	}
	res, err := s.exec(ctx, `UPDATE projects SET avatar_config = ?, updated_at = ? WHERE id = ?`, string(b), now(), projectID)
	if err != nil {
		return fmt.Errorf("set avatar config: %w", err)
	}
	return requireAffected(res, "project "+projectID)
}

func (s *Store) SetProcessedVideo(ctx context.Context, projectID, key string) error {
	res, err := s.exec(ctx, `UPDATE projects SET processed_video_key = ?, updated_at = ? WHERE id = ?`, nullableString(key), now(), projectID)
	if err != nil {
		return fmt.Errorf("set processed video: %w", err)
	}
	return requireAffected(res, "project "+projectID)
}

// DeleteProject removes the project with its transcript and file records.
// Blobs referenced by those records are the caller's to delete.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin delete tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, q := range []string{
			`DELETE FROM project_files WHERE project_id = ?`,
			`DELETE FROM transcripts WHERE project_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("delete project %s: %w", id, err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete project %s: %w", id, err)
		}
		if err := requireAffected(res, "project "+id); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func scanProject(scanner interface{ Scan(dest ...any) error }) (types.Project, error) {
	var (
		p            types.Project
		status       string
		step         sql.NullString
		errMsg       sql.NullString
		avatarRaw    sql.NullString
		zoomRaw      sql.NullString
		script       sql.NullString
		processedKey sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&p.ID,
		&p.Name,
		&status,
		&step,
		&errMsg,
		&p.Voice,
		&avatarRaw,
		&zoomRaw,
		&script,
		&processedKey,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return types.Project{}, err
	}
	p.Status = types.ProjectStatus(status)
	p.ProcessingStep = step.String
	p.ErrorMessage = errMsg.String
	p.CleanedScript = script.String
	p.ProcessedKey = processedKey.String
	p.CreatedAt = parseTimeString(createdRaw)
	p.UpdatedAt = parseTimeString(updatedRaw)
	if avatarRaw.Valid && avatarRaw.String != "" {
		if err := json.Unmarshal([]byte(avatarRaw.String), &p.Avatar); err != nil {
			return types.Project{}, fmt.Errorf("decode avatar config: %w", err)
		}
	}
	if zoomRaw.Valid && zoomRaw.String != "" {
		var z types.ZoomConfig
		if err := json.Unmarshal([]byte(zoomRaw.String), &z); err != nil {
			return types.Project{}, fmt.Errorf("decode zoom config: %w", err)
		}
		p.Zoom = &z
	}
	return p, nil
}

func marshalZoom(cfg *types.ZoomConfig) (any, error) {
	if cfg == nil {
		return nil, nil
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal zoom config: %w", err)
	}
	return string(b), nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ports.ErrNotFound)
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
