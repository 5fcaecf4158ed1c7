package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/forPelevin/redub/internal/ports"
	"github.com/forPelevin/redub/internal/types"
)

func (s *Store) SaveTranscript(ctx context.Context, projectID string, tr types.Transcript) error {
	segments, err := json.Marshal(tr.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	var words any
	if len(tr.Words) > 0 {
		b, err := json.Marshal(tr.Words)
		if err != nil {
			return fmt.Errorf("marshal words: %w", err)
		}
		words = string(b)
	}
	_, err = s.exec(ctx,
		`INSERT INTO transcripts (project_id, text, language, segments_json, words_json, cleaned_json, updated_at)
         VALUES (?, ?, ?, ?, ?, NULL, ?)
         ON CONFLICT(project_id) DO UPDATE SET
             text = excluded.text,
             language = excluded.language,
             segments_json = excluded.segments_json,
             words_json = excluded.words_json,
             cleaned_json = NULL,
             updated_at = excluded.updated_at`,
		projectID,
		tr.Text,
		nullableString(tr.Language),
		string(segments),
		words,
		now(),
	)
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

func (s *Store) GetTranscript(ctx context.Context, projectID string) (types.Transcript, error) {
	var (
		tr       types.Transcript
		language sql.NullString
		segments string
		words    sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT text, language, segments_json, words_json FROM transcripts WHERE project_id = ?`,
		projectID,
	).Scan(&tr.Text, &language, &segments, &words)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Transcript{}, fmt.Errorf("transcript %s: %w", projectID, ports.ErrNotFound)
	}
	if err != nil {
		return types.Transcript{}, fmt.Errorf("get transcript: %w", err)
	}
	tr.Language = language.String
	if err := json.Unmarshal([]byte(segments), &tr.Segments); err != nil {
		return types.Transcript{}, fmt.Errorf("decode segments: %w", err)
	}
	if words.Valid && words.String != "" {
		if err := json.Unmarshal([]byte(words.String), &tr.Words); err != nil {
			return types.Transcript{}, fmt.Errorf("decode words: %w", err)
		}
	}
	return tr, nil
}

// GetCleanedSpans returns the spans stored by the last cleaning stage.
func (s *Store) GetCleanedSpans(ctx context.Context, projectID string) ([]types.CleanedSpan, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT cleaned_json FROM transcripts WHERE project_id = ?`, projectID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !raw.Valid) {
		return nil, fmt.Errorf("cleaned transcript %s: %w", projectID, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get cleaned spans: %w", err)
	}
	var spans []types.CleanedSpan
	if err := json.Unmarshal([]byte(raw.String), &spans); err != nil {
		return nil, fmt.Errorf("decode cleaned spans: %w", err)
	}
	return spans, nil
}

// SaveCleanedTranscript stores the cleaned spans next to the transcript
// and the joined script on the project, in one transaction.
func (s *Store) SaveCleanedTranscript(ctx context.Context, projectID string, spans []types.CleanedSpan, script string) error {
	b, err := json.Marshal(spans)
	if err != nil {
		return fmt.Errorf("marshal cleaned spans: %w", err)
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin cleaned tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		ts := now()
		res, err := tx.ExecContext(ctx, `UPDATE transcripts SET cleaned_json = ?, updated_at = ? WHERE project_id = ?`, string(b), ts, projectID)
		if err != nil {
			return fmt.Errorf("save cleaned spans: %w", err)
		}
		if err := requireAffected(res, "transcript "+projectID); err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx, `UPDATE projects SET cleaned_script = ?, updated_at = ? WHERE id = ?`, script, ts, projectID)
		if err != nil {
			return fmt.Errorf("save cleaned script: %w", err)
		}
		if err := requireAffected(res, "project "+projectID); err != nil {
			return err
		}
		return tx.Commit()
	})
}
