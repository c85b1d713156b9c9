package store

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	SaveVoice(ctx context.Context, v *Voice) error
	GetVoice(ctx context.Context, id string) (*Voice, error)
	ListVoices(ctx context.Context) ([]*Voice, error)
	DeleteVoice(ctx context.Context, id string) error

	SaveModel(ctx context.Context, m *Model) error
	GetModel(ctx context.Context, id string) (*Model, error)
	ListModels(ctx context.Context) ([]*Model, error)
	ListCompletedModels(ctx context.Context) ([]*Model, error)

	UpsertJob(ctx context.Context, j *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) SaveVoice(ctx context.Context, v *Voice) error {
	created := v.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO voices (id, display_name, location, category, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			location = excluded.location,
			category = excluded.category
	`, v.ID, v.DisplayName, nullString(v.Location), v.Category, created.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetVoice(ctx context.Context, id string) (*Voice, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, display_name, location, category, created_at
		FROM voices WHERE id = ?
	`, id)

	var v Voice
	var location sql.NullString
	var createdAt string
	err := row.Scan(&v.ID, &v.DisplayName, &location, &v.Category, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v.Location = location.String
	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &v, nil
}

func (r *SQLiteRepository) ListVoices(ctx context.Context) ([]*Voice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, display_name, location, category, created_at
		FROM voices ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var voices []*Voice
	for rows.Next() {
		var v Voice
		var location sql.NullString
		var createdAt string
		if err := rows.Scan(&v.ID, &v.DisplayName, &location, &v.Category, &createdAt); err != nil {
			return nil, err
		}
		v.Location = location.String
		v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		voices = append(voices, &v)
	}
	return voices, rows.Err()
}

func (r *SQLiteRepository) DeleteVoice(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM voices WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) SaveModel(ctx context.Context, m *Model) error {
	now := time.Now().UTC()
	created := m.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO models (id, name, state, progress, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			state = excluded.state,
			progress = excluded.progress,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, m.ID, m.Name, m.State, m.Progress, nullString(m.Error),
		created.Format(time.RFC3339), now.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetModel(ctx context.Context, id string) (*Model, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, state, progress, error, created_at, updated_at
		FROM models WHERE id = ?
	`, id)
	return scanModel(row)
}

func scanModel(row *sql.Row) (*Model, error) {
	var m Model
	var errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&m.ID, &m.Name, &m.State, &m.Progress, &errMsg, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Error = errMsg.String
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &m, nil
}

func (r *SQLiteRepository) ListModels(ctx context.Context) ([]*Model, error) {
	return r.listModels(ctx, `
		SELECT id, name, state, progress, error, created_at, updated_at
		FROM models ORDER BY created_at DESC
	`)
}

func (r *SQLiteRepository) ListCompletedModels(ctx context.Context) ([]*Model, error) {
	return r.listModels(ctx, `
		SELECT id, name, state, progress, error, created_at, updated_at
		FROM models WHERE state = 'completed' ORDER BY created_at DESC
	`)
}

func (r *SQLiteRepository) listModels(ctx context.Context, query string) ([]*Model, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []*Model
	for rows.Next() {
		var m Model
		var errMsg sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&m.ID, &m.Name, &m.State, &m.Progress, &errMsg, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		m.Error = errMsg.String
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		models = append(models, &m)
	}
	return models, rows.Err()
}

func (r *SQLiteRepository) UpsertJob(ctx context.Context, j *Job) error {
	now := time.Now().UTC()
	created := j.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, mode, status, progress, video_path, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			video_path = excluded.video_path,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, j.ID, j.Mode, j.Status, j.Progress, nullString(j.VideoPath), nullString(j.Error),
		created.Format(time.RFC3339), now.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, mode, status, progress, video_path, error, created_at, updated_at
		FROM jobs WHERE id = ?
	`, id)

	var j Job
	var videoPath, errMsg sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&j.ID, &j.Mode, &j.Status, &j.Progress, &videoPath, &errMsg, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	j.VideoPath = videoPath.String
	j.Error = errMsg.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, mode, status, progress, video_path, error, created_at, updated_at
		FROM jobs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		var j Job
		var videoPath, errMsg sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&j.ID, &j.Mode, &j.Status, &j.Progress, &videoPath, &errMsg, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		j.VideoPath = videoPath.String
		j.Error = errMsg.String
		j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
