package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resumeforge/internal/types"
)

const recordColumns = `id, company_name, role_title, job_description, original_resume_text, original_resume_filename,
	optimized_resume, cover_letter, original_ats_score, optimized_ats_score,
	matched_keywords, missing_keywords, recommendations, created_at, updated_at`

// PostgresStore persists records in the job_applications table.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *PostgresStore) Create(ctx context.Context, app NewApplication) (*types.ApplicationRecord, error) {
	now := s.now()
	rec := &types.ApplicationRecord{
		ID:                     uuid.NewString(),
		CompanyName:            app.Job.CompanyName,
		RoleTitle:              app.Job.RoleTitle,
		JobDescription:         app.Job.JobDescription,
		OriginalResumeText:     app.ResumeText,
		OriginalResumeFilename: app.Filename,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_applications (id, company_name, role_title, job_description,
			original_resume_text, original_resume_filename, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.CompanyName, rec.RoleTitle, rec.JobDescription,
		rec.OriginalResumeText, rec.OriginalResumeFilename, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return nil, storageError("create", err)
	}
	return rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*types.ApplicationRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(id)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM job_applications WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, storageError("get", err)
	}
	return rec, nil
}

// Update applies the update in a single statement so concurrent writers to
// the same id never interleave field groups.
func (s *PostgresStore) Update(ctx context.Context, id string, update ResultUpdate) (*types.ApplicationRecord, error) {
	if update.IsEmpty() {
		return s.Get(ctx, id)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(id)
	}

	query, args, err := buildUpdate(id, update, s.now())
	if err != nil {
		return nil, storageError("update", err)
	}
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, storageError("update", err)
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM job_applications WHERE id = $1`, id)
	if err != nil {
		return false, storageError("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageError("delete", err)
	}
	return n > 0, nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func buildUpdate(id string, update ResultUpdate, now time.Time) (string, []any, error) {
	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if a := update.OriginalAnalysis; a != nil {
		matched, err := marshalJSON(a.MatchedKeywords)
		if err != nil {
			return "", nil, err
		}
		missing, err := marshalJSON(a.MissingKeywords)
		if err != nil {
			return "", nil, err
		}
		recs, err := marshalJSON(a.Recommendations)
		if err != nil {
			return "", nil, err
		}
		add("original_ats_score", a.Score)
		add("matched_keywords", matched)
		add("missing_keywords", missing)
		add("recommendations", recs)
	}
	if o := update.Optimization; o != nil {
		add("optimized_resume", o.OptimizedResume)
		add("cover_letter", o.CoverLetter)
		add("optimized_ats_score", o.OptimizedATSScore)
	}
	add("updated_at", now)

	args = append(args, id)
	query := fmt.Sprintf("UPDATE job_applications SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), recordColumns)
	return query, args, nil
}

// marshalJSON encodes nil slices as an empty JSON array.
func marshalJSON[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*types.ApplicationRecord, error) {
	var (
		rec                             types.ApplicationRecord
		optimizedResume, coverLetter    sql.NullString
		originalScore, optimizedScore   sql.NullInt64
		matchedRaw, missingRaw, recsRaw []byte
	)
	if err := row.Scan(
		&rec.ID, &rec.CompanyName, &rec.RoleTitle, &rec.JobDescription,
		&rec.OriginalResumeText, &rec.OriginalResumeFilename,
		&optimizedResume, &coverLetter, &originalScore, &optimizedScore,
		&matchedRaw, &missingRaw, &recsRaw, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if optimizedResume.Valid {
		v := optimizedResume.String
		rec.OptimizedResume = &v
	}
	if coverLetter.Valid {
		v := coverLetter.String
		rec.CoverLetter = &v
	}
	if originalScore.Valid {
		v := int(originalScore.Int64)
		rec.OriginalATSScore = &v
	}
	if optimizedScore.Valid {
		v := int(optimizedScore.Int64)
		rec.OptimizedATSScore = &v
	}
	if err := unmarshalJSON(matchedRaw, &rec.MatchedKeywords); err != nil {
		return nil, fmt.Errorf("decode matched_keywords: %w", err)
	}
	if err := unmarshalJSON(missingRaw, &rec.MissingKeywords); err != nil {
		return nil, fmt.Errorf("decode missing_keywords: %w", err)
	}
	if err := unmarshalJSON(recsRaw, &rec.Recommendations); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

func unmarshalJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
