package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"resumeforge/internal/errors"
	"resumeforge/internal/types"
)

const testID = "6f1c2d9e-8a41-4c36-9b1f-2e7d5a0c3b11"

var columnNames = []string{
	"id", "company_name", "role_title", "job_description", "original_resume_text", "original_resume_filename",
	"optimized_resume", "cover_letter", "original_ats_score", "optimized_ats_score",
	"matched_keywords", "missing_keywords", "recommendations", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStoreCreate(t *testing.T) {
	s, mock := newMockStore(t)
	app := sampleApplication()

	mock.ExpectExec("INSERT INTO job_applications").
		WithArgs(
			sqlmock.AnyArg(), // id
			app.Job.CompanyName,
			app.Job.RoleTitle,
			app.Job.JobDescription,
			app.ResumeText,
			app.Filename,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec, err := s.Create(context.Background(), app)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID == "" || rec.CompanyName != "Acme" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPostgresStoreCreateFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO job_applications").WillReturnError(stderrors.New("connection reset"))

	_, err := s.Create(context.Background(), sampleApplication())
	if !errors.HasCode(err, errors.ErrCodeStorageFailed) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestPostgresStoreGet(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(columnNames).AddRow(
		testID, "Acme", "Backend Engineer", "jd", "resume", "resume.pdf",
		"optimized", "letter", int64(61), int64(84),
		[]byte(`["Go"]`), []byte(`["Kafka"]`), []byte(`[{"type":"add","title":"Kafka","description":"Add Kafka"}]`),
		created, created.Add(time.Minute),
	)
	mock.ExpectQuery("SELECT (.+) FROM job_applications WHERE id").
		WithArgs(testID).
		WillReturnRows(rows)

	rec, err := s.Get(context.Background(), testID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.OptimizedResume == nil || *rec.OptimizedResume != "optimized" {
		t.Errorf("optimized resume = %v", rec.OptimizedResume)
	}
	if rec.OriginalATSScore == nil || *rec.OriginalATSScore != 61 {
		t.Errorf("original score = %v", rec.OriginalATSScore)
	}
	want := types.ATSAnalysis{
		Score:           61,
		MatchedKeywords: []string{"Go"},
		MissingKeywords: []string{"Kafka"},
		Recommendations: []types.Recommendation{{Type: "add", Title: "Kafka", Description: "Add Kafka"}},
	}
	got := rec.OriginalAnalysis()
	if got.Score != want.Score || got.MatchedKeywords[0] != "Go" || got.MissingKeywords[0] != "Kafka" ||
		got.Recommendations[0] != want.Recommendations[0] {
		t.Errorf("analysis = %+v, want %+v", got, want)
	}
	if !rec.UpdatedAt.Equal(created.Add(time.Minute)) {
		t.Errorf("updated_at = %v", rec.UpdatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPostgresStoreGetNullColumns(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(columnNames).AddRow(
		testID, "Acme", "Backend Engineer", "jd", "resume", "",
		nil, nil, nil, nil, nil, nil, nil, now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM job_applications WHERE id").WithArgs(testID).WillReturnRows(rows)

	rec, err := s.Get(context.Background(), testID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.OptimizedResume != nil || rec.CoverLetter != nil || rec.OriginalATSScore != nil {
		t.Errorf("expected absent optional fields: %+v", rec)
	}
	if a := rec.OriginalAnalysis(); a.Score != 0 || len(a.MatchedKeywords) != 0 {
		t.Errorf("expected zero analysis, got %+v", a)
	}
}

func TestPostgresStoreGetNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM job_applications WHERE id").
		WithArgs(testID).
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), testID)
	if !stderrors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// malformed ids never reach the database
	_, err = s.Get(context.Background(), "not-a-uuid")
	if !stderrors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPostgresStoreUpdateAnalysis(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	rows := sqlmock.NewRows(columnNames).AddRow(
		testID, "Acme", "Backend Engineer", "jd", "resume", "resume.pdf",
		nil, nil, int64(72), nil,
		[]byte(`["Go"]`), []byte(`[]`), []byte(`[]`), now, now,
	)
	mock.ExpectQuery("UPDATE job_applications SET original_ats_score = \\$1, matched_keywords = \\$2, missing_keywords = \\$3, recommendations = \\$4, updated_at = \\$5 WHERE id = \\$6 RETURNING").
		WithArgs(72, `["Go"]`, `[]`, `[]`, now, testID).
		WillReturnRows(rows)

	rec, err := s.Update(context.Background(), testID, ResultUpdate{OriginalAnalysis: &types.ATSAnalysis{
		Score:           72,
		MatchedKeywords: []string{"Go"},
	}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if *rec.OriginalATSScore != 72 {
		t.Errorf("score = %d", *rec.OriginalATSScore)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPostgresStoreUpdateOptimization(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(columnNames).AddRow(
		testID, "Acme", "Backend Engineer", "jd", "resume", "resume.pdf",
		"new resume", "letter", nil, int64(90),
		nil, nil, nil, now, now,
	)
	mock.ExpectQuery("UPDATE job_applications SET optimized_resume = \\$1, cover_letter = \\$2, optimized_ats_score = \\$3, updated_at = \\$4 WHERE id = \\$5").
		WithArgs("new resume", "letter", 90, sqlmock.AnyArg(), testID).
		WillReturnRows(rows)

	rec, err := s.Update(context.Background(), testID, ResultUpdate{Optimization: &OptimizationOutcome{
		OptimizedResume:   "new resume",
		CoverLetter:       "letter",
		OptimizedATSScore: 90,
	}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if *rec.CoverLetter != "letter" || *rec.OptimizedATSScore != 90 {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestPostgresStoreUpdateNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("UPDATE job_applications").WillReturnError(sql.ErrNoRows)

	_, err := s.Update(context.Background(), testID, ResultUpdate{Optimization: &OptimizationOutcome{}})
	if !errors.IsType(err, errors.ErrorTypeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgresStoreDelete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"existing", 1, true},
		{"missing", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectExec("DELETE FROM job_applications WHERE id").
				WithArgs(testID).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := s.Delete(context.Background(), testID)
			if err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if got != tt.want {
				t.Errorf("Delete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildUpdateEncodesNilSlices(t *testing.T) {
	_, args, err := buildUpdate(testID, ResultUpdate{OriginalAnalysis: &types.ATSAnalysis{Score: 10}}, time.Now())
	if err != nil {
		t.Fatalf("buildUpdate: %v", err)
	}
	for i, want := range []string{"[]", "[]", "[]"} {
		if args[i+1] != want {
			t.Errorf("arg %d = %v, want %s", i+1, args[i+1], want)
		}
	}
}
