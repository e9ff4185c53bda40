package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/types"
)

// ErrNotFound is wrapped by every not-found error a Store returns.
var ErrNotFound = stderrors.New("application not found")

// Store persists application records. Implementations are safe for
// concurrent use; updates to one id are atomic and last-write-wins.
type Store interface {
	Create(ctx context.Context, app NewApplication) (*types.ApplicationRecord, error)
	Get(ctx context.Context, id string) (*types.ApplicationRecord, error)
	Update(ctx context.Context, id string, update ResultUpdate) (*types.ApplicationRecord, error)
	Delete(ctx context.Context, id string) (bool, error)
	Close() error
}

// NewApplication holds the fields that are fixed when a record is created.
type NewApplication struct {
	Job        types.JobContext
	ResumeText string
	Filename   string
}

// ResultUpdate carries generation results. Each non-nil group replaces all
// of its fields together; the resume text and job fields cannot be changed.
type ResultUpdate struct {
	OriginalAnalysis *types.ATSAnalysis
	Optimization     *OptimizationOutcome
}

// OptimizationOutcome is the persisted part of a successful optimization.
type OptimizationOutcome struct {
	OptimizedResume   string
	CoverLetter       string
	OptimizedATSScore int
}

// IsEmpty reports whether the update changes nothing.
func (u ResultUpdate) IsEmpty() bool {
	return u.OriginalAnalysis == nil && u.Optimization == nil
}

func notFound(id string) error {
	return errors.NewNotFoundError(errors.ErrCodeRecordNotFound, "Job application not found", ErrNotFound).
		WithContext("id", id)
}

func storageError(op string, err error) error {
	return errors.NewIOError(errors.ErrCodeStorageFailed, "Failed to access application storage", err).
		WithContext("operation", op)
}

// applyUpdate mutates rec in place.
func applyUpdate(rec *types.ApplicationRecord, update ResultUpdate, now time.Time) {
	if a := update.OriginalAnalysis; a != nil {
		clone := a.Clone()
		score := clone.Score
		rec.OriginalATSScore = &score
		rec.MatchedKeywords = clone.MatchedKeywords
		rec.MissingKeywords = clone.MissingKeywords
		rec.Recommendations = clone.Recommendations
	}
	if o := update.Optimization; o != nil {
		resume, letter, score := o.OptimizedResume, o.CoverLetter, o.OptimizedATSScore
		rec.OptimizedResume = &resume
		rec.CoverLetter = &letter
		rec.OptimizedATSScore = &score
	}
	rec.UpdatedAt = now
}

// Open creates the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, logger *errors.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		logger.Info("Using in-memory application store")
		return NewMemoryStore(), nil
	case "postgres":
		db, err := Connect(ctx, cfg.DatabaseURL, Options{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
			PingTimeout:     cfg.PingTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := RunMigrations(ctx, db); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
			logger.Info("Database migrations applied")
		}
		return NewPostgresStore(db), nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unknown storage driver: %s", cfg.Driver), nil)
	}
}
