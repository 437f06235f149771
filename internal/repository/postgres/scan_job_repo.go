package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"personashield/internal/domain"
	"personashield/internal/port"
)

type scanJobRepo struct {
	db *sqlx.DB
}

// NewScanJobRepo creates a new PostgreSQL-backed ScanJobRepository.
func NewScanJobRepo(db *sqlx.DB) port.ScanJobRepository {
	return &scanJobRepo{db: db}
}

func (r *scanJobRepo) Create(ctx context.Context, rec *domain.ScanJobRecord) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	query := `INSERT INTO scan_jobs
		(id, request_id, filename, model, status, output_path, object_key,
		 error_step, error_code, error_message, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.RequestID, rec.Filename, rec.Model, rec.Status, rec.OutputPath, rec.ObjectKey,
		rec.ErrorStep, rec.ErrorCode, rec.ErrorMessage, rec.CompletedAt, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("scanJobRepo.Create: %w", err)
	}
	return nil
}

func (r *scanJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScanJobRecord, error) {
	var rec domain.ScanJobRecord
	err := r.db.GetContext(ctx, &rec, "SELECT * FROM scan_jobs WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrScanJobNotFound
		}
		return nil, fmt.Errorf("scanJobRepo.GetByID: %w", err)
	}
	return &rec, nil
}

func (r *scanJobRepo) ListRecent(ctx context.Context, offset, limit int) ([]domain.ScanJobRecord, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM scan_jobs"); err != nil {
		return nil, 0, fmt.Errorf("scanJobRepo.ListRecent count: %w", err)
	}

	var recs []domain.ScanJobRecord
	err := r.db.SelectContext(ctx, &recs,
		"SELECT * FROM scan_jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("scanJobRepo.ListRecent: %w", err)
	}
	return recs, total, nil
}
