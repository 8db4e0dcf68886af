package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mulyahr/timesheet-backend/internal/domain"
)

// AttachmentRepo is the Postgres implementation of domain.AttachmentRepository.
type AttachmentRepo struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepo creates a new AttachmentRepo.
func NewAttachmentRepo(pool *pgxpool.Pool) *AttachmentRepo {
	return &AttachmentRepo{pool: pool}
}

// Create inserts an attachment metadata row.
func (r *AttachmentRepo) Create(ctx context.Context, att *domain.Attachment) error {
	db := conn(ctx, r.pool)
	_, err := db.Exec(ctx, `
		INSERT INTO attachments (id, timesheet_id, filename, content_type, object_key, thumbnail_key, range_start, range_end, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		att.ID, att.TimesheetID, att.Filename, att.ContentType, att.ObjectKey,
		nullable(att.ThumbnailKey), att.RangeStart, att.RangeEnd, att.UploadedAt)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

// GetByID returns one attachment's metadata.
func (r *AttachmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	db := conn(ctx, r.pool)
	att, err := scanAttachment(db.QueryRow(ctx, `
		SELECT id, timesheet_id, filename, content_type, object_key, COALESCE(thumbnail_key, ''), range_start, range_end, uploaded_at
		FROM attachments WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, fmt.Errorf("%w: attachment %s", domain.ErrNotFound, id))
	}
	return att, nil
}

// ListByTimesheet returns a record's attachments ordered by covered range.
func (r *AttachmentRepo) ListByTimesheet(ctx context.Context, timesheetID string) ([]*domain.Attachment, error) {
	db := conn(ctx, r.pool)
	rows, err := db.Query(ctx, `
		SELECT id, timesheet_id, filename, content_type, object_key, COALESCE(thumbnail_key, ''), range_start, range_end, uploaded_at
		FROM attachments WHERE timesheet_id = $1 ORDER BY range_start`, timesheetID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Attachment
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out = append(out, att)
	}
	return out, rows.Err()
}

func scanAttachment(row rowScanner) (*domain.Attachment, error) {
	var att domain.Attachment
	err := row.Scan(&att.ID, &att.TimesheetID, &att.Filename, &att.ContentType,
		&att.ObjectKey, &att.ThumbnailKey, &att.RangeStart, &att.RangeEnd, &att.UploadedAt)
	if err != nil {
		return nil, err
	}
	return &att, nil
}

var _ domain.AttachmentRepository = (*AttachmentRepo)(nil)
