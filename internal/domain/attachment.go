package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Attachment is an uploaded file bound to a timesheet, covering a date range
// inside the record's week. File bytes live in object storage; this row holds
// the metadata and object keys.
type Attachment struct {
	ID           uuid.UUID `json:"id"`
	TimesheetID  string    `json:"timesheetId"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"contentType"`
	ObjectKey    string    `json:"-"`
	ThumbnailKey string    `json:"-"`
	RangeStart   time.Time `json:"rangeStart"`
	RangeEnd     time.Time `json:"rangeEnd"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Overlaps reports whether the attachment's date range intersects [start, end].
func (a *Attachment) Overlaps(start, end time.Time) bool {
	return !a.RangeEnd.Before(start) && !a.RangeStart.After(end)
}

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, att *Attachment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Attachment, error)
	ListByTimesheet(ctx context.Context, timesheetID string) ([]*Attachment, error)
}

// AttachmentStore stores attachment content by object key.
type AttachmentStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, string, error)
}
