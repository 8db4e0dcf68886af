package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/mulyahr/timesheet-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	// maxAttachmentSize caps uploads at 10 MB.
	maxAttachmentSize = 10 << 20

	thumbnailWidth  = 200
	thumbnailHeight = 200
)

// AttachmentService handles supporting-document uploads for timesheets:
// validation against the record's week, canonical renaming, object storage,
// and thumbnail generation for images.
type AttachmentService struct {
	attachments domain.AttachmentRepository
	timesheets  domain.TimesheetRepository
	store       domain.AttachmentStore
}

// NewAttachmentService creates a new AttachmentService.
func NewAttachmentService(attachments domain.AttachmentRepository, timesheets domain.TimesheetRepository, store domain.AttachmentStore) *AttachmentService {
	return &AttachmentService{attachments: attachments, timesheets: timesheets, store: store}
}

// UploadRequest carries one attachment upload.
type UploadRequest struct {
	Filename    string
	ContentType string
	Body        []byte
	RangeStart  time.Time
	RangeEnd    time.Time
}

// Upload stores an attachment for a timesheet the employee owns. The covered
// date range must lie inside the record's week and must not overlap any
// existing attachment on the record. The stored filename is canonical,
// derived from the covered range rather than the client's name.
func (s *AttachmentService) Upload(ctx context.Context, timesheetID, employeeID string, req UploadRequest) (*domain.Attachment, error) {
	ts, err := s.timesheets.GetByID(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	if ts.EmployeeID != employeeID {
		return nil, fmt.Errorf("%w: timesheet %s does not belong to employee %s", domain.ErrUnauthorized, timesheetID, employeeID)
	}

	var v domain.ValidationErrors
	if len(req.Body) == 0 {
		v.Add("file", "file is empty")
	}
	if len(req.Body) > maxAttachmentSize {
		v.Add("file", "file exceeds the %d byte limit", maxAttachmentSize)
	}
	if req.RangeEnd.Before(req.RangeStart) {
		v.Add("rangeEnd", "must not precede rangeStart")
	}
	if req.RangeStart.Before(ts.WeekStart) || req.RangeEnd.After(ts.WeekEnd) {
		v.Add("range", "covered range %s to %s is outside the week %s to %s",
			req.RangeStart.Format(domain.DateLayout), req.RangeEnd.Format(domain.DateLayout),
			ts.WeekStart.Format(domain.DateLayout), ts.WeekEnd.Format(domain.DateLayout))
	}
	if v.HasErrors() {
		return nil, &v
	}

	existing, err := s.attachments.ListByTimesheet(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	for _, att := range existing {
		if att.Overlaps(req.RangeStart, req.RangeEnd) {
			return nil, fmt.Errorf("%w: %s to %s collides with %s",
				domain.ErrAttachmentOverlap,
				req.RangeStart.Format(domain.DateLayout), req.RangeEnd.Format(domain.DateLayout),
				att.Filename)
		}
	}

	id := uuid.New()
	ext := strings.ToLower(filepath.Ext(req.Filename))
	objectKey := fmt.Sprintf("attachments/%s/%s%s", timesheetID, id, ext)
	if err := s.store.Put(ctx, objectKey, req.ContentType, req.Body); err != nil {
		return nil, err
	}

	thumbnailKey := ""
	if strings.HasPrefix(req.ContentType, "image/") {
		thumbnailKey = s.storeThumbnail(ctx, timesheetID, id, req.Body)
	}

	att := &domain.Attachment{
		ID:          id,
		TimesheetID: timesheetID,
		Filename: fmt.Sprintf("timesheet_%s_to_%s%s",
			req.RangeStart.Format(domain.DateLayout), req.RangeEnd.Format(domain.DateLayout), ext),
		ContentType:  req.ContentType,
		ObjectKey:    objectKey,
		ThumbnailKey: thumbnailKey,
		RangeStart:   req.RangeStart,
		RangeEnd:     req.RangeEnd,
		UploadedAt:   time.Now().UTC(),
	}
	if err := s.attachments.Create(ctx, att); err != nil {
		return nil, err
	}

	log.Info().
		Str("attachment_id", id.String()).
		Str("timesheet_id", timesheetID).
		Str("filename", att.Filename).
		Int("size", len(req.Body)).
		Msg("stored attachment")
	return att, nil
}

// storeThumbnail renders and stores a JPEG thumbnail for an image upload. A
// failure only costs the thumbnail, never the upload.
func (s *AttachmentService) storeThumbnail(ctx context.Context, timesheetID string, id uuid.UUID, body []byte) string {
	img, err := imaging.Decode(bytes.NewReader(body))
	if err != nil {
		log.Warn().Err(err).Str("attachment_id", id.String()).Msg("could not decode image for thumbnail")
		return ""
	}
	thumb := imaging.Thumbnail(img, thumbnailWidth, thumbnailHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		log.Warn().Err(err).Str("attachment_id", id.String()).Msg("could not encode thumbnail")
		return ""
	}
	key := fmt.Sprintf("attachments/%s/%s_thumb.jpg", timesheetID, id)
	if err := s.store.Put(ctx, key, "image/jpeg", buf.Bytes()); err != nil {
		log.Warn().Err(err).Str("attachment_id", id.String()).Msg("could not store thumbnail")
		return ""
	}
	return key
}

// List returns the attachments recorded for a timesheet.
func (s *AttachmentService) List(ctx context.Context, timesheetID string) ([]*domain.Attachment, error) {
	if _, err := s.timesheets.GetByID(ctx, timesheetID); err != nil {
		return nil, err
	}
	return s.attachments.ListByTimesheet(ctx, timesheetID)
}

// Download returns an attachment's metadata and content.
func (s *AttachmentService) Download(ctx context.Context, id uuid.UUID) (*domain.Attachment, []byte, error) {
	att, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	body, _, err := s.store.Get(ctx, att.ObjectKey)
	if err != nil {
		return nil, nil, err
	}
	return att, body, nil
}

// Thumbnail returns the stored thumbnail for an image attachment.
func (s *AttachmentService) Thumbnail(ctx context.Context, id uuid.UUID) (*domain.Attachment, []byte, error) {
	att, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if att.ThumbnailKey == "" {
		return nil, nil, fmt.Errorf("%w: attachment %s has no thumbnail", domain.ErrNotFound, id)
	}
	body, _, err := s.store.Get(ctx, att.ThumbnailKey)
	if err != nil {
		return nil, nil, err
	}
	return att, body, nil
}
