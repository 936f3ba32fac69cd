package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/pkg/errors"
	"github.com/strogmv/notifyevents/internal/port"
)

// normalizeAttachments stores every attachment and returns references in input order.
// The first storage failure cancels the remaining uploads.
func (s *NotificationEventsImpl) normalizeAttachments(ctx context.Context, raw []port.RawAttachment) ([]domain.Attachment, error) {
	out := make([]domain.Attachment, len(raw))
	if len(raw) == 0 {
		return out, nil
	}
	if s.Attachments == nil {
		return nil, errors.Processing(domain.CodeAttachmentStorage, fmt.Errorf("attachment storage is not configured"))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.attachmentWorkers)
	for i, a := range raw {
		g.Go(func() error {
			ref, err := s.Attachments.Store(gctx, a)
			if err != nil {
				return fmt.Errorf("attachment %d (%s): %w", i, a.FileName, err)
			}
			out[i] = domain.Attachment{
				FileName:  a.FileName,
				Data:      ref,
				Extension: a.Extension,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Processing(domain.CodeAttachmentStorage, err)
	}
	return out, nil
}
