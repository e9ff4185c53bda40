package server

import (
	"context"
	"time"

	"resumeforge/internal/events"
	"resumeforge/internal/types"
)

// notifyTimeout bounds archive and publish calls made after a response has
// been decided. They outlive a cancelled request.
const notifyTimeout = 10 * time.Second

// goBackground runs fn off the request path. Close waits for it.
func (s *Server) goBackground(fn func()) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		fn()
	}()
}

func (s *Server) publish(ctx context.Context, event events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	event.OccurredAt = s.now()
	if err := s.deps.Publisher.Publish(ctx, event); err != nil {
		s.Logger.LogError(err, "Failed to publish event",
			"type", event.Type,
			"application_id", event.ApplicationID)
	}
}

// afterOptimize archives the generated documents and announces them.
// Failures are logged; the optimization itself is already stored.
func (s *Server) afterOptimize(ctx context.Context, rec *types.ApplicationRecord) {
	score := rec.OptimizedATSScore
	s.publish(ctx, events.Event{
		Type:          events.TypeOptimized,
		ApplicationID: rec.ID,
		CompanyName:   rec.CompanyName,
		RoleTitle:     rec.RoleTitle,
		Score:         score,
	})

	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	keys, err := s.deps.Archiver.Archive(archiveCtx, rec)
	if err != nil {
		s.Logger.LogError(err, "Failed to archive generated documents", "application_id", rec.ID)
		return
	}
	if len(keys) == 0 {
		return
	}

	s.Logger.Info("Generated documents archived", "application_id", rec.ID, "keys", keys)
	s.publish(ctx, events.Event{
		Type:          events.TypeArchived,
		ApplicationID: rec.ID,
		Keys:          keys,
	})
}
