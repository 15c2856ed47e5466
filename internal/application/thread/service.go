// Package thread implements ThreadService: posting and deleting
// moderation-thread messages. Grounded on the same application-service
// shape as internal/application/project, generalized to the thread's
// simpler any-project-permission-bit gate.
package thread

import (
	"context"

	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/cache"
	"github.com/modhub/platform/internal/domain/thread"
	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/permission"
)

type Logger interface {
	Info(msg string, fields ...any)
	Error(msg string, fields ...any)
}

type Service struct {
	threads thread.Repository
	cache   *cache.Cache
	logger  Logger
}

func NewService(threads thread.Repository, c *cache.Cache, logger Logger) *Service {
	return &Service{threads: threads, cache: c, logger: logger}
}

// PostMessage requires the author hold any project permission bit on the
// thread's project, or site role Moderator/Admin.
func (s *Service) PostMessage(ctx context.Context, t *thread.Thread, authorID idcodec.UserID, authorRole user.SiteRole, authorBits permission.ProjectPermissions, id idcodec.ThreadMessageID, body string, hideIdentity bool) (thread.Message, error) {
	if authorBits.IsEmpty() && !authorRole.IsElevated() {
		return thread.Message{}, apierror.InsufficientPermission("must hold a project permission or be a moderator to post in this thread")
	}
	m := t.PostMessage(id, authorID, body, hideIdentity)
	if err := s.threads.Update(ctx, t); err != nil {
		return thread.Message{}, apierror.External("failed to update thread", err)
	}
	return m, s.invalidate(ctx, t.ID())
}

// DeleteMessage requires actor be the message's author or hold site role
// Moderator/Admin.
func (s *Service) DeleteMessage(ctx context.Context, t *thread.Thread, messageID idcodec.ThreadMessageID, actorID idcodec.UserID, actorRole user.SiteRole) error {
	m, ok := t.FindMessage(messageID)
	if !ok {
		return apierror.NotFound("thread message not found")
	}
	if m.AuthorID != actorID && !actorRole.IsElevated() {
		return apierror.InsufficientPermission("must be the message's author or a moderator to delete it")
	}
	if err := t.DeleteMessage(messageID); err != nil {
		return apierror.Wrap(apierror.KindNotFound, "not_found", "thread message not found", err)
	}
	if err := s.threads.Update(ctx, t); err != nil {
		return apierror.External("failed to update thread", err)
	}
	return s.invalidate(ctx, t.ID())
}

func (s *Service) invalidate(ctx context.Context, id idcodec.ThreadID) error {
	if err := s.cache.Invalidate(ctx, cache.NamespaceThreads, id.String()); err != nil {
		s.logger.Error("thread cache invalidation failed", "thread_id", id.String(), "error", err)
	}
	return nil
}
