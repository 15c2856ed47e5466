package thread

import (
	"context"
	"testing"

	"github.com/modhub/platform/internal/cache"
	"github.com/modhub/platform/internal/domain/thread"
	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/permission"
)

type fakeRepository struct {
	threads map[idcodec.ThreadID]*thread.Thread
	updates int
}

func newFakeRepository(t *thread.Thread) *fakeRepository {
	return &fakeRepository{threads: map[idcodec.ThreadID]*thread.Thread{t.ID(): t}}
}

func (f *fakeRepository) Create(ctx context.Context, t *thread.Thread) error {
	f.threads[t.ID()] = t
	return nil
}

func (f *fakeRepository) Update(ctx context.Context, t *thread.Thread) error {
	f.updates++
	f.threads[t.ID()] = t
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id idcodec.ThreadID) (*thread.Thread, error) {
	return f.threads[id], nil
}

func (f *fakeRepository) FindByProject(ctx context.Context, projectID idcodec.ProjectID) (*thread.Thread, error) {
	return nil, nil
}

func (f *fakeRepository) FindByVersion(ctx context.Context, versionID idcodec.VersionID) (*thread.Thread, error) {
	return nil, nil
}

type fakeLogger struct{ errors int }

func (l *fakeLogger) Info(msg string, fields ...any)  {}
func (l *fakeLogger) Error(msg string, fields ...any) { l.errors++ }

func newTestService(t *thread.Thread) (*Service, *fakeRepository) {
	repo := newFakeRepository(t)
	c := cache.New(cache.NewMemoryBackend())
	return NewService(repo, c, &fakeLogger{}), repo
}

func TestPostMessage_RequiresPermissionOrElevatedRole(t *testing.T) {
	projectID := idcodec.ProjectID(1)
	th := thread.New(idcodec.ThreadID(1), thread.AssociationProject, &projectID, nil)
	svc, _ := newTestService(th)

	_, err := svc.PostMessage(context.Background(), th, idcodec.UserID(2), user.RoleDeveloper, 0, idcodec.ThreadMessageID(1), "hello", false)
	if err == nil {
		t.Fatal("expected an error when the author holds no project permission and no elevated role")
	}
}

func TestPostMessage_SucceedsWithProjectBit(t *testing.T) {
	projectID := idcodec.ProjectID(1)
	th := thread.New(idcodec.ThreadID(1), thread.AssociationProject, &projectID, nil)
	svc, repo := newTestService(th)

	m, err := svc.PostMessage(context.Background(), th, idcodec.UserID(2), user.RoleDeveloper, permission.ProjectUploadVersion, idcodec.ThreadMessageID(1), "hello", false)
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if m.Body != "hello" {
		t.Errorf("message body = %q; want %q", m.Body, "hello")
	}
	if repo.updates != 1 {
		t.Errorf("repository updates = %d; want 1", repo.updates)
	}
	if _, ok := th.FindMessage(idcodec.ThreadMessageID(1)); !ok {
		t.Error("expected the posted message to be findable on the thread")
	}
}

func TestPostMessage_SucceedsForModeratorWithNoBits(t *testing.T) {
	projectID := idcodec.ProjectID(1)
	th := thread.New(idcodec.ThreadID(1), thread.AssociationProject, &projectID, nil)
	svc, _ := newTestService(th)

	_, err := svc.PostMessage(context.Background(), th, idcodec.UserID(2), user.RoleModerator, 0, idcodec.ThreadMessageID(1), "hello", false)
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
}

func TestDeleteMessage_AuthorCanDeleteOwnMessage(t *testing.T) {
	projectID := idcodec.ProjectID(1)
	th := thread.New(idcodec.ThreadID(1), thread.AssociationProject, &projectID, nil)
	th.PostMessage(idcodec.ThreadMessageID(1), idcodec.UserID(2), "hello", false)
	svc, repo := newTestService(th)

	if err := svc.DeleteMessage(context.Background(), th, idcodec.ThreadMessageID(1), idcodec.UserID(2), user.RoleDeveloper); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if repo.updates != 1 {
		t.Errorf("repository updates = %d; want 1", repo.updates)
	}
	if _, ok := th.FindMessage(idcodec.ThreadMessageID(1)); ok {
		t.Error("expected the message to be removed from the thread")
	}
}

func TestDeleteMessage_NonAuthorNonModeratorRejected(t *testing.T) {
	projectID := idcodec.ProjectID(1)
	th := thread.New(idcodec.ThreadID(1), thread.AssociationProject, &projectID, nil)
	th.PostMessage(idcodec.ThreadMessageID(1), idcodec.UserID(2), "hello", false)
	svc, _ := newTestService(th)

	err := svc.DeleteMessage(context.Background(), th, idcodec.ThreadMessageID(1), idcodec.UserID(3), user.RoleDeveloper)
	if err == nil {
		t.Fatal("expected an error when a non-author, non-moderator attempts to delete a message")
	}
}

func TestDeleteMessage_ModeratorCanDeleteAnyMessage(t *testing.T) {
	projectID := idcodec.ProjectID(1)
	th := thread.New(idcodec.ThreadID(1), thread.AssociationProject, &projectID, nil)
	th.PostMessage(idcodec.ThreadMessageID(1), idcodec.UserID(2), "hello", false)
	svc, _ := newTestService(th)

	if err := svc.DeleteMessage(context.Background(), th, idcodec.ThreadMessageID(1), idcodec.UserID(3), user.RoleAdmin); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
}

func TestDeleteMessage_UnknownMessageNotFound(t *testing.T) {
	projectID := idcodec.ProjectID(1)
	th := thread.New(idcodec.ThreadID(1), thread.AssociationProject, &projectID, nil)
	svc, _ := newTestService(th)

	err := svc.DeleteMessage(context.Background(), th, idcodec.ThreadMessageID(99), idcodec.UserID(2), user.RoleDeveloper)
	if err == nil {
		t.Fatal("expected a not-found error for a message id that does not exist")
	}
}
