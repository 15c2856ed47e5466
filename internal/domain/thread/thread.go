// Package thread implements a moderation-thread: a permission-gated
// message log attached to a project or version.
package thread

import (
	"time"

	"github.com/modhub/platform/internal/idcodec"
)

type AssociationKind string

const (
	AssociationProject AssociationKind = "project"
	AssociationVersion AssociationKind = "version"
)

type Message struct {
	ID           idcodec.ThreadMessageID
	AuthorID     idcodec.UserID
	Body         string
	HideIdentity bool // true hides authorship from non-moderator readers
	CreatedAt    time.Time
}

type Thread struct {
	id              idcodec.ThreadID
	associationKind AssociationKind
	projectID       *idcodec.ProjectID
	versionID       *idcodec.VersionID
	messages        []Message
}

func New(id idcodec.ThreadID, kind AssociationKind, projectID *idcodec.ProjectID, versionID *idcodec.VersionID) *Thread {
	return &Thread{id: id, associationKind: kind, projectID: projectID, versionID: versionID}
}

func Reconstruct(id idcodec.ThreadID, kind AssociationKind, projectID *idcodec.ProjectID, versionID *idcodec.VersionID, messages []Message) *Thread {
	return &Thread{id: id, associationKind: kind, projectID: projectID, versionID: versionID, messages: messages}
}

func (t *Thread) ID() idcodec.ThreadID              { return t.id }
func (t *Thread) AssociationKind() AssociationKind  { return t.associationKind }
func (t *Thread) ProjectID() *idcodec.ProjectID     { return t.projectID }
func (t *Thread) VersionID() *idcodec.VersionID     { return t.versionID }
func (t *Thread) Messages() []Message               { return t.messages }

func (t *Thread) PostMessage(id idcodec.ThreadMessageID, authorID idcodec.UserID, body string, hideIdentity bool) Message {
	m := Message{ID: id, AuthorID: authorID, Body: body, HideIdentity: hideIdentity, CreatedAt: time.Now().UTC()}
	t.messages = append(t.messages, m)
	return m
}

func (t *Thread) DeleteMessage(id idcodec.ThreadMessageID) error {
	for i, m := range t.messages {
		if m.ID == id {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			return nil
		}
	}
	return ErrMessageNotFound
}

func (t *Thread) FindMessage(id idcodec.ThreadMessageID) (Message, bool) {
	for _, m := range t.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}
