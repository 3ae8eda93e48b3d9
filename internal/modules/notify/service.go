package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nightjarhq/nightjar-backend/internal/actor"
	"github.com/nightjarhq/nightjar-backend/internal/store"
	"github.com/sirupsen/logrus"
)

// Pusher is the slice other modules depend on. Push never fails the caller:
// notification delivery is best-effort by contract.
type Pusher interface {
	Push(ctx context.Context, n Notification)
}

// Service defines notification business logic.
type Service interface {
	Pusher

	// ListForRecipient returns a member's notifications, newest first.
	ListForRecipient(ctx context.Context, recipientID string) ([]*Notification, error)

	// MarkRead flags a notification as read. Only its recipient may do so.
	MarkRead(ctx context.Context, id string, by actor.Actor) (*Notification, error)
}

const containerName = "notifications"

const casRetries = 3

type service struct {
	seq store.Sequence
	log *logrus.Logger
}

// NewService creates a notification service over the shared document store.
func NewService(s store.Store, log *logrus.Logger) Service {
	return &service{seq: s.Sequence(containerName), log: log}
}

func (s *service) Push(ctx context.Context, n Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(&n)
	if err != nil {
		s.log.WithError(err).Warn("drop notification: marshal failed")
		return
	}
	if _, err := s.seq.Append(ctx, n.ID, body); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"recipient": n.RecipientID,
			"type":      n.Type,
		}).Warn("drop notification: append failed")
	}
}

func (s *service) ListForRecipient(ctx context.Context, recipientID string) ([]*Notification, error) {
	recs, err := s.seq.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Notification
	for i := len(recs) - 1; i >= 0; i-- {
		n := &Notification{}
		if err := json.Unmarshal(recs[i].Body, n); err != nil {
			return nil, fmt.Errorf("unmarshal notification %s: %w", recs[i].ID, err)
		}
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *service) MarkRead(ctx context.Context, id string, by actor.Actor) (*Notification, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		rec, err := s.seq.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		n := &Notification{}
		if err := json.Unmarshal(rec.Body, n); err != nil {
			return nil, fmt.Errorf("unmarshal notification %s: %w", id, err)
		}
		if n.RecipientID != by.ID {
			return nil, fmt.Errorf("notification %s belongs to another member", id)
		}
		if n.Read {
			return n, nil
		}
		n.Read = true
		body, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		_, err = s.seq.Replace(ctx, id, rec.Rev, body)
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("mark notification %s read: %w", id, store.ErrConflict)
}
