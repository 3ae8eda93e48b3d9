package assign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nightjarhq/nightjar-backend/internal/actor"
	"github.com/nightjarhq/nightjar-backend/internal/modules/capacity"
	"github.com/nightjarhq/nightjar-backend/internal/modules/ledger"
	"github.com/nightjarhq/nightjar-backend/internal/modules/settings"
	"github.com/nightjarhq/nightjar-backend/internal/store"
	"github.com/sirupsen/logrus"
)

// systemActor attributes engine-initiated mutations in the audit log.
var systemActor = actor.Actor{ID: "system", Role: actor.RoleOwner}

// Service runs the assignment engine against the live ledger.
type Service interface {
	// Preview computes proposals for every open request without applying them.
	Preview(ctx context.Context) ([]Proposal, error)

	// Run computes and applies proposals: matches move to pending_approval or
	// claimed depending on workspace settings, blocked verdicts park the
	// request. Only owners may trigger a manual pass.
	Run(ctx context.Context, by actor.Actor) (*Result, error)

	// Watch subscribes to ledger submissions and runs a pass after each one
	// when auto-assign-on-submit is enabled. Returns an unsubscribe func.
	Watch(ctx context.Context, s store.Store) (cancel func())
}

type service struct {
	ledger   ledger.Service
	caps     capacity.Repository
	settings settings.Service
	log      *logrus.Logger
}

// NewService creates a new assignment service.
func NewService(l ledger.Service, caps capacity.Repository, st settings.Service, log *logrus.Logger) Service {
	return &service{ledger: l, caps: caps, settings: st, log: log}
}

func (s *service) Preview(ctx context.Context) ([]Proposal, error) {
	open, caps, err := s.inputs(ctx)
	if err != nil {
		return nil, err
	}
	return Propose(open, caps, time.Now().UTC()), nil
}

func (s *service) Run(ctx context.Context, by actor.Actor) (*Result, error) {
	if !by.IsOwner() {
		return nil, fmt.Errorf("only owners can run assignment")
	}
	return s.run(ctx, by)
}

func (s *service) run(ctx context.Context, by actor.Actor) (*Result, error) {
	open, caps, err := s.inputs(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	proposals := Propose(open, caps, time.Now().UTC())
	result := &Result{Details: proposals}
	for _, p := range proposals {
		if p.Blocked {
			_, err = s.ledger.MarkBlocked(ctx, p.RequestID, p.Reason, by)
			if err == nil {
				result.Blocked++
				continue
			}
		} else {
			_, err = s.ledger.AssignProposal(ctx, p.RequestID, p.ProducerID, cfg.RequireApproval, by)
			if err == nil {
				result.Assigned++
				continue
			}
		}
		// A request that moved between snapshot and apply is skipped, not an
		// error: the proposal was computed against a state that no longer holds.
		if errors.Is(err, ledger.ErrInvalidTransition) || errors.Is(err, store.ErrNotFound) {
			result.Skipped++
			continue
		}
		return nil, err
	}
	return result, nil
}

func (s *service) inputs(ctx context.Context) ([]*ledger.Request, []*capacity.ProducerCapacity, error) {
	open, err := s.ledger.List(ctx, ledger.ListFilter{Status: ledger.StatusOpen})
	if err != nil {
		return nil, nil, err
	}
	caps, err := s.caps.ListAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	return open, caps, nil
}

func (s *service) Watch(ctx context.Context, st store.Store) (cancel func()) {
	seq := st.Sequence(ledger.ContainerName)
	return seq.Observe(func(ev store.Event) {
		if ev.Op != store.OpAppend {
			return
		}
		// Observers may fire under the store's lock; the pass itself reads
		// and writes the store, so it must run on its own goroutine.
		go func() {
			cfg, err := s.settings.Get(ctx)
			if err != nil {
				s.log.WithError(err).Warn("auto-assign: read settings")
				return
			}
			if !cfg.AutoAssignOnSubmit {
				return
			}
			res, err := s.run(ctx, systemActor)
			if err != nil {
				s.log.WithError(err).Warn("auto-assign pass failed")
				return
			}
			s.log.WithFields(logrus.Fields{
				"assigned": res.Assigned,
				"blocked":  res.Blocked,
				"skipped":  res.Skipped,
			}).Info("auto-assign pass complete")
		}()
	})
}
