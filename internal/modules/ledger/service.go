package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/nightjarhq/nightjar-backend/internal/actor"
	"github.com/nightjarhq/nightjar-backend/internal/modules/audit"
	"github.com/nightjarhq/nightjar-backend/internal/modules/catalog"
	"github.com/nightjarhq/nightjar-backend/internal/modules/notify"
	"github.com/nightjarhq/nightjar-backend/internal/modules/reveal"
	"github.com/sirupsen/logrus"
)

// Service defines the request ledger business logic. Every mutation follows
// the same discipline: load, validate the transition, replace by
// compare-and-swap, write exactly one audit entry.
type Service interface {
	// Submit creates an open request for an active catalog item.
	Submit(ctx context.Context, req SubmitRequest, by actor.Actor) (*Request, error)

	// Claim moves an open request to claimed by the acting producer.
	Claim(ctx context.Context, id string, by actor.Actor) (*Request, error)

	// Approve moves a claimed or pending_approval request to approved and
	// triggers the address reveal hand-off. A failed hand-off never rolls
	// back the approval; it is recorded and flagged on the request.
	Approve(ctx context.Context, id string, by actor.Actor) (*Request, error)

	// Reject returns a claimed or pending_approval request to open, clearing
	// all assignment fields. Rejecting an already-open request is a no-op.
	Reject(ctx context.Context, id string, req RejectRequest, by actor.Actor) (*Request, error)

	// Start moves an approved request to in_progress.
	Start(ctx context.Context, id string, by actor.Actor) (*Request, error)

	// Ship moves an approved or in_progress request to shipped.
	Ship(ctx context.Context, id string, req ShipRequest, by actor.Actor) (*Request, error)

	// Deliver moves a shipped request to delivered.
	Deliver(ctx context.Context, id string, by actor.Actor) (*Request, error)

	// Block parks an open request that no producer can fulfil.
	Block(ctx context.Context, id string, req BlockRequest, by actor.Actor) (*Request, error)

	// Unblock returns a blocked request to open.
	Unblock(ctx context.Context, id string, by actor.Actor) (*Request, error)

	// Cancel moves any non-terminal request to cancelled.
	Cancel(ctx context.Context, id string, by actor.Actor) (*Request, error)

	// AssignProposal applies one assignment engine proposal: open moves to
	// pending_approval when approval is required, claimed otherwise.
	AssignProposal(ctx context.Context, id, producerID string, requireApproval bool, by actor.Actor) (*Request, error)

	// MarkBlocked applies a blocked proposal from the assignment engine.
	MarkBlocked(ctx context.Context, id, reason string, by actor.Actor) (*Request, error)

	Get(ctx context.Context, id string) (*Request, error)
	List(ctx context.Context, f ListFilter) ([]*Request, error)

	// ExportCSV streams the filtered ledger as CSV.
	ExportCSV(ctx context.Context, w io.Writer, f ListFilter) error

	// ExportXLSX streams the filtered ledger as a spreadsheet.
	ExportXLSX(ctx context.Context, w io.Writer, f ListFilter) error
}

type service struct {
	repo     Repository
	items    catalog.Repository
	auditor  audit.Writer
	notifier notify.Pusher
	relay    reveal.Relay
	log      *logrus.Logger
}

// NewService creates a new ledger service.
func NewService(repo Repository, items catalog.Repository, auditor audit.Writer, notifier notify.Pusher, relay reveal.Relay, log *logrus.Logger) Service {
	return &service{repo: repo, items: items, auditor: auditor, notifier: notifier, relay: relay, log: log}
}

// ── submission ───────────────────────────────────────────────────────────────

func (s *service) Submit(ctx context.Context, req SubmitRequest, by actor.Actor) (*Request, error) {
	if req.CatalogItemID == "" {
		return nil, fmt.Errorf("catalog_item_id is required")
	}
	itemID, err := uuid.Parse(req.CatalogItemID)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog_item_id: %w", err)
	}

	item, err := s.items.GetByID(ctx, req.CatalogItemID)
	if err != nil {
		return nil, fmt.Errorf("catalog item %s not found: %w", req.CatalogItemID, err)
	}
	if !item.Active {
		return nil, fmt.Errorf("catalog item %q is not accepting requests", item.Name)
	}
	if req.Quantity < item.QuantityMin {
		return nil, fmt.Errorf("quantity must be at least %d", item.QuantityMin)
	}
	if item.QuantityMax != nil && req.Quantity > *item.QuantityMax {
		return nil, fmt.Errorf("quantity must be at most %d", *item.QuantityMax)
	}
	if item.QuantityStep > 1 && (req.Quantity-item.QuantityMin)%item.QuantityStep != 0 {
		return nil, fmt.Errorf("quantity must step by %d from %d", item.QuantityStep, item.QuantityMin)
	}

	now := time.Now().UTC()
	r := &Request{
		ID:              uuid.New(),
		CatalogItemID:   itemID,
		CatalogItemName: item.Name,
		Quantity:        req.Quantity,
		Status:          StatusOpen,
		RequestedBy:     by.ID,
		RequestedAt:     now,
		Urgent:          req.Urgent,
		City:            req.City,
		State:           req.State,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, "request_submitted", r, by,
		fmt.Sprintf("%d %s of %q requested", r.Quantity, item.Unit, item.Name)); err != nil {
		return nil, err
	}
	return r, nil
}

// ── claim ────────────────────────────────────────────────────────────────────

// ValidateClaim reports whether the actor may claim the request right now.
func ValidateClaim(r *Request, by actor.Actor) (bool, string) {
	if !by.IsEditor() {
		return false, "claiming requires editor permission"
	}
	if r.Status != StatusOpen {
		return false, fmt.Sprintf("request is %s, not open", r.Status)
	}
	return true, ""
}

func (s *service) Claim(ctx context.Context, id string, by actor.Actor) (*Request, error) {
	r, err := s.transition(ctx, id, StatusClaimed, func(r *Request) error {
		if ok, reason := ValidateClaim(r, by); !ok {
			return fmt.Errorf("%w: %s", ErrInvalidTransition, reason)
		}
		now := time.Now().UTC()
		r.AssignedTo = &by.ID
		r.AssignedAt = &now
		r.ClaimedBy = &by.ID
		r.ClaimedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit(ctx, "request_claimed", r, by,
		fmt.Sprintf("%q claimed by producer", r.CatalogItemName)); err != nil {
		return nil, err
	}
	s.notifier.Push(ctx, notify.Notification{
		RecipientID: r.RequestedBy,
		Type:        "request_claimed",
		Message:     fmt.Sprintf("Your request for %q was claimed", r.CatalogItemName),
		RelatedID:   r.ID.String(),
	})
	return r, nil
}

// ── approval ─────────────────────────────────────────────────────────────────

func (s *service) Approve(ctx context.Context, id string, by actor.Actor) (*Request, error) {
	if !by.IsOwner() {
		return nil, fmt.Errorf("only owners can approve requests")
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(current.Status, StatusApproved) {
		return nil, fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, current.Status, StatusApproved)
	}
	// A record from another writer could violate the assignee invariant;
	// refuse rather than trust it.
	if current.AssignedTo == nil {
		return nil, fmt.Errorf("%w: %s request has no assignee", ErrInvalidTransition, current.Status)
	}
	producerID := *current.AssignedTo

	// Hand the address over before finalizing so the outcome lands in the
	// same request update. Failure degrades explicitly, never rolls back.
	relayErr := s.relay.RelayOnApproval(ctx, id, producerID)

	r, err := s.transition(ctx, id, StatusApproved, func(r *Request) error {
		now := time.Now().UTC()
		r.ApprovedBy = &by.ID
		r.ApprovedAt = &now
		r.AddressPending = relayErr != nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit(ctx, "request_approved", r, by,
		fmt.Sprintf("%q approved for fulfilment", r.CatalogItemName)); err != nil {
		return nil, err
	}
	if relayErr != nil {
		s.log.WithError(relayErr).WithField("request", r.ID).Warn("address reveal skipped")
		if err := s.audit(ctx, "address_reveal_skipped", r, by, relayErr.Error()); err != nil {
			return nil, err
		}
	}

	s.notifier.Push(ctx, notify.Notification{
		RecipientID: producerID,
		Type:        "request_approved",
		Message:     fmt.Sprintf("Request for %q approved; you may begin fulfilment", r.CatalogItemName),
		RelatedID:   r.ID.String(),
	})
	return r, nil
}

// errAlreadyOpen short-circuits an idempotent reject.
var errAlreadyOpen = errors.New("already open")

func (s *service) Reject(ctx context.Context, id string, req RejectRequest, by actor.Actor) (*Request, error) {
	if !by.IsOwner() {
		return nil, fmt.Errorf("only owners can reject requests")
	}

	// Rejecting an already-open request is a no-op, so the short-circuit
	// runs inside the mutate callback where it sees the current winner.
	// Everything else goes through the strict transition check.
	var previousAssignee string
	r, err := s.repo.Update(ctx, id, func(r *Request) error {
		if r.Status == StatusOpen {
			return errAlreadyOpen
		}
		if !canTransition(r.Status, StatusOpen) {
			return fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, r.Status, StatusOpen)
		}
		if r.AssignedTo != nil {
			previousAssignee = *r.AssignedTo
		}
		r.clearAssignment()
		if req.Note != "" {
			r.AdminNotes = req.Note
		}
		r.Status = StatusOpen
		r.UpdatedAt = time.Now().UTC()
		return r.Validate()
	})
	if errors.Is(err, errAlreadyOpen) {
		return s.repo.GetByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	if err := s.audit(ctx, "request_rejected", r, by,
		fmt.Sprintf("%q returned to open", r.CatalogItemName)); err != nil {
		return nil, err
	}
	if previousAssignee != "" {
		s.notifier.Push(ctx, notify.Notification{
			RecipientID: previousAssignee,
			Type:        "request_rejected",
			Message:     fmt.Sprintf("Your claim on %q was rejected", r.CatalogItemName),
			RelatedID:   r.ID.String(),
		})
	}
	return r, nil
}

// ── fulfilment ───────────────────────────────────────────────────────────────

func (s *service) Start(ctx context.Context, id string, by actor.Actor) (*Request, error) {
	r, err := s.transition(ctx, id, StatusInProgress, func(r *Request) error {
		return requireAssigneeOrOwner(r, by)
	})
	if err != nil {
		return nil, err
	}
	if err := s.audit(ctx, "request_started", r, by,
		fmt.Sprintf("fulfilment of %q started", r.CatalogItemName)); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *service) Ship(ctx context.Context, id string, req ShipRequest, by actor.Actor) (*Request, error) {
	r, err := s.transition(ctx, id, StatusShipped, func(r *Request) error {
		if err := requireAssigneeOrOwner(r, by); err != nil {
			return err
		}
		now := time.Now().UTC()
		r.ShippedAt = &now
		r.TrackingInfo = req.TrackingInfo
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit(ctx, "request_shipped", r, by,
		fmt.Sprintf("%q shipped", r.CatalogItemName)); err != nil {
		return nil, err
	}
	s.notifier.Push(ctx, notify.Notification{
		RecipientID: r.RequestedBy,
		Type:        "request_shipped",
		Message:     fmt.Sprintf("Your request for %q has shipped", r.CatalogItemName),
		RelatedID:   r.ID.String(),
	})
	return r, nil
}

func (s *service) Deliver(ctx context.Context, id string, by actor.Actor) (*Request, error) {
	r, err := s.transition(ctx, id, StatusDelivered, func(r *Request) error {
		if by.ID != r.RequestedBy {
			if err := requireAssigneeOrOwner(r, by); err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		r.DeliveredAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.audit(ctx, "request_delivered", r, by,
		fmt.Sprintf("%q delivered", r.CatalogItemName)); err != nil {
		return nil, err
	}
	return r, nil
}

// ── blocking & cancellation ──────────────────────────────────────────────────

func (s *service) Block(ctx context.Context, id string, req BlockRequest, by actor.Actor) (*Request, error) {
	if !by.IsOwner() {
		return nil, fmt.Errorf("only owners can block requests")
	}
	return s.MarkBlocked(ctx, id, req.Reason, by)
}

func (s *service) MarkBlocked(ctx context.Context, id, reason string, by actor.Actor) (*Request, error) {
	r, err := s.transition(ctx, id, StatusBlocked, func(r *Request) error {
		if reason != "" {
			r.AdminNotes = reason
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.audit(ctx, "request_blocked", r, by,
		fmt.Sprintf("%q blocked: %s", r.CatalogItemName, reason)); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *service) Unblock(ctx context.Context, id string, by actor.Actor) (*Request, error) {
	if !by.IsOwner() {
		return nil, fmt.Errorf("only owners can unblock requests")
	}
	r, err := s.transition(ctx, id, StatusOpen, func(r *Request) error {
		r.AdminNotes = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.audit(ctx, "request_unblocked", r, by,
		fmt.Sprintf("%q returned to open", r.CatalogItemName)); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *service) Cancel(ctx context.Context, id string, by actor.Actor) (*Request, error) {
	var previousAssignee string
	r, err := s.transition(ctx, id, StatusCancelled, func(r *Request) error {
		if by.ID != r.RequestedBy && !by.IsOwner() {
			if r.AssignedTo == nil || *r.AssignedTo != by.ID {
				return fmt.Errorf("only the requestor, the assignee, or an owner can cancel")
			}
		}
		if r.AssignedTo != nil {
			previousAssignee = *r.AssignedTo
		}
		r.clearAssignment()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit(ctx, "request_cancelled", r, by,
		fmt.Sprintf("%q cancelled", r.CatalogItemName)); err != nil {
		return nil, err
	}
	if previousAssignee != "" && previousAssignee != by.ID {
		s.notifier.Push(ctx, notify.Notification{
			RecipientID: previousAssignee,
			Type:        "request_cancelled",
			Message:     fmt.Sprintf("The request for %q you were fulfilling was cancelled", r.CatalogItemName),
			RelatedID:   r.ID.String(),
		})
	}
	return r, nil
}

// ── assignment engine hooks ──────────────────────────────────────────────────

func (s *service) AssignProposal(ctx context.Context, id, producerID string, requireApproval bool, by actor.Actor) (*Request, error) {
	to := StatusClaimed
	if requireApproval {
		to = StatusPendingApproval
	}

	r, err := s.transition(ctx, id, to, func(r *Request) error {
		now := time.Now().UTC()
		r.AssignedTo = &producerID
		r.AssignedAt = &now
		if to == StatusClaimed {
			r.ClaimedBy = &producerID
			r.ClaimedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit(ctx, "request_auto_assigned", r, by,
		fmt.Sprintf("%q assigned to producer %s", r.CatalogItemName, producerID)); err != nil {
		return nil, err
	}
	s.notifier.Push(ctx, notify.Notification{
		RecipientID: producerID,
		Type:        "request_auto_assigned",
		Message:     fmt.Sprintf("You were matched to a request for %q", r.CatalogItemName),
		RelatedID:   r.ID.String(),
	})
	return r, nil
}

// ── reads ────────────────────────────────────────────────────────────────────

func (s *service) Get(ctx context.Context, id string) (*Request, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, f ListFilter) ([]*Request, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Request, 0, len(all))
	for _, r := range all {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.AssignedTo != "" && (r.AssignedTo == nil || *r.AssignedTo != f.AssignedTo) {
			continue
		}
		if f.RequestedBy != "" && r.RequestedBy != f.RequestedBy {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// transition wraps repo.Update with the state-machine check. mutate runs
// before the status flips so it sees the pre-transition state.
func (s *service) transition(ctx context.Context, id string, to Status, mutate func(*Request) error) (*Request, error) {
	return s.repo.Update(ctx, id, func(r *Request) error {
		if !canTransition(r.Status, to) {
			return fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, r.Status, to)
		}
		if err := mutate(r); err != nil {
			return err
		}
		r.Status = to
		r.UpdatedAt = time.Now().UTC()
		return r.Validate()
	})
}

func requireAssigneeOrOwner(r *Request, by actor.Actor) error {
	if by.IsOwner() {
		return nil
	}
	if r.AssignedTo != nil && *r.AssignedTo == by.ID {
		return nil
	}
	return fmt.Errorf("only the assigned producer or an owner may do this")
}

func (s *service) audit(ctx context.Context, action string, r *Request, by actor.Actor, summary string) error {
	return s.auditor.Record(ctx, audit.Entry{
		Action:     action,
		TargetID:   r.ID.String(),
		TargetType: "request",
		Summary:    summary,
		ActorID:    by.ID,
		ActorRole:  string(by.Role),
	})
}
