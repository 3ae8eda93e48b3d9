package reveal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nightjarhq/nightjar-backend/internal/actor"
	"github.com/nightjarhq/nightjar-backend/internal/modules/member"
	"github.com/nightjarhq/nightjar-backend/internal/store"
	"github.com/sirupsen/logrus"
)

// Typed relay failures. An approval that hits one of these still stands; the
// ledger records the skip so the degraded state is visible, never silent.
var (
	ErrNoPendingAddress = errors.New("no pending address for request")
	ErrNoProducerKey    = errors.New("producer has not published a public key")
	ErrRelayKey         = errors.New("workspace relay key unavailable")
)

// Relay is the slice of the reveal service the ledger invokes on approval.
type Relay interface {
	// RelayOnApproval re-seals the pending address to the producer and
	// removes the pending entry. Returns a typed error when the hand-off
	// cannot complete.
	RelayOnApproval(ctx context.Context, requestID, producerID string) error
}

// Service defines the address reveal handshake.
type Service interface {
	Relay

	// SubmitPending parks a requestor's sealed address until approval.
	SubmitPending(ctx context.Context, requestID string, sealed []byte, by actor.Actor) error

	// GetReveal returns the sealed blob, only to the producer it was sealed to.
	GetReveal(ctx context.Context, requestID string, by actor.Actor) (*AddressReveal, error)

	// RelayPublicKey returns the key requestors seal pending addresses to.
	RelayPublicKey() (string, error)
}

type service struct {
	repo     Repository
	members  member.Repository
	relayKey *[32]byte // nil when the deployment has no relay key
	log      *logrus.Logger
}

// NewService creates a new reveal service. relayPrivateKey may be empty; the
// relay then fails explicitly with ErrRelayKey and approvals degrade visibly.
func NewService(repo Repository, members member.Repository, relayPrivateKey string, log *logrus.Logger) (Service, error) {
	s := &service{repo: repo, members: members, log: log}
	if relayPrivateKey != "" {
		key, err := DecodeKey(relayPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("relay private key: %w", err)
		}
		s.relayKey = key
	}
	return s, nil
}

func (s *service) RelayPublicKey() (string, error) {
	if s.relayKey == nil {
		return "", ErrRelayKey
	}
	return EncodeKey(PublicKeyFor(s.relayKey)), nil
}

func (s *service) SubmitPending(ctx context.Context, requestID string, sealed []byte, by actor.Actor) error {
	if len(sealed) == 0 {
		return fmt.Errorf("sealed_address is required")
	}
	return s.repo.PutPending(ctx, &PendingAddress{
		RequestID:     requestID,
		SealedToRelay: sealed,
		SubmittedBy:   by.ID,
		CreatedAt:     time.Now().UTC(),
	})
}

func (s *service) RelayOnApproval(ctx context.Context, requestID, producerID string) error {
	if s.relayKey == nil {
		return ErrRelayKey
	}

	pending, err := s.repo.GetPending(ctx, requestID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoPendingAddress
	}
	if err != nil {
		return err
	}

	producer, err := s.members.GetByID(ctx, producerID)
	if err != nil {
		return fmt.Errorf("load producer %s: %w", producerID, err)
	}
	if producer.PublicKey == "" {
		return ErrNoProducerKey
	}
	producerKey, err := DecodeKey(producer.PublicKey)
	if err != nil {
		return fmt.Errorf("producer key: %w", err)
	}

	plaintext, err := Open(pending.SealedToRelay, PublicKeyFor(s.relayKey), s.relayKey)
	if err != nil {
		return fmt.Errorf("open pending address: %w", err)
	}
	sealed, err := Seal(plaintext, producerKey)
	if err != nil {
		return err
	}

	if err := s.repo.PutReveal(ctx, &AddressReveal{
		RequestID:        requestID,
		ProducerID:       producerID,
		SealedToProducer: sealed,
		CreatedAt:        time.Now().UTC(),
	}); err != nil {
		return err
	}

	if err := s.repo.DeletePending(ctx, requestID); err != nil && !errors.Is(err, store.ErrNotFound) {
		// The reveal exists; a leftover pending entry is harmless but noisy.
		s.log.WithError(err).WithField("request", requestID).Warn("pending address cleanup failed")
	}
	return nil
}

func (s *service) GetReveal(ctx context.Context, requestID string, by actor.Actor) (*AddressReveal, error) {
	rv, err := s.repo.GetReveal(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if rv.ProducerID != by.ID {
		return nil, fmt.Errorf("reveal for request %s is sealed to another producer", requestID)
	}
	return rv, nil
}
