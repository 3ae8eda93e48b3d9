package reveal_test

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightjarhq/nightjar-backend/internal/actor"
	"github.com/nightjarhq/nightjar-backend/internal/modules/member"
	"github.com/nightjarhq/nightjar-backend/internal/modules/reveal"
	"github.com/nightjarhq/nightjar-backend/internal/store"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestSealOpenRoundtrip(t *testing.T) {
	pub, priv, err := reveal.GenerateKeyPair()
	require.NoError(t, err)

	sealed, err := reveal.Seal([]byte("12 Fern St, Port Douglas"), pub)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "Fern St")

	plain, err := reveal.Open(sealed, pub, priv)
	require.NoError(t, err)
	assert.Equal(t, "12 Fern St, Port Douglas", string(plain))
}

func TestKeyEncoding(t *testing.T) {
	pub, priv, err := reveal.GenerateKeyPair()
	require.NoError(t, err)

	decoded, err := reveal.DecodeKey(reveal.EncodeKey(pub))
	require.NoError(t, err)
	assert.Equal(t, pub, decoded)

	assert.Equal(t, pub, reveal.PublicKeyFor(priv))

	_, err = reveal.DecodeKey("too-short")
	assert.Error(t, err)
}

func TestRelayOnApprovalRewrapsForProducer(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemory()

	_, relayPriv, err := reveal.GenerateKeyPair()
	require.NoError(t, err)
	prodPub, prodPriv, err := reveal.GenerateKeyPair()
	require.NoError(t, err)

	members := member.NewDocRepository(docs)
	producerID := uuid.New()
	require.NoError(t, members.Create(ctx, &member.Member{
		ID: producerID, Email: "prod@example.com",
		Role: actor.RoleEditor, PublicKey: reveal.EncodeKey(prodPub),
	}))

	svc, err := reveal.NewService(reveal.NewDocRepository(docs), members,
		reveal.EncodeKey(relayPriv), quietLogger())
	require.NoError(t, err)

	// Requestor seals the address to the relay key.
	relayKeyB64, err := svc.RelayPublicKey()
	require.NoError(t, err)
	relayPub, err := reveal.DecodeKey(relayKeyB64)
	require.NoError(t, err)
	sealed, err := reveal.Seal([]byte("7 Harbour Rd"), relayPub)
	require.NoError(t, err)

	requestID := uuid.New().String()
	requestorActor := actor.Actor{ID: "viewer-1", Role: actor.RoleViewer}
	require.NoError(t, svc.SubmitPending(ctx, requestID, sealed, requestorActor))

	require.NoError(t, svc.RelayOnApproval(ctx, requestID, producerID.String()))

	// Only the assigned producer can fetch the reveal, and only their private
	// key opens it.
	producerActor := actor.Actor{ID: producerID.String(), Role: actor.RoleEditor}
	rv, err := svc.GetReveal(ctx, requestID, producerActor)
	require.NoError(t, err)
	plain, err := reveal.Open(rv.SealedToProducer, prodPub, prodPriv)
	require.NoError(t, err)
	assert.Equal(t, "7 Harbour Rd", string(plain))

	other := actor.Actor{ID: "producer-2", Role: actor.RoleEditor}
	_, err = svc.GetReveal(ctx, requestID, other)
	assert.ErrorContains(t, err, "another producer")

	// Pending entry is consumed; a second relay has nothing to hand over.
	err = svc.RelayOnApproval(ctx, requestID, producerID.String())
	assert.ErrorIs(t, err, reveal.ErrNoPendingAddress)
}

func TestRelayFailuresAreTyped(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemory()
	members := member.NewDocRepository(docs)

	// No relay key configured.
	svc, err := reveal.NewService(reveal.NewDocRepository(docs), members, "", quietLogger())
	require.NoError(t, err)
	assert.ErrorIs(t, svc.RelayOnApproval(ctx, "req-1", "prod-1"), reveal.ErrRelayKey)
	_, err = svc.RelayPublicKey()
	assert.ErrorIs(t, err, reveal.ErrRelayKey)

	// Relay key present, but nothing pending.
	_, relayPriv, err := reveal.GenerateKeyPair()
	require.NoError(t, err)
	svc, err = reveal.NewService(reveal.NewDocRepository(docs), members,
		reveal.EncodeKey(relayPriv), quietLogger())
	require.NoError(t, err)
	assert.ErrorIs(t, svc.RelayOnApproval(ctx, "req-1", "prod-1"), reveal.ErrNoPendingAddress)

	// Pending present, but the producer never published a key.
	producerID := uuid.New()
	require.NoError(t, members.Create(ctx, &member.Member{
		ID: producerID, Email: "prod@example.com", Role: actor.RoleEditor,
	}))
	relayPub := reveal.PublicKeyFor(relayPriv)
	sealed, err := reveal.Seal([]byte("7 Harbour Rd"), relayPub)
	require.NoError(t, err)
	require.NoError(t, svc.SubmitPending(ctx, "req-1", sealed, actor.Actor{ID: "viewer-1", Role: actor.RoleViewer}))
	assert.ErrorIs(t, svc.RelayOnApproval(ctx, "req-1", producerID.String()), reveal.ErrNoProducerKey)
}
