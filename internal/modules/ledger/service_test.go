package ledger_test

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightjarhq/nightjar-backend/internal/actor"
	"github.com/nightjarhq/nightjar-backend/internal/modules/audit"
	"github.com/nightjarhq/nightjar-backend/internal/modules/catalog"
	"github.com/nightjarhq/nightjar-backend/internal/modules/ledger"
	"github.com/nightjarhq/nightjar-backend/internal/modules/notify"
	"github.com/nightjarhq/nightjar-backend/internal/modules/reveal"
	"github.com/nightjarhq/nightjar-backend/internal/store"
)

var (
	owner     = actor.Actor{ID: "owner-1", Role: actor.RoleOwner}
	requestor = actor.Actor{ID: "viewer-1", Role: actor.RoleViewer}
	producer  = actor.Actor{ID: "producer-1", Role: actor.RoleEditor}
	producer2 = actor.Actor{ID: "producer-2", Role: actor.RoleEditor}
)

type relayStub struct {
	err   error
	calls []string
}

func (r *relayStub) RelayOnApproval(_ context.Context, requestID, producerID string) error {
	r.calls = append(r.calls, requestID+"/"+producerID)
	return r.err
}

type fixture struct {
	svc   ledger.Service
	audit audit.Service
	relay *relayStub
	item  *catalog.Item
	items catalog.Repository
	repo  ledger.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	docs := store.NewMemory()
	log := logrus.New()
	log.SetOutput(io.Discard)

	auditSvc := audit.NewService(audit.NewDocRepository(docs))
	catRepo := catalog.NewDocRepository(docs)

	max := 500
	item := &catalog.Item{
		ID:           uuid.New(),
		Name:         "Face Shield",
		Unit:         "each",
		QuantityMin:  10,
		QuantityMax:  &max,
		QuantityStep: 10,
		Active:       true,
	}
	require.NoError(t, catRepo.Create(context.Background(), item))

	relay := &relayStub{}
	repo := ledger.NewDocRepository(docs)
	svc := ledger.NewService(repo, catRepo, auditSvc,
		notify.NewService(docs, log), relay, log)
	return &fixture{svc: svc, audit: auditSvc, relay: relay, item: item, items: catRepo, repo: repo}
}

func (f *fixture) submit(t *testing.T, qty int) *ledger.Request {
	t.Helper()
	r, err := f.svc.Submit(context.Background(), ledger.SubmitRequest{
		CatalogItemID: f.item.ID.String(),
		Quantity:      qty,
	}, requestor)
	require.NoError(t, err)
	return r
}

func (f *fixture) auditCount(t *testing.T, action string) int {
	t.Helper()
	page, err := f.audit.List(context.Background(), audit.Filter{Action: action})
	require.NoError(t, err)
	return page.Total
}

func TestSubmitCreatesOpenRequest(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, 20)

	assert.Equal(t, ledger.StatusOpen, r.Status)
	assert.Nil(t, r.AssignedTo)
	assert.Equal(t, requestor.ID, r.RequestedBy)
	assert.Equal(t, "Face Shield", r.CatalogItemName)
	assert.Equal(t, 1, f.auditCount(t, "request_submitted"))
}

func TestSubmitValidatesQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, qty := range []int{5, 25, 600} { // below min, off step, above max
		_, err := f.svc.Submit(ctx, ledger.SubmitRequest{
			CatalogItemID: f.item.ID.String(), Quantity: qty,
		}, requestor)
		assert.Error(t, err, "quantity %d should be rejected", qty)
	}
	assert.Equal(t, 0, f.auditCount(t, "request_submitted"))
}

func TestSubmitRejectsInactiveItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.items.Update(ctx, f.item.ID.String(), func(i *catalog.Item) error {
		i.Active = false
		return nil
	})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, ledger.SubmitRequest{
		CatalogItemID: f.item.ID.String(), Quantity: 20,
	}, requestor)
	assert.ErrorContains(t, err, "not accepting requests")
}

func TestClaimAssignsProducer(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, 20)

	claimed, err := f.svc.Claim(context.Background(), r.ID.String(), producer)
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusClaimed, claimed.Status)
	require.NotNil(t, claimed.AssignedTo)
	assert.Equal(t, producer.ID, *claimed.AssignedTo)
	require.NotNil(t, claimed.ClaimedBy)
	assert.Equal(t, producer.ID, *claimed.ClaimedBy)
	assert.Equal(t, 1, f.auditCount(t, "request_claimed"))
}

func TestClaimContention(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, 20)
	ctx := context.Background()

	_, err := f.svc.Claim(ctx, r.ID.String(), producer)
	require.NoError(t, err)

	_, err = f.svc.Claim(ctx, r.ID.String(), producer2)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)

	// The loser sees why.
	current, err := f.svc.Get(ctx, r.ID.String())
	require.NoError(t, err)
	ok, reason := ledger.ValidateClaim(current, producer2)
	assert.False(t, ok)
	assert.Contains(t, reason, "claimed")
}

func TestClaimRequiresEditor(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, 20)

	_, err := f.svc.Claim(context.Background(), r.ID.String(), requestor)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

func TestApproveFromClaimed(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, 20)
	ctx := context.Background()

	_, err := f.svc.Claim(ctx, r.ID.String(), producer)
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, r.ID.String(), owner)
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, owner.ID, *approved.ApprovedBy)
	assert.False(t, approved.AddressPending)
	assert.Equal(t, []string{r.ID.String() + "/" + producer.ID}, f.relay.calls)
	assert.Equal(t, 1, f.auditCount(t, "request_approved"))
	assert.Equal(t, 0, f.auditCount(t, "address_reveal_skipped"))
}

func TestApproveRequiresClaim(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, 20)

	_, err := f.svc.Approve(context.Background(), r.ID.String(), owner)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
	assert.Empty(t, f.relay.calls)
}

func TestApproveRequiresOwner(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, 20)
	ctx := context.Background()

	_, err := f.svc.Claim(ctx, r.ID.String(), producer)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, r.ID.String(), producer)
	assert.ErrorContains(t, err, "only owners")
}

func TestApproveDegradesExplicitlyWhenRelayFails(t *testing.T) {
	f := newFixture(t)
	f.relay.err = reveal.ErrNoPendingAddress
	r := f.submit(t, 20)
	ctx := context.Background()

	_, err := f.svc.Claim(ctx, r.ID.String(), producer)
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, r.ID.String(), owner)
	require.NoError(t, err, "a failed reveal must not block the approval")

	assert.Equal(t, ledger.StatusApproved, approved.Status)
	assert.True(t, approved.AddressPending)
	assert.Equal(t, 1, f.auditCount(t, "request_approved"))
	assert.Equal(t, 1, f.auditCount(t, "address_reveal_skipped"))
}

func TestRejectClearsAssignment(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, 20)
	ctx := context.Background()

	_, err := f.svc.Claim(ctx, r.ID.String(), producer)
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, r.ID.String(), ledger.RejectRequest{Note: "out of area"}, owner)
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusOpen, rejected.Status)
	assert.Nil(t, rejected.AssignedTo)
	assert.Nil(t, rejected.ClaimedBy)
	assert.Nil(t, rejected.ApprovedBy)
	assert.Equal(t, "out of area", rejected.AdminNotes)
	assert.Equal(t, 1, f.auditCount(t, "request_rejected"))
}

func TestRejectIsIdempotentOnOpen(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, 20)
	ctx := context.Background()

	again, err := f.svc.Reject(ctx, r.ID.String(), ledger.RejectRequest{}, owner)
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusOpen, again.Status)
	assert.Equal(t, 0, f.auditCount(t, "request_rejected"))
}

func TestFullLifecycleToDelivered(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, 20)
	ctx := context.Background()
	id := r.ID.String()

	_, err := f.svc.Claim(ctx, id, producer)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, id, owner)
	require.NoError(t, err)

	started, err := f.svc.Start(ctx, id, producer)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusInProgress, started.Status)

	shipped, err := f.svc.Ship(ctx, id, ledger.ShipRequest{TrackingInfo: "ZX-1234"}, producer)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusShipped, shipped.Status)
	assert.Equal(t, "ZX-1234", shipped.TrackingInfo)
	assert.NotNil(t, shipped.ShippedAt)

	delivered, err := f.svc.Deliver(ctx, id, requestor)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDelivered, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)

	// Terminal: nothing moves out of delivered, not even cancel.
	_, err = f.svc.Cancel(ctx, id, owner)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

func TestShipRequiresAssignee(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, 20)
	ctx := context.Background()
	id := r.ID.String()

	_, err := f.svc.Claim(ctx, id, producer)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, id, owner)
	require.NoError(t, err)

	_, err = f.svc.Ship(ctx, id, ledger.ShipRequest{}, producer2)
	assert.ErrorContains(t, err, "only the assigned producer")
}

func TestBlockAndUnblock(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, 20)
	ctx := context.Background()
	id := r.ID.String()

	blocked, err := f.svc.Block(ctx, id, ledger.BlockRequest{Reason: "no supplier"}, owner)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusBlocked, blocked.Status)
	assert.Equal(t, "no supplier", blocked.AdminNotes)

	_, err = f.svc.Claim(ctx, id, producer)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)

	open, err := f.svc.Unblock(ctx, id, owner)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusOpen, open.Status)
	assert.Equal(t, 1, f.auditCount(t, "request_blocked"))
	assert.Equal(t, 1, f.auditCount(t, "request_unblocked"))
}

func TestUnblockRequiresBlocked(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, 20)
	ctx := context.Background()
	id := r.ID.String()

	_, err := f.svc.Claim(ctx, id, producer)
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, id, ledger.RejectRequest{Note: "out of area"}, owner)
	require.NoError(t, err)

	// Open is not blocked: no transition, no audit entry, note untouched.
	_, err = f.svc.Unblock(ctx, id, owner)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)

	got, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusOpen, got.Status)
	assert.Equal(t, "out of area", got.AdminNotes)
	assert.Equal(t, 0, f.auditCount(t, "request_unblocked"))
}

func TestApproveRefusesMissingAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A record written by a replica that dropped the assignee must not get
	// past approval, let alone panic it.
	broken := &ledger.Request{
		ID:            uuid.New(),
		CatalogItemID: f.item.ID,
		Quantity:      20,
		Status:        ledger.StatusClaimed,
		RequestedBy:   requestor.ID,
	}
	require.NoError(t, f.repo.Create(ctx, broken))

	_, err := f.svc.Approve(ctx, broken.ID.String(), owner)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
	assert.Empty(t, f.relay.calls)
}

func TestCancelClearsAssignment(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, 20)
	ctx := context.Background()

	_, err := f.svc.Claim(ctx, r.ID.String(), producer)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, r.ID.String(), requestor)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.AssignedTo)
}

func TestCancelPermissions(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, 20)

	_, err := f.svc.Cancel(context.Background(), r.ID.String(), producer2)
	assert.ErrorContains(t, err, "only the requestor")
}

func TestAssignProposalRespectsApprovalSetting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.submit(t, 20)
	got, err := f.svc.AssignProposal(ctx, pending.ID.String(), producer.ID, true, owner)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPendingApproval, got.Status)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, producer.ID, *got.AssignedTo)
	assert.Nil(t, got.ClaimedBy)

	direct := f.submit(t, 20)
	got, err = f.svc.AssignProposal(ctx, direct.ID.String(), producer.ID, false, owner)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusClaimed, got.Status)
	require.NotNil(t, got.ClaimedBy)
	assert.Equal(t, producer.ID, *got.ClaimedBy)

	assert.Equal(t, 2, f.auditCount(t, "request_auto_assigned"))
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.submit(t, 20)
	f.submit(t, 30)
	_, err := f.svc.Claim(ctx, a.ID.String(), producer)
	require.NoError(t, err)

	open, err := f.svc.List(ctx, ledger.ListFilter{Status: ledger.StatusOpen})
	require.NoError(t, err)
	assert.Len(t, open, 1)

	mine, err := f.svc.List(ctx, ledger.ListFilter{AssignedTo: producer.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)

	all, err := f.svc.List(ctx, ledger.ListFilter{RequestedBy: requestor.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
