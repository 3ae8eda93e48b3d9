package assign_test

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightjarhq/nightjar-backend/internal/actor"
	"github.com/nightjarhq/nightjar-backend/internal/modules/assign"
	"github.com/nightjarhq/nightjar-backend/internal/modules/audit"
	"github.com/nightjarhq/nightjar-backend/internal/modules/capacity"
	"github.com/nightjarhq/nightjar-backend/internal/modules/catalog"
	"github.com/nightjarhq/nightjar-backend/internal/modules/ledger"
	"github.com/nightjarhq/nightjar-backend/internal/modules/notify"
	"github.com/nightjarhq/nightjar-backend/internal/modules/settings"
	"github.com/nightjarhq/nightjar-backend/internal/store"
)

var (
	owner     = actor.Actor{ID: "owner-1", Role: actor.RoleOwner}
	requestor = actor.Actor{ID: "viewer-1", Role: actor.RoleViewer}
)

type noRelay struct{}

func (noRelay) RelayOnApproval(context.Context, string, string) error { return nil }

type harness struct {
	assign   assign.Service
	ledger   ledger.Service
	settings settings.Service
	caps     capacity.Repository
	audit    audit.Service
	item     *catalog.Item
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	docs := store.NewMemory()
	log := logrus.New()
	log.SetOutput(io.Discard)

	auditSvc := audit.NewService(audit.NewDocRepository(docs))
	settingsSvc := settings.NewService(docs, auditSvc)

	catRepo := catalog.NewDocRepository(docs)
	item := &catalog.Item{ID: uuid.New(), Name: "Gauze Roll", Unit: "box", QuantityMin: 1, QuantityStep: 1, Active: true}
	require.NoError(t, catRepo.Create(context.Background(), item))

	capsRepo := capacity.NewDocRepository(docs)
	ledgerSvc := ledger.NewService(ledger.NewDocRepository(docs), catRepo, auditSvc,
		notify.NewService(docs, log), noRelay{}, log)
	assignSvc := assign.NewService(ledgerSvc, capsRepo, settingsSvc, log)

	return &harness{
		assign: assignSvc, ledger: ledgerSvc, settings: settingsSvc,
		caps: capsRepo, audit: auditSvc, item: item,
	}
}

func (h *harness) submit(t *testing.T, qty int) *ledger.Request {
	t.Helper()
	r, err := h.ledger.Submit(context.Background(), ledger.SubmitRequest{
		CatalogItemID: h.item.ID.String(), Quantity: qty,
	}, requestor)
	require.NoError(t, err)
	return r
}

func (h *harness) declare(t *testing.T, producerID string, stock, perDay int) {
	t.Helper()
	require.NoError(t, h.caps.Put(context.Background(), &capacity.ProducerCapacity{
		ProducerID: producerID,
		Items: map[string]capacity.ItemCapacity{
			h.item.ID.String(): {CurrentStock: stock, CapacityPerDay: perDay},
		},
	}))
}

func TestRunWithApprovalRequired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.declare(t, "prod-a", 100, 10)

	first := h.submit(t, 5)
	second := h.submit(t, 8)

	res, err := h.assign.Run(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Assigned)
	assert.Equal(t, 0, res.Blocked)

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		got, err := h.ledger.Get(ctx, id.String())
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusPendingApproval, got.Status)
		require.NotNil(t, got.AssignedTo)
		assert.Equal(t, "prod-a", *got.AssignedTo)
	}

	page, err := h.audit.List(ctx, audit.Filter{Action: "request_auto_assigned"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestRunWithoutApprovalClaimsDirectly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.settings.Set(ctx, settings.Settings{RequireApproval: false}, owner)
	require.NoError(t, err)
	h.declare(t, "prod-a", 100, 10)
	r := h.submit(t, 5)

	res, err := h.assign.Run(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Assigned)

	got, err := h.ledger.Get(ctx, r.ID.String())
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusClaimed, got.Status)
	require.NotNil(t, got.ClaimedBy)
	assert.Equal(t, "prod-a", *got.ClaimedBy)
}

func TestRunBlocksUnservableRequests(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.submit(t, 5)

	res, err := h.assign.Run(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Assigned)
	assert.Equal(t, 1, res.Blocked)

	got, err := h.ledger.Get(ctx, r.ID.String())
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusBlocked, got.Status)
	assert.Contains(t, got.AdminNotes, "no producer")
}

func TestRunRequiresOwner(t *testing.T) {
	h := newHarness(t)

	_, err := h.assign.Run(context.Background(), requestor)
	assert.ErrorContains(t, err, "only owners")
}

func TestPreviewDoesNotMutate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.declare(t, "prod-a", 100, 10)
	r := h.submit(t, 5)

	proposals, err := h.assign.Preview(ctx)
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, "prod-a", proposals[0].ProducerID)

	got, err := h.ledger.Get(ctx, r.ID.String())
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusOpen, got.Status)
}
