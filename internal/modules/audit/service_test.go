package audit_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightjarhq/nightjar-backend/internal/modules/audit"
	"github.com/nightjarhq/nightjar-backend/internal/store"
)

func newService(t *testing.T) audit.Service {
	t.Helper()
	return audit.NewService(audit.NewDocRepository(store.NewMemory()))
}

func record(t *testing.T, svc audit.Service, action, summary string) {
	t.Helper()
	require.NoError(t, svc.Record(context.Background(), audit.Entry{
		Action:     action,
		TargetID:   "target-1",
		TargetType: "request",
		Summary:    summary,
		ActorID:    "owner-1",
		ActorRole:  "owner",
	}))
}

func TestRecordFillsDefaults(t *testing.T) {
	svc := newService(t)
	record(t, svc, "request_submitted", "20 each of \"Face Shield\" requested")

	page, err := svc.List(context.Background(), audit.Filter{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.NotEmpty(t, page.Entries[0].ID)
	assert.False(t, page.Entries[0].Timestamp.IsZero())
}

func TestRecordRequiresAction(t *testing.T) {
	svc := newService(t)
	err := svc.Record(context.Background(), audit.Entry{Summary: "no action"})
	assert.Error(t, err)
}

func TestListNewestFirstAndPaginated(t *testing.T) {
	svc := newService(t)
	for i := 0; i < 7; i++ {
		record(t, svc, "request_submitted", fmt.Sprintf("entry %d", i))
	}

	page, err := svc.List(context.Background(), audit.Filter{Page: 1, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)
	require.Len(t, page.Entries, 3)
	assert.Equal(t, "entry 6", page.Entries[0].Summary)

	last, err := svc.List(context.Background(), audit.Filter{Page: 3, PageSize: 3})
	require.NoError(t, err)
	require.Len(t, last.Entries, 1)
	assert.Equal(t, "entry 0", last.Entries[0].Summary)
}

func TestListFilters(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	record(t, svc, "request_submitted", "bandages requested")
	record(t, svc, "request_claimed", "bandages claimed")
	record(t, svc, "catalog_item_added", "added gauze")

	byAction, err := svc.List(ctx, audit.Filter{Action: "request_claimed"})
	require.NoError(t, err)
	assert.Equal(t, 1, byAction.Total)

	bySearch, err := svc.List(ctx, audit.Filter{Search: "BANDAGES"})
	require.NoError(t, err)
	assert.Equal(t, 2, bySearch.Total, "search is case-insensitive over summaries")
}

func TestExportCSV(t *testing.T) {
	svc := newService(t)
	record(t, svc, "request_submitted", "bandages requested")
	record(t, svc, "request_claimed", "bandages claimed")

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf, audit.Filter{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "action")
	assert.Contains(t, buf.String(), "bandages requested")
}

func TestExportXLSX(t *testing.T) {
	svc := newService(t)
	record(t, svc, "request_submitted", "bandages requested")

	var buf bytes.Buffer
	require.NoError(t, svc.ExportXLSX(context.Background(), &buf, audit.Filter{}))
	assert.NotZero(t, buf.Len())
}
