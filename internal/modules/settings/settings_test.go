package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightjarhq/nightjar-backend/internal/actor"
	"github.com/nightjarhq/nightjar-backend/internal/modules/audit"
	"github.com/nightjarhq/nightjar-backend/internal/modules/settings"
	"github.com/nightjarhq/nightjar-backend/internal/store"
)

func newService(t *testing.T) (settings.Service, audit.Service) {
	t.Helper()
	docs := store.NewMemory()
	auditSvc := audit.NewService(audit.NewDocRepository(docs))
	return settings.NewService(docs, auditSvc), auditSvc
}

func TestDefaultsRequireApproval(t *testing.T) {
	svc, _ := newService(t)

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, got.RequireApproval)
	assert.False(t, got.AutoAssignOnSubmit)
}

func TestSetIsOwnerOnlyAndAudited(t *testing.T) {
	svc, auditSvc := newService(t)
	ctx := context.Background()
	owner := actor.Actor{ID: "owner-1", Role: actor.RoleOwner}

	next := settings.Settings{RequireApproval: false, AutoAssignOnSubmit: true}
	got, err := svc.Set(ctx, next, owner)
	require.NoError(t, err)
	assert.Equal(t, next, got)

	reread, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, reread)

	_, err = svc.Set(ctx, settings.Defaults(), actor.Actor{ID: "editor-1", Role: actor.RoleEditor})
	assert.ErrorContains(t, err, "only owners")

	page, err := auditSvc.List(ctx, audit.Filter{Action: "settings_changed"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}
