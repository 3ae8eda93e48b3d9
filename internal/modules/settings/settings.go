package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nightjarhq/nightjar-backend/internal/actor"
	"github.com/nightjarhq/nightjar-backend/internal/modules/audit"
	"github.com/nightjarhq/nightjar-backend/internal/store"
)

// Settings are the workspace-level knobs of the inventory workflow.
type Settings struct {
	// RequireApproval gates auto-assignment behind an admin approval step:
	// matched requests land in pending_approval instead of claimed.
	RequireApproval bool `json:"require_approval"`

	// AutoAssignOnSubmit runs an assignment pass right after every submission.
	AutoAssignOnSubmit bool `json:"auto_assign_on_submit"`
}

// Defaults returns the settings of a fresh workspace.
func Defaults() Settings {
	return Settings{RequireApproval: true}
}

// Service reads and writes workspace settings.
type Service interface {
	Get(ctx context.Context) (Settings, error)
	Set(ctx context.Context, s Settings, by actor.Actor) (Settings, error)
}

const settingsKey = "workspace"

type service struct {
	m       store.Map
	auditor audit.Writer
}

// NewService creates a new settings service over the shared document store.
func NewService(s store.Store, auditor audit.Writer) Service {
	return &service{m: s.Map("settings"), auditor: auditor}
}

func (s *service) Get(ctx context.Context) (Settings, error) {
	raw, err := s.m.Get(ctx, settingsKey)
	if errors.Is(err, store.ErrNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	var out Settings
	if err := json.Unmarshal(raw, &out); err != nil {
		return Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	return out, nil
}

func (s *service) Set(ctx context.Context, next Settings, by actor.Actor) (Settings, error) {
	if !by.IsOwner() {
		return Settings{}, fmt.Errorf("only owners can change settings")
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return Settings{}, fmt.Errorf("marshal settings: %w", err)
	}
	if err := s.m.Set(ctx, settingsKey, raw); err != nil {
		return Settings{}, err
	}
	if err := s.auditor.Record(ctx, audit.Entry{
		Action:     "settings_changed",
		TargetID:   settingsKey,
		TargetType: "settings",
		Summary:    fmt.Sprintf("require_approval=%t auto_assign_on_submit=%t", next.RequireApproval, next.AutoAssignOnSubmit),
		ActorID:    by.ID,
		ActorRole:  string(by.Role),
	}); err != nil {
		return Settings{}, err
	}
	return next, nil
}
