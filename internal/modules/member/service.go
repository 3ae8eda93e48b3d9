package member

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/nightjarhq/nightjar-backend/internal/actor"
	"github.com/nightjarhq/nightjar-backend/internal/modules/audit"
	"github.com/nightjarhq/nightjar-backend/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// Service defines member business logic.
type Service interface {
	// Register creates a member. The first member of an empty workspace
	// becomes its owner; everyone after joins as a viewer.
	Register(ctx context.Context, req RegisterRequest) (*Member, error)

	// Login verifies credentials and returns a signed session token.
	Login(ctx context.Context, req LoginRequest) (string, *Member, error)

	// Authenticate resolves a session token back to its member.
	Authenticate(ctx context.Context, token string) (*Member, error)

	GetMember(ctx context.Context, id string) (*Member, error)
	ListMembers(ctx context.Context) ([]*Member, error)

	// UpdateRole changes a member's role. Owner-only; audited.
	UpdateRole(ctx context.Context, id string, role actor.Role, by actor.Actor) (*Member, error)

	// SetPublicKey publishes the member's curve25519 public key.
	SetPublicKey(ctx context.Context, id string, publicKey string) (*Member, error)
}

type service struct {
	repo    Repository
	auditor audit.Writer
	jwtKey  []byte
}

// NewService creates a new member service.
func NewService(repo Repository, auditor audit.Writer, jwtSecret string) Service {
	return &service{repo: repo, auditor: auditor, jwtKey: []byte(jwtSecret)}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*Member, error) {
	if req.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email %s is already registered", req.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	role := actor.RoleViewer
	if len(existing) == 0 {
		role = actor.RoleOwner
	}

	now := time.Now().UTC()
	m := &Member{
		ID:           uuid.New(),
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		DisplayName:  req.DisplayName,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

const sessionTTL = 24 * time.Hour

func (s *service) Login(ctx context.Context, req LoginRequest) (string, *Member, error) {
	m, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return "", nil, errors.New("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, errors.New("invalid credentials")
	}

	claims := &jwt.StandardClaims{
		Subject:   m.ID.String(),
		ExpiresAt: time.Now().Add(sessionTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, m, nil
}

func (s *service) Authenticate(ctx context.Context, tokenString string) (*Member, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtKey, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid session token")
	}
	return s.repo.GetByID(ctx, claims.Subject)
}

func (s *service) GetMember(ctx context.Context, id string) (*Member, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("member %s: %w", id, err)
		}
		return nil, err
	}
	return m, nil
}

func (s *service) ListMembers(ctx context.Context) ([]*Member, error) {
	return s.repo.List(ctx)
}

func (s *service) UpdateRole(ctx context.Context, id string, role actor.Role, by actor.Actor) (*Member, error) {
	if !by.IsOwner() {
		return nil, fmt.Errorf("only owners can change roles")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	m, err := s.repo.Update(ctx, id, func(m *Member) error {
		m.Role = role
		m.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.auditor.Record(ctx, audit.Entry{
		Action:     "member_role_changed",
		TargetID:   m.ID.String(),
		TargetType: "member",
		Summary:    fmt.Sprintf("role of %s set to %s", m.Email, role),
		ActorID:    by.ID,
		ActorRole:  string(by.Role),
	}); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) SetPublicKey(ctx context.Context, id string, publicKey string) (*Member, error) {
	raw, err := base64.RawURLEncoding.DecodeString(publicKey)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("public key must be a base64 curve25519 key")
	}
	return s.repo.Update(ctx, id, func(m *Member) error {
		m.PublicKey = publicKey
		m.UpdatedAt = time.Now().UTC()
		return nil
	})
}
