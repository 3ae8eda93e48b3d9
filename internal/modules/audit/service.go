package audit

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Writer is the slice of the audit service that mutating modules depend on.
type Writer interface {
	// Record appends one entry; ID and timestamp are filled in when empty.
	Record(ctx context.Context, e Entry) error
}

// Service defines audit log business logic: the writer plus the admin viewer.
type Service interface {
	Writer

	// List returns a filtered page of entries, newest first.
	List(ctx context.Context, f Filter) (*Page, error)

	// ExportCSV writes the filtered entries (all pages) as CSV.
	ExportCSV(ctx context.Context, w io.Writer, f Filter) error

	// ExportXLSX writes the filtered entries (all pages) as a spreadsheet.
	ExportXLSX(ctx context.Context, w io.Writer, f Filter) error
}

type service struct{ repo Repository }

// NewService creates a new audit service.
func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) Record(ctx context.Context, e Entry) error {
	if e.Action == "" {
		return fmt.Errorf("audit entry requires an action")
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return s.repo.Append(ctx, &e)
}

const defaultPageSize = 50

func (s *service) List(ctx context.Context, f Filter) (*Page, error) {
	matched, err := s.filtered(ctx, f)
	if err != nil {
		return nil, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size < 1 {
		size = defaultPageSize
	}

	start := (page - 1) * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}

	return &Page{
		Entries:  matched[start:end],
		Total:    len(matched),
		Page:     page,
		PageSize: size,
	}, nil
}

// filtered returns all matching entries, newest first.
func (s *service) filtered(ctx context.Context, f Filter) ([]*Entry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*Entry, 0, len(entries))
	// Walk backwards: the log is append-ordered and the viewer wants newest first.
	for i := len(entries) - 1; i >= 0; i-- {
		if matches(entries[i], f) {
			matched = append(matched, entries[i])
		}
	}
	return matched, nil
}

func matches(e *Entry, f Filter) bool {
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.TargetType != "" && e.TargetType != f.TargetType {
		return false
	}
	if f.TargetID != "" && e.TargetID != f.TargetID {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(e.Summary), strings.ToLower(f.Search)) {
		return false
	}
	return true
}
