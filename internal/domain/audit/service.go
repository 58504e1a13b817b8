package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rpggio/statuspage/internal/model"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ErrInvalidInput indicates an entry without an action.
var ErrInvalidInput = errors.New("invalid audit input")

// Service records and lists audit entries.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new audit service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Log appends an entry for action performed by user (nil for system actions).
func (s *Service) Log(ctx context.Context, user *model.User, action string, meta map[string]any) error {
	if action == "" {
		return ErrInvalidInput
	}
	if meta == nil {
		meta = map[string]any{}
	}
	entry := Entry{
		At:     model.Timestamp(s.now()),
		Action: action,
		Meta:   meta,
	}
	if user != nil {
		entry.User = &Actor{ID: user.ID, Username: user.Username, Role: user.Role}
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", "action", action, "error", err)
		return fmt.Errorf("appending audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	entries, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	return entries, nil
}
