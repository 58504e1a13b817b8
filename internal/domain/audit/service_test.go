package audit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/statuspage/internal/domain/audit"
	"github.com/rpggio/statuspage/internal/mocks"
	"github.com/rpggio/statuspage/internal/model"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuditService_LogAndRecent(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.AuditRepository{}
	user := &model.User{ID: 7, Username: "ops@example.com", Role: model.RoleAdmin}

	repo.On("Append", ctx, mock.MatchedBy(func(e audit.Entry) bool {
		return e.Action == audit.ActionProjectDelete &&
			e.User != nil && e.User.ID == 7 && e.User.Username == "ops@example.com" &&
			e.Meta["projectId"] == int64(3) && e.At != ""
	})).Return(nil)
	repo.On("Recent", ctx, audit.DefaultLimit).Return([]audit.Entry{{Action: audit.ActionProjectDelete}}, nil)

	svc := audit.NewService(repo, nil)
	require.NoError(t, svc.Log(ctx, user, audit.ActionProjectDelete, map[string]any{"projectId": int64(3)}))

	entries, err := svc.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	repo.AssertExpectations(t)
}

func TestAuditService_SystemActionHasNoUser(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.AuditRepository{}
	repo.On("Append", ctx, mock.MatchedBy(func(e audit.Entry) bool {
		return e.User == nil && e.Meta != nil
	})).Return(nil)

	svc := audit.NewService(repo, nil)
	require.NoError(t, svc.Log(ctx, nil, audit.ActionProjectCreate, nil))
	repo.AssertExpectations(t)
}

func TestAuditService_Errors(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.AuditRepository{}
	repo.On("Append", ctx, mock.Anything).Return(errors.New("disk full"))
	repo.On("Recent", ctx, audit.MaxLimit).Return(nil, errors.New("unreadable"))

	svc := audit.NewService(repo, nil)
	require.ErrorIs(t, svc.Log(ctx, nil, "", nil), audit.ErrInvalidInput)
	require.Error(t, svc.Log(ctx, nil, audit.ActionProjectCreate, nil))

	_, err := svc.Recent(ctx, 10_000)
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	require.Equal(t, `Created project "Widgets"`, audit.Summarize(audit.ActionProjectCreate, map[string]any{"name": "Widgets"}))
	require.Equal(t, "Updated project settings", audit.Summarize(audit.ActionSettingsUpdate, nil))
	require.Equal(t, "Updated settings (a, b)", audit.Summarize(audit.ActionSettingsUpdate, map[string]any{"fields": []any{"a", "b"}}))
	require.Equal(t, "Updated settings (a, b, c, d, ...)", audit.Summarize(audit.ActionSettingsUpdate, map[string]any{"fields": []string{"a", "b", "c", "d", "e"}}))
	require.Equal(t, "Deleted project", audit.Summarize(audit.ActionProjectDelete, nil))
	require.Equal(t, "custom.action", audit.Summarize("custom.action", nil))
}
