package mocks

import (
	"context"

	"github.com/rpggio/statuspage/internal/dnscheck"
	"github.com/rpggio/statuspage/internal/domain/audit"
	"github.com/rpggio/statuspage/internal/mirror"
	"github.com/rpggio/statuspage/internal/model"
	"github.com/stretchr/testify/mock"
)

// AuditRepository is a mock for audit.Repository.
type AuditRepository struct {
	mock.Mock
}

func (m *AuditRepository) Append(ctx context.Context, entry audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *AuditRepository) Recent(ctx context.Context, limit int) ([]audit.Entry, error) {
	args := m.Called(ctx, limit)
	if list, ok := args.Get(0).([]audit.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Auditor is a mock for the audit logger used by domain services.
type Auditor struct {
	mock.Mock
}

func (m *Auditor) Log(ctx context.Context, user *model.User, action string, meta map[string]any) error {
	args := m.Called(ctx, user, action, meta)
	return args.Error(0)
}

// Remote is a mock for hydrate.Remote.
type Remote struct {
	mock.Mock
}

func (m *Remote) LoadDataset(ctx context.Context) (*model.Dataset, bool, error) {
	args := m.Called(ctx)
	if d, ok := args.Get(0).(*model.Dataset); ok {
		return d, args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *Remote) LoadAudit(ctx context.Context, limit int) ([]audit.Entry, error) {
	args := m.Called(ctx, limit)
	if list, ok := args.Get(0).([]audit.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Remote) IsInitialized(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *Remote) PersistAll(ctx context.Context, d *model.Dataset) (mirror.Result, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(mirror.Result), args.Error(1)
}

func (m *Remote) AppendAudit(ctx context.Context, entries []audit.Entry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

// DomainValidator is a mock for project.DomainValidator.
type DomainValidator struct {
	mock.Mock
}

func (m *DomainValidator) Validate(ctx context.Context, domain, expectedTarget string) dnscheck.Result {
	args := m.Called(ctx, domain, expectedTarget)
	return args.Get(0).(dnscheck.Result)
}

func (m *DomainValidator) Target() string {
	args := m.Called()
	return args.String(0)
}
