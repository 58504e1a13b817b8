package project

import (
	"context"

	"github.com/rpggio/statuspage/internal/dnscheck"
	"github.com/rpggio/statuspage/internal/model"
)

// Store gives synchronized access to the authoritative dataset.
type Store interface {
	View(fn func(d *model.Dataset))
	Mutate(fn func(d *model.Dataset) error) error
}

// Auditor records audited actions.
type Auditor interface {
	Log(ctx context.Context, user *model.User, action string, meta map[string]any) error
}

// DomainValidator checks domains in DNS.
type DomainValidator interface {
	Validate(ctx context.Context, domain, expectedTarget string) dnscheck.Result
	Target() string
}
