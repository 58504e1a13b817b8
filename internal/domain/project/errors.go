package project

import (
	"errors"
	"fmt"
)

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidInput indicates invalid project input.
	ErrInvalidInput = errors.New("invalid project input")
	// ErrSlugTaken indicates another project already uses the slug.
	ErrSlugTaken = errors.New("slug already in use")
	// ErrInvalidDomain indicates a malformed custom or redirect domain.
	ErrInvalidDomain = errors.New("invalid domain")
	// ErrDomainConflict indicates a domain already owned by another project.
	ErrDomainConflict = errors.New("domain already in use")
	// ErrNoDomains indicates a domain check on a project without domains.
	ErrNoDomains = errors.New("no domains configured for this project")
)

// DomainConflictError names the project that already owns a domain.
type DomainConflictError struct {
	Domain string
	Owner  Summary
}

func (e *DomainConflictError) Error() string {
	return fmt.Sprintf("domain %s already in use by project %q", e.Domain, e.Owner.Name)
}

func (e *DomainConflictError) Unwrap() error {
	return ErrDomainConflict
}
