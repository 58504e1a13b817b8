package project

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/rpggio/statuspage/internal/dnscheck"
	"github.com/rpggio/statuspage/internal/domain/audit"
	"github.com/rpggio/statuspage/internal/hostname"
	"github.com/rpggio/statuspage/internal/localstore"
	"github.com/rpggio/statuspage/internal/model"
	"github.com/rpggio/statuspage/internal/tenant"
)

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Service handles project operations. Every mutation is saved through the
// store and audited.
type Service struct {
	store     Store
	auditor   Auditor
	validator DomainValidator
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new project service. validator may be nil when DNS
// checks are unavailable.
func NewService(store Store, auditor Auditor, validator DomainValidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{store: store, auditor: auditor, validator: validator, logger: logger, now: time.Now}
}

// MakeSlug lowercases name and joins its alphanumeric runs with dashes.
func MakeSlug(name string) string {
	return strings.Trim(slugSeparators.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// Create adds a project with default settings. A slug collision gets a
// timestamp suffix.
func (s *Service) Create(ctx context.Context, user *model.User, req CreateRequest) (*model.Project, error) {
	name := strings.TrimSpace(req.Name)
	slug := MakeSlug(name)
	if name == "" || slug == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalidInput)
	}

	now := s.now()
	var created *model.Project
	err := s.store.Mutate(func(d *model.Dataset) error {
		if d.ProjectBySlug(slug) != nil {
			slug = fmt.Sprintf("%s-%d", slug, now.UnixMilli())
		}
		p := localstore.NewProject(d.IssueID(), name, slug, model.Timestamp(now))
		d.Projects = append(d.Projects, p)
		var err error
		created, err = p.Clone()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.audit(ctx, user, audit.ActionProjectCreate, map[string]any{
		"projectId": created.ID,
		"name":      created.Name,
		"slug":      created.Slug,
	})
	return created, nil
}

// Get fetches a copy of a project by ID.
func (s *Service) Get(_ context.Context, id int64) (*model.Project, error) {
	var (
		out *model.Project
		err error
	)
	s.store.View(func(d *model.Dataset) {
		p := d.ProjectByID(id)
		if p == nil {
			err = ErrProjectNotFound
			return
		}
		out, err = p.Clone()
	})
	return out, err
}

// GetBySlug fetches a copy of a project by slug.
func (s *Service) GetBySlug(_ context.Context, slug string) (*model.Project, error) {
	var (
		out *model.Project
		err error
	)
	s.store.View(func(d *model.Dataset) {
		p := tenant.BySlug(d, slug)
		if p == nil {
			err = ErrProjectNotFound
			return
		}
		out, err = p.Clone()
	})
	return out, err
}

// List returns project summaries in dataset order.
func (s *Service) List(_ context.Context) []Summary {
	var out []Summary
	s.store.View(func(d *model.Dataset) {
		out = make([]Summary, 0, len(d.Projects))
		for _, p := range d.Projects {
			out = append(out, Summary{
				ID:           p.ID,
				Name:         p.Name,
				Slug:         p.Slug,
				CustomDomain: hostname.Primary(p.Settings.CustomDomain),
				CreatedAt:    p.CreatedAt,
			})
		}
	})
	return out
}

// Update renames a project or changes its slug.
func (s *Service) Update(ctx context.Context, user *model.User, id int64, req UpdateRequest) (*model.Project, error) {
	name := strings.TrimSpace(req.Name)
	slug := ""
	if strings.TrimSpace(req.Slug) != "" {
		slug = MakeSlug(req.Slug)
		if slug == "" {
			return nil, fmt.Errorf("%w: invalid slug %q", ErrInvalidInput, req.Slug)
		}
	}

	var updated *model.Project
	err := s.store.Mutate(func(d *model.Dataset) error {
		p := d.ProjectByID(id)
		if p == nil {
			return ErrProjectNotFound
		}
		if slug != "" {
			if other := d.ProjectBySlug(slug); other != nil && other.ID != id {
				return fmt.Errorf("%w: %s", ErrSlugTaken, slug)
			}
			p.Slug = slug
		}
		if name != "" {
			p.Name = name
		}
		var err error
		updated, err = p.Clone()
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, user, audit.ActionProjectUpdate, map[string]any{"projectId": id})
	return updated, nil
}

// UpdateDomains validates and stores new domains. Invalid hosts fail with
// ErrInvalidDomain; a host owned by another project fails with a
// *DomainConflictError.
func (s *Service) UpdateDomains(ctx context.Context, user *model.User, id int64, req DomainsRequest) (*Domains, error) {
	var primary string
	if req.CustomDomain != nil {
		primary = hostname.Normalize(*req.CustomDomain)
		if strings.TrimSpace(*req.CustomDomain) != "" && !hostname.IsValid(primary) {
			return nil, fmt.Errorf("%w: custom domain %q", ErrInvalidDomain, *req.CustomDomain)
		}
	}
	if req.RedirectDomains != nil {
		var invalid []string
		for _, raw := range hostname.SplitInput(req.RedirectDomains...) {
			if !hostname.IsValid(hostname.Normalize(raw)) {
				invalid = append(invalid, raw)
			}
		}
		if len(invalid) > 0 {
			return nil, fmt.Errorf("%w: redirect domain(s) %s", ErrInvalidDomain, strings.Join(invalid, ", "))
		}
	}

	var (
		out    *Domains
		fields []string
	)
	err := s.store.Mutate(func(d *model.Dataset) error {
		p := d.ProjectByID(id)
		if p == nil {
			return ErrProjectNotFound
		}
		nextPrimary := hostname.Primary(p.Settings.CustomDomain)
		if req.CustomDomain != nil {
			nextPrimary = primary
			fields = append(fields, "customDomain")
		}
		redirects := p.Settings.RedirectDomains
		if req.RedirectDomains != nil {
			redirects = req.RedirectDomains
			fields = append(fields, "redirectDomains")
		}
		nextRedirects := hostname.Redirects(nextPrimary, redirects)

		for _, host := range append([]string{nextPrimary}, nextRedirects...) {
			if host == "" {
				continue
			}
			if owner := tenant.FindDomainConflict(d, host, id); owner != nil {
				return &DomainConflictError{
					Domain: host,
					Owner:  Summary{ID: owner.ID, Name: owner.Name, Slug: owner.Slug},
				}
			}
		}

		p.Settings.CustomDomain = nextPrimary
		p.Settings.RedirectDomains = nextRedirects
		out = &Domains{ProjectID: id, CustomDomain: nextPrimary, RedirectDomains: append([]string{}, nextRedirects...)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, user, audit.ActionSettingsUpdate, map[string]any{"projectId": id, "fields": fields})
	return out, nil
}

// Delete removes a project.
func (s *Service) Delete(ctx context.Context, user *model.User, id int64) error {
	err := s.store.Mutate(func(d *model.Dataset) error {
		for i, p := range d.Projects {
			if p.ID == id {
				d.Projects = append(d.Projects[:i], d.Projects[i+1:]...)
				return nil
			}
		}
		return ErrProjectNotFound
	})
	if err != nil {
		return err
	}
	s.audit(ctx, user, audit.ActionProjectDelete, map[string]any{"projectId": id})
	return nil
}

// ValidateDomains checks domain, or every configured domain of the project
// when domain is empty, in DNS. Redirect domains are expected to point at
// the primary domain.
func (s *Service) ValidateDomains(ctx context.Context, id int64, domain string) (*DomainReport, error) {
	if s.validator == nil {
		return nil, errors.New("domain validation is not configured")
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	primary := hostname.Primary(p.Settings.CustomDomain)

	var domains []string
	if strings.TrimSpace(domain) != "" {
		requested := hostname.Normalize(domain)
		if requested == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDomain, domain)
		}
		domains = []string{requested}
	} else {
		if primary != "" {
			domains = append(domains, primary)
		}
		domains = append(domains, hostname.Redirects(primary, p.Settings.RedirectDomains)...)
	}
	if len(domains) == 0 {
		return nil, ErrNoDomains
	}

	expected := s.validator.Target()
	report := &DomainReport{
		ProjectID:      id,
		ExpectedTarget: expected,
		ValidatedAt:    model.Timestamp(s.now()),
		AllOK:          true,
	}
	for _, host := range hostname.NormalizeList(domains) {
		target := expected
		if host != primary && primary != "" {
			target = primary
		}
		res := s.validator.Validate(ctx, host, target)
		report.AllOK = report.AllOK && res.Status == dnscheck.StatusOK
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func (s *Service) audit(ctx context.Context, user *model.User, action string, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Log(ctx, user, action, meta); err != nil {
		s.logger.Warn("audit log failed", "action", action, "error", err)
	}
}
