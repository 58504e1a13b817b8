// Package tenant maps slugs and hostnames to projects and keeps custom
// domains unique across projects.
package tenant

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rpggio/statuspage/internal/hostname"
	"github.com/rpggio/statuspage/internal/model"
)

// ErrNotFound is returned when no project matches a slug or host.
var ErrNotFound = errors.New("project not found")

// Match is the outcome of resolving a request host.
type Match struct {
	Project *model.Project
	// Host is the normalized request host.
	Host string
	// Primary is the project's primary domain, "" when none is configured.
	Primary string
	// Redirect is set when Host is a redirect domain and the caller should
	// send the client to Primary.
	Redirect bool
}

// BySlug returns the project with the given slug, or nil.
func BySlug(d *model.Dataset, slug string) *model.Project {
	if slug == "" {
		return nil
	}
	return d.ProjectBySlug(slug)
}

// ByHost resolves host against primary domains first and redirect domains
// second. The returned project aliases d.
func ByHost(d *model.Dataset, host string) (Match, bool) {
	host = hostname.Normalize(host)
	if host == "" {
		return Match{}, false
	}
	for _, p := range d.Projects {
		if hostname.Primary(p.Settings.CustomDomain) == host {
			return Match{Project: p, Host: host, Primary: host}, true
		}
	}
	for _, p := range d.Projects {
		primary := hostname.Primary(p.Settings.CustomDomain)
		for _, redirect := range hostname.NormalizeList(p.Settings.RedirectDomains) {
			if redirect != host {
				continue
			}
			return Match{
				Project:  p,
				Host:     host,
				Primary:  primary,
				Redirect: primary != "" && primary != host,
			}, true
		}
	}
	return Match{}, false
}

// FindDomainConflict returns the project other than excludeID that already
// claims host as its primary or redirect domain.
func FindDomainConflict(d *model.Dataset, host string, excludeID int64) *model.Project {
	host = hostname.Normalize(host)
	if host == "" {
		return nil
	}
	for _, p := range d.Projects {
		if p.ID == excludeID {
			continue
		}
		if hostname.Primary(p.Settings.CustomDomain) == host {
			return p
		}
		for _, redirect := range hostname.NormalizeList(p.Settings.RedirectDomains) {
			if redirect == host {
				return p
			}
		}
	}
	return nil
}

// Viewer gives read access to the authoritative dataset.
type Viewer interface {
	View(fn func(d *model.Dataset))
}

// Resolver answers tenant lookups against a live dataset. Every project it
// returns is a copy, safe to keep after the call.
type Resolver struct {
	store Viewer
}

// NewResolver creates a resolver over store.
func NewResolver(store Viewer) *Resolver {
	return &Resolver{store: store}
}

// BySlug returns a copy of the project with the given slug.
func (r *Resolver) BySlug(slug string) (*model.Project, error) {
	var (
		out *model.Project
		err error
	)
	r.store.View(func(d *model.Dataset) {
		p := BySlug(d, slug)
		if p == nil {
			err = fmt.Errorf("%w: slug %q", ErrNotFound, slug)
			return
		}
		out, err = p.Clone()
	})
	return out, err
}

// ByHost resolves a request host. The match carries a copy of the project.
func (r *Resolver) ByHost(host string) (Match, error) {
	var (
		out Match
		err error
	)
	r.store.View(func(d *model.Dataset) {
		m, ok := ByHost(d, host)
		if !ok {
			err = fmt.Errorf("%w: host %q", ErrNotFound, host)
			return
		}
		out = m
		out.Project, err = m.Project.Clone()
	})
	return out, err
}

// CheckDomainConflict returns a copy of the project other than excludeID that
// owns host, or nil when the host is free.
func (r *Resolver) CheckDomainConflict(host string, excludeID int64) (*model.Project, error) {
	var (
		out *model.Project
		err error
	)
	r.store.View(func(d *model.Dataset) {
		if p := FindDomainConflict(d, host, excludeID); p != nil {
			out, err = p.Clone()
		}
	})
	return out, err
}

// RedirectURL builds the absolute URL on target that preserves the path and
// query of r.
func RedirectURL(r *http.Request, target string) string {
	return scheme(r, target) + "://" + target + r.URL.RequestURI()
}

func scheme(r *http.Request, target string) string {
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return strings.ToLower(first)
		}
	}
	if r.TLS != nil {
		return "https"
	}
	if target == "localhost" || target == "127.0.0.1" {
		return "http"
	}
	return "https"
}
