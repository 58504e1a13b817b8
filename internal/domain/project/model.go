package project

import "github.com/rpggio/statuspage/internal/dnscheck"

// Summary is a lightweight representation for listing.
type Summary struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	CustomDomain string `json:"customDomain"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	Name string `json:"name"`
}

// UpdateRequest renames a project or changes its slug. Empty fields are left
// unchanged.
type UpdateRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// DomainsRequest changes a project's domains. A nil field keeps the current
// value; an empty one clears it.
type DomainsRequest struct {
	CustomDomain    *string  `json:"customDomain"`
	RedirectDomains []string `json:"redirectDomains"`
}

// Domains is the domain configuration of a project.
type Domains struct {
	ProjectID       int64    `json:"projectId"`
	CustomDomain    string   `json:"customDomain"`
	RedirectDomains []string `json:"redirectDomains"`
}

// DomainReport is the DNS check of every domain of a project.
type DomainReport struct {
	ProjectID      int64             `json:"projectId"`
	ExpectedTarget string            `json:"expectedTarget"`
	ValidatedAt    string            `json:"validatedAt"`
	AllOK          bool              `json:"allOk"`
	Results        []dnscheck.Result `json:"results"`
}
