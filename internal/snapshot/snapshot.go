// Package snapshot derives the public, sanitized view of a project. The
// projection is what public readers and the public remote collection see;
// internal settings never leave through it.
package snapshot

import (
	"fmt"
	"sort"
	"time"

	"github.com/rpggio/statuspage/internal/hostname"
	"github.com/rpggio/statuspage/internal/model"
)

// PublicSettings is the whitelisted subset of model.Settings.
type PublicSettings struct {
	PageTitle                 string          `json:"pageTitle"`
	PageName                  string          `json:"pageName"`
	OrganizationLegalName     string          `json:"organizationLegalName"`
	CompanyName               string          `json:"companyName"`
	CompanyURL                string          `json:"companyUrl"`
	SupportURL                string          `json:"supportUrl"`
	PrivacyPolicyURL          string          `json:"privacyPolicyUrl"`
	NotificationFromName      string          `json:"notificationFromName"`
	NotificationFromEmail     string          `json:"notificationFromEmail"`
	NotificationReplyToEmail  string          `json:"notificationReplyToEmail"`
	NotificationFooterMessage string          `json:"notificationFooterMessage"`
	NotificationLogoURL       string          `json:"notificationLogoUrl"`
	NotificationUseStatusLogo bool            `json:"notificationUseStatusLogo"`
	DefaultSMSCountryCode     string          `json:"defaultSmsCountryCode"`
	Timezone                  string          `json:"timezone"`
	GoogleAnalyticsTrackingID string          `json:"googleAnalyticsTrackingId"`
	HideFromSearchEngines     bool            `json:"hideFromSearchEngines"`
	BrandColor                string          `json:"brandColor"`
	AboutText                 string          `json:"aboutText"`
	ComponentsView            string          `json:"componentsView"`
	ShowUptime                bool            `json:"showUptime"`
	DisabledTabs              map[string]bool `json:"disabledTabs"`
	CustomDomain              string          `json:"customDomain"`
	RedirectDomains           []string        `json:"redirectDomains"`
	DisplayMode               string          `json:"displayMode"`
	SecondaryProjectID        *int64          `json:"secondaryProjectId"`
	TertiaryProjectID         *int64          `json:"tertiaryProjectId"`
	StatusPageLogoURL         string          `json:"statusPageLogoUrl"`
}

// PublicProject is the public projection of a project.
type PublicProject struct {
	ID                    int64                        `json:"id"`
	Name                  string                       `json:"name"`
	Slug                  string                       `json:"slug"`
	CustomDomain          string                       `json:"customDomain"`
	RedirectDomains       []string                     `json:"redirectDomains"`
	Settings              PublicSettings               `json:"settings"`
	Components            []model.Component            `json:"components"`
	Incidents             []model.Incident             `json:"incidents"`
	ScheduledMaintenances []model.Maintenance          `json:"scheduledMaintenances"`
	UptimeData            map[string]map[string]string `json:"uptimeData"`
	OverallStatus         string                       `json:"overallStatus"`
	UpdatedAt             string                       `json:"updatedAt"`
}

// Projector builds public projections stamped with the current time.
type Projector struct {
	now func() time.Time
}

// NewProjector creates a projector; a nil clock means time.Now.
func NewProjector(now func() time.Time) *Projector {
	if now == nil {
		now = time.Now
	}
	return &Projector{now: now}
}

// Project returns an independent public projection of p.
func (pr *Projector) Project(p *model.Project) (*PublicProject, error) {
	src, err := p.Clone()
	if err != nil {
		return nil, fmt.Errorf("projecting project %d: %w", p.ID, err)
	}

	settings := Settings(src.Settings)
	components := nonNil(src.Components)
	SortComponents(components)
	incidents := nonNil(src.Incidents)
	sort.SliceStable(incidents, func(i, j int) bool {
		return model.ParseTime(incidents[i].CreatedAt).After(model.ParseTime(incidents[j].CreatedAt))
	})
	maintenances := nonNil(src.ScheduledMaintenances)
	sort.SliceStable(maintenances, func(i, j int) bool {
		return model.ParseTime(maintenances[i].ScheduledStart).Before(model.ParseTime(maintenances[j].ScheduledStart))
	})
	uptime := src.UptimeData
	if uptime == nil {
		uptime = map[string]map[string]string{}
	}

	return &PublicProject{
		ID:                    src.ID,
		Name:                  src.Name,
		Slug:                  src.Slug,
		CustomDomain:          settings.CustomDomain,
		RedirectDomains:       append([]string(nil), settings.RedirectDomains...),
		Settings:              settings,
		Components:            components,
		Incidents:             incidents,
		ScheduledMaintenances: maintenances,
		UptimeData:            uptime,
		OverallStatus:         OverallStatus(components),
		UpdatedAt:             model.Timestamp(pr.now()),
	}, nil
}

// Settings returns the public subset of s with display defaults applied.
func Settings(s model.Settings) PublicSettings {
	primary := hostname.Primary(s.CustomDomain)
	return PublicSettings{
		PageTitle:                 s.PageTitle,
		PageName:                  s.PageName,
		OrganizationLegalName:     s.OrganizationLegalName,
		CompanyName:               s.CompanyName,
		CompanyURL:                s.CompanyURL,
		SupportURL:                s.SupportURL,
		PrivacyPolicyURL:          s.PrivacyPolicyURL,
		NotificationFromName:      s.NotificationFromName,
		NotificationFromEmail:     s.NotificationFromEmail,
		NotificationReplyToEmail:  s.NotificationReplyToEmail,
		NotificationFooterMessage: s.NotificationFooterMessage,
		NotificationLogoURL:       s.NotificationLogoURL,
		NotificationUseStatusLogo: s.NotificationUseStatusLogo == nil || *s.NotificationUseStatusLogo,
		DefaultSMSCountryCode:     orDefault(s.DefaultSMSCountryCode, "+1"),
		Timezone:                  orDefault(s.Timezone, "UTC"),
		GoogleAnalyticsTrackingID: s.GoogleAnalyticsTrackingID,
		HideFromSearchEngines:     s.HideFromSearchEngines != nil && *s.HideFromSearchEngines,
		BrandColor:                orDefault(s.BrandColor, "#0052cc"),
		AboutText:                 s.AboutText,
		ComponentsView:            orDefault(s.ComponentsView, "list"),
		ShowUptime:                s.ShowUptime == nil || *s.ShowUptime,
		DisabledTabs:              model.SanitizeDisabledTabs(s.DisabledTabs),
		CustomDomain:              primary,
		RedirectDomains:           hostname.Redirects(primary, s.RedirectDomains),
		DisplayMode:               orDefault(s.DisplayMode, "single"),
		SecondaryProjectID:        positive(s.SecondaryProjectID),
		TertiaryProjectID:         positive(s.TertiaryProjectID),
		StatusPageLogoURL:         s.StatusPageLogoURL,
	}
}

// SortComponents orders components by display order, then id.
func SortComponents(components []model.Component) {
	sort.SliceStable(components, func(i, j int) bool {
		if components[i].Order != components[j].Order {
			return components[i].Order < components[j].Order
		}
		return components[i].ID < components[j].ID
	})
}

var statusPrecedence = []string{
	model.StatusMajorOutage,
	model.StatusPartialOutage,
	model.StatusDegradedPerformance,
	model.StatusUnderMaintenance,
}

// OverallStatus returns the most severe component status, or operational.
func OverallStatus(components []model.Component) string {
	for _, status := range statusPrecedence {
		for _, c := range components {
			if c.Status == status {
				return status
			}
		}
	}
	return model.StatusOperational
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func positive(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	v := *id
	return &v
}
