package localstore

import (
	"github.com/rpggio/statuspage/internal/hostname"
	"github.com/rpggio/statuspage/internal/model"
)

// normalize brings a decoded dataset to the shape every reader relies on.
// It only fills what is missing or invalid and is idempotent.
func normalize(d *model.Dataset, now string) {
	if d.Users == nil {
		d.Users = []*model.User{}
	}
	users := d.Users[:0]
	for _, u := range d.Users {
		if u != nil {
			users = append(users, u)
		}
	}
	d.Users = users

	projects := make([]*model.Project, 0, len(d.Projects))
	for _, p := range d.Projects {
		if p == nil {
			continue
		}
		NormalizeProject(p, now)
		projects = append(projects, p)
	}
	d.Projects = projects

	if d.NextID <= 0 {
		d.NextID = model.MinNextID
	}
	if max := d.MaxID(); d.NextID <= max {
		d.NextID = max + 1
	}
	if d.SchemaVersion < model.SchemaVersion {
		d.SchemaVersion = model.SchemaVersion
	}
}

// NormalizeProject backfills settings defaults, repairs domain fields and
// makes sure every collection exists.
func NormalizeProject(p *model.Project, now string) {
	s := &p.Settings
	orString := func(field *string, fallback string) {
		if *field == "" {
			*field = fallback
		}
	}
	orBool := func(field **bool, fallback bool) {
		if *field == nil {
			*field = model.Bool(fallback)
		}
	}

	name := p.Name
	orString(&s.PageTitle, firstNonEmpty(name, "Status")+" Status")
	orString(&s.PageName, s.PageTitle)
	orString(&s.OrganizationLegalName, name)
	orString(&s.CompanyName, name)
	orString(&s.SupportEmail, defaultSupportEmail)
	orString(&s.NotificationFromName, firstNonEmpty(s.OrganizationLegalName, s.CompanyName, name))
	orString(&s.NotificationFromEmail, s.SupportEmail)
	orString(&s.NotificationReplyToEmail, s.SupportEmail)
	orString(&s.NotificationFooterMessage, footerMessage(firstNonEmpty(s.PageName, s.PageTitle, name, "this service")))
	orBool(&s.NotificationUseStatusLogo, true)
	orString(&s.DisplayMode, "single")
	orString(&s.DefaultSMSCountryCode, "+1")
	orString(&s.Timezone, "UTC")
	orBool(&s.HideFromSearchEngines, false)
	orString(&s.BrandColor, defaultBrandColor)
	orString(&s.AboutText, defaultAboutText)
	orString(&s.ComponentsView, "list")
	orBool(&s.ShowUptime, true)
	s.DisabledTabs = model.SanitizeDisabledTabs(s.DisabledTabs)

	s.CustomDomain = hostname.Primary(s.CustomDomain)
	s.RedirectDomains = hostname.Redirects(s.CustomDomain, s.RedirectDomains)

	if p.Components == nil {
		p.Components = []model.Component{}
	}
	if p.Incidents == nil {
		p.Incidents = []model.Incident{}
	}
	if p.ScheduledMaintenances == nil {
		p.ScheduledMaintenances = []model.Maintenance{}
	}
	if p.IncidentTemplates == nil {
		p.IncidentTemplates = []model.IncidentTemplate{}
	}
	if p.MaintenanceTemplates == nil {
		p.MaintenanceTemplates = []model.MaintenanceTemplate{}
	}
	if p.Subscribers == nil {
		p.Subscribers = []model.Subscriber{}
	}
	if p.UptimeData == nil {
		p.UptimeData = map[string]map[string]string{}
	}

	a := &p.Analytics
	if a.PageViewsByDay == nil {
		a.PageViewsByDay = map[string]int{}
	}
	if a.UniqueVisitorsByDay == nil {
		a.UniqueVisitorsByDay = map[string]int{}
	}
	if a.VisitorHashesByDay == nil {
		a.VisitorHashesByDay = map[string][]string{}
	}
	orString(&a.UpdatedAt, now)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
