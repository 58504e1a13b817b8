package localstore

import (
	"fmt"

	"github.com/rpggio/statuspage/internal/model"
)

const (
	defaultSupportEmail = "support@example.com"
	defaultBrandColor   = "#0052cc"
	defaultAboutText    = "Welcome to the status page. Here you can find live updates and incident history."
	defaultNextID       = 4000
)

// NewProject returns an empty project with every settings field populated.
func NewProject(id int64, name, slug, now string) *model.Project {
	return &model.Project{
		ID:   id,
		Name: name,
		Slug: slug,
		Settings: model.Settings{
			PageTitle:                 name + " Status",
			PageName:                  name + " Status",
			OrganizationLegalName:     name,
			CompanyName:               name,
			SupportEmail:              defaultSupportEmail,
			NotificationFromName:      name,
			NotificationFromEmail:     defaultSupportEmail,
			NotificationReplyToEmail:  defaultSupportEmail,
			NotificationFooterMessage: footerMessage(name),
			NotificationUseStatusLogo: model.Bool(true),
			DisplayMode:               "single",
			DefaultSMSCountryCode:     "+1",
			Timezone:                  "UTC",
			HideFromSearchEngines:     model.Bool(false),
			BrandColor:                defaultBrandColor,
			AboutText:                 defaultAboutText,
			ComponentsView:            "list",
			ShowUptime:                model.Bool(true),
			DisabledTabs:              map[string]bool{},
			RedirectDomains:           []string{},
			DomainAutomationProvider:  "firebase_hosting",
			CreatedAt:                 now,
		},
		Components:            []model.Component{},
		Incidents:             []model.Incident{},
		ScheduledMaintenances: []model.Maintenance{},
		IncidentTemplates:     []model.IncidentTemplate{},
		MaintenanceTemplates:  []model.MaintenanceTemplate{},
		Subscribers:           []model.Subscriber{},
		UptimeData:            map[string]map[string]string{},
		Analytics:             emptyAnalytics(now),
		CreatedAt:             now,
	}
}

// DefaultProject returns a project seeded with the regional component tree
// and the stock incident and maintenance templates.
func DefaultProject(id int64, name, slug, now string) *model.Project {
	p := NewProject(id, name, slug, now)
	base := id * 1000

	region := func(offset int64, name, description string, order int) model.Component {
		return component(base+offset, nil, name, description, order, now)
	}
	child := func(offset, parent int64, name, description string, order int) model.Component {
		parentID := base + parent
		return component(base+offset, &parentID, name, description, order, now)
	}

	p.Components = []model.Component{
		region(10, "USA", "United States region", 0),
		child(11, 10, "3E LIVE USA", "3E Cloud Live - USA", 0),
		child(12, 10, "3E PREVIEW USA", "3E Cloud Preview - USA", 1),
		region(13, "CANADA", "Canada region", 1),
		child(14, 13, "3E LIVE CANADA", "3E Cloud Live - Canada", 0),
		child(15, 13, "3E PREVIEW CANADA", "3E Cloud Preview - Canada", 1),
		region(16, "UK", "United Kingdom region", 2),
		child(17, 16, "3E LIVE UK", "3E Cloud Live - UK", 0),
		child(18, 16, "3E PREVIEW UK", "3E Cloud Preview - UK", 1),
		region(19, "EUROPE", "Europe region", 3),
		region(20, "AUSTRALIA", "Australia region", 4),
	}

	incident := func(offset int64, name, title, status, impact, message string) model.IncidentTemplate {
		return model.IncidentTemplate{
			ID: base + offset, Name: name, Title: title, Status: status, Impact: impact,
			Message: message, AffectedComponents: []int64{}, CreatedAt: now,
		}
	}
	p.IncidentTemplates = []model.IncidentTemplate{
		incident(100, "Service Outage", "Service Outage - [Region/Component]", "investigating", "major",
			"We are currently investigating reports of service disruption. Our engineering team has been alerted and is actively working to identify the root cause. We will provide an update within 30 minutes."),
		incident(101, "Degraded Performance", "Degraded Performance - [Region/Component]", "investigating", "minor",
			"We are aware of degraded performance affecting some users. Our team is investigating the issue and working to restore normal service levels. Updates will follow as we learn more."),
		incident(102, "Partial Outage", "Partial Outage - [Region/Component]", "investigating", "major",
			"A partial service outage has been detected affecting a subset of users. Our engineering team is actively working on mitigation. We expect to provide the next update within 30 minutes."),
		incident(103, "Security Incident", "Security Incident - Investigation in Progress", "investigating", "critical",
			"We have identified a security-related event and our security operations team is actively investigating. As a precaution, additional protective measures have been enabled. We will provide updates as more information becomes available."),
		incident(104, "DNS / Network Issue", "DNS / Network Connectivity Issue", "investigating", "major",
			"We are investigating reports of intermittent connectivity issues. This may affect access to some services. Our network team is working to identify and resolve the issue."),
		incident(105, "Third-Party Provider Issue", "Third-Party Provider Disruption - [Provider Name]", "identified", "minor",
			"We have identified that a third-party provider is experiencing issues that may impact our service. We are monitoring the situation closely and will provide updates as their status evolves."),
	}

	maintenance := func(offset int64, name, title, message string, minutes int) model.MaintenanceTemplate {
		return model.MaintenanceTemplate{
			ID: base + offset, Name: name, Title: title, Message: message,
			DefaultDurationMinutes: minutes, AffectedComponents: []int64{}, CreatedAt: now,
		}
	}
	p.MaintenanceTemplates = []model.MaintenanceTemplate{
		maintenance(200, "Scheduled Upgrade", "Scheduled Upgrade - [Version] [Region]",
			"A scheduled upgrade will be performed during the maintenance window. Users may experience brief interruptions as systems are updated. No action is required from your end.", 180),
		maintenance(201, "Infrastructure Maintenance", "Infrastructure Maintenance - [Description]",
			"Routine infrastructure maintenance is scheduled. There may be brief service interruptions during this period. We will update this notice once maintenance is complete.", 120),
		maintenance(202, "Database Maintenance", "Database Maintenance Window",
			"Scheduled database maintenance will be performed. Users may experience read-only access or brief downtime during this window. Please save your work before the maintenance begins.", 60),
		maintenance(203, "Security Patch", "Security Patch Deployment - [Region]",
			"A critical security patch will be deployed. While the update is designed to be non-disruptive, brief service interruptions may occur. This update is necessary to maintain our security standards.", 60),
		maintenance(204, "Network Maintenance", "Network Maintenance - [Region/Description]",
			"Routine network maintenance is scheduled. Connectivity may be intermittent during the maintenance window. We recommend scheduling critical operations outside this period.", 90),
	}
	return p
}

// DefaultDataset is the dataset used when no usable data file exists.
func DefaultDataset(now string) *model.Dataset {
	elite := DefaultProject(1, "3E Elite", "default", now)
	elite.Settings.DisplayMode = "triad"
	secondary, tertiary := int64(2), int64(3)
	elite.Settings.SecondaryProjectID = &secondary
	elite.Settings.TertiaryProjectID = &tertiary
	elite.Settings.BrandColor = "#8738ff"
	elite.Settings.AboutText = "This page provides the current statuses of 3E Cloud systems globally. " +
		"Please note the statuses of your specific region below.\n\n" +
		"Notices specific to a particular region will be noted in the title (ex. USA, CAN, UK, EU, AUS and the like). " +
		"If not noted, it applies globally."

	billing := DefaultProject(2, "ebillinghub", "ebillinghub", now)
	billing.Components = []model.Component{
		component(2010, nil, "EbillingHub Components", "EbillingHub system", 0, now),
	}

	payments := DefaultProject(3, "Elite Payments", "elite-payments", now)
	gateway := int64(3010)
	payments.Components = []model.Component{
		component(3010, nil, "Submission API", "Payment submission endpoint", 0, now),
		component(3011, &gateway, "Payment Gateway", "Payment processing gateway", 0, now),
	}

	return &model.Dataset{
		Users:         []*model.User{},
		Projects:      []*model.Project{elite, billing, payments},
		NextID:        defaultNextID,
		SchemaVersion: model.SchemaVersion,
	}
}

func component(id int64, parentID *int64, name, description string, order int, now string) model.Component {
	return model.Component{
		ID:          id,
		ParentID:    parentID,
		Name:        name,
		Description: description,
		Status:      model.StatusOperational,
		Order:       order,
		ShowUptime:  true,
		View:        "list",
		CreatedAt:   now,
	}
}

func emptyAnalytics(now string) model.Analytics {
	return model.Analytics{
		PageViewsByDay:      map[string]int{},
		UniqueVisitorsByDay: map[string]int{},
		VisitorHashesByDay:  map[string][]string{},
		UpdatedAt:           now,
	}
}

func footerMessage(name string) string {
	return fmt.Sprintf("You received this email because you are subscribed to %s status notifications.", name)
}
