package model

// Component status values.
const (
	StatusOperational         = "operational"
	StatusDegradedPerformance = "degraded_performance"
	StatusPartialOutage       = "partial_outage"
	StatusMajorOutage         = "major_outage"
	StatusUnderMaintenance    = "under_maintenance"
)

// Project is one tenant: a status page with its components, incidents and
// configuration.
type Project struct {
	ID                    int64                        `json:"id"`
	Name                  string                       `json:"name"`
	Slug                  string                       `json:"slug"`
	Settings              Settings                     `json:"settings"`
	Components            []Component                  `json:"components"`
	Incidents             []Incident                   `json:"incidents"`
	ScheduledMaintenances []Maintenance                `json:"scheduledMaintenances"`
	IncidentTemplates     []IncidentTemplate           `json:"incidentTemplates"`
	MaintenanceTemplates  []MaintenanceTemplate        `json:"maintenanceTemplates"`
	Subscribers           []Subscriber                 `json:"subscribers"`
	UptimeData            map[string]map[string]string `json:"uptimeData"`
	Analytics             Analytics                    `json:"analytics"`
	CreatedAt             string                       `json:"createdAt,omitempty"`
}

// Settings holds per-project display, notification and domain configuration.
// Boolean flags are pointers so an absent value can be told apart from false.
type Settings struct {
	PageTitle                 string          `json:"pageTitle"`
	PageName                  string          `json:"pageName"`
	OrganizationLegalName     string          `json:"organizationLegalName"`
	CompanyName               string          `json:"companyName"`
	CompanyURL                string          `json:"companyUrl"`
	SupportURL                string          `json:"supportUrl"`
	PrivacyPolicyURL          string          `json:"privacyPolicyUrl"`
	SupportEmail              string          `json:"supportEmail"`
	NotificationFromName      string          `json:"notificationFromName"`
	NotificationFromEmail     string          `json:"notificationFromEmail"`
	NotificationReplyToEmail  string          `json:"notificationReplyToEmail"`
	NotificationFooterMessage string          `json:"notificationFooterMessage"`
	NotificationLogoURL       string          `json:"notificationLogoUrl"`
	NotificationUseStatusLogo *bool           `json:"notificationUseStatusLogo,omitempty"`
	StatusPageLogoURL         string          `json:"statusPageLogoUrl"`
	AdminPanelLogoURL         string          `json:"adminPanelLogoUrl"`
	DisplayMode               string          `json:"displayMode"`
	SecondaryProjectID        *int64          `json:"secondaryProjectId"`
	TertiaryProjectID         *int64          `json:"tertiaryProjectId"`
	DefaultSMSCountryCode     string          `json:"defaultSmsCountryCode"`
	Timezone                  string          `json:"timezone"`
	GoogleAnalyticsTrackingID string          `json:"googleAnalyticsTrackingId"`
	HideFromSearchEngines     *bool           `json:"hideFromSearchEngines,omitempty"`
	BrandColor                string          `json:"brandColor"`
	AboutText                 string          `json:"aboutText"`
	ComponentsView            string          `json:"componentsView"`
	ShowUptime                *bool           `json:"showUptime,omitempty"`
	DisabledTabs              map[string]bool `json:"disabledTabs"`
	CustomDomain              string          `json:"customDomain"`
	RedirectDomains           []string        `json:"redirectDomains"`
	DomainAutomationProvider  string          `json:"domainAutomationProvider"`
	DomainRegistrar           string          `json:"domainRegistrar"`
	DNSProvider               string          `json:"dnsProvider"`
	DomainContactEmail        string          `json:"domainContactEmail"`
	DNSProviderAccountID      string          `json:"dnsProviderAccountId"`
	DNSProviderZone           string          `json:"dnsProviderZone"`
	CreatedAt                 string          `json:"createdAt,omitempty"`
}

// Component is a monitored service shown on the status page.
type Component struct {
	ID          int64  `json:"id"`
	ParentID    *int64 `json:"parentId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Order       int    `json:"order"`
	ShowUptime  bool   `json:"showUptime"`
	View        string `json:"view"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// StatusUpdate is one entry in an incident or maintenance timeline.
type StatusUpdate struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Incident is an unplanned disruption.
type Incident struct {
	ID                 int64          `json:"id"`
	Title              string         `json:"title"`
	Status             string         `json:"status"`
	Impact             string         `json:"impact"`
	AffectedComponents []int64        `json:"affectedComponents"`
	Updates            []StatusUpdate `json:"updates"`
	CreatedAt          string         `json:"createdAt,omitempty"`
	ResolvedAt         *string        `json:"resolvedAt"`
}

// Maintenance is a scheduled maintenance window.
type Maintenance struct {
	ID                 int64          `json:"id"`
	Title              string         `json:"title"`
	Status             string         `json:"status"`
	Message            string         `json:"message"`
	ScheduledStart     string         `json:"scheduledStart"`
	ScheduledEnd       string         `json:"scheduledEnd"`
	AffectedComponents []int64        `json:"affectedComponents"`
	Updates            []StatusUpdate `json:"updates"`
	CreatedAt          string         `json:"createdAt,omitempty"`
}

type IncidentTemplate struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Title              string  `json:"title"`
	Status             string  `json:"status"`
	Impact             string  `json:"impact"`
	Message            string  `json:"message"`
	AffectedComponents []int64 `json:"affectedComponents"`
	CreatedAt          string  `json:"createdAt,omitempty"`
}

type MaintenanceTemplate struct {
	ID                     int64   `json:"id"`
	Name                   string  `json:"name"`
	Title                  string  `json:"title"`
	Message                string  `json:"message"`
	DefaultDurationMinutes int     `json:"defaultDurationMinutes"`
	AffectedComponents     []int64 `json:"affectedComponents"`
	CreatedAt              string  `json:"createdAt,omitempty"`
}

// Subscriber receives notifications by email or webhook.
type Subscriber struct {
	ID        int64  `json:"id"`
	Email     string `json:"email,omitempty"`
	Webhook   string `json:"webhook,omitempty"`
	Confirmed bool   `json:"confirmed,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Analytics holds per-day page view counters.
type Analytics struct {
	PageViewsByDay      map[string]int      `json:"pageViewsByDay"`
	UniqueVisitorsByDay map[string]int      `json:"uniqueVisitorsByDay"`
	VisitorHashesByDay  map[string][]string `json:"visitorHashesByDay"`
	UpdatedAt           string              `json:"updatedAt,omitempty"`
}

// AllowedTabs lists the admin tabs that may be disabled per project.
var AllowedTabs = []string{"components", "incidents", "maintenance", "subscribers", "projects", "users", "settings"}

// SanitizeDisabledTabs keeps only the known tab keys.
func SanitizeDisabledTabs(in map[string]bool) map[string]bool {
	out := map[string]bool{}
	for _, key := range AllowedTabs {
		if v, ok := in[key]; ok {
			out[key] = v
		}
	}
	return out
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}
