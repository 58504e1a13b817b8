package snapshot

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rpggio/statuspage/internal/model"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func sampleProject() *model.Project {
	resolved := "2026-02-02T00:00:00.000Z"
	secondary := int64(0)
	return &model.Project{
		ID:   7,
		Name: "Widgets",
		Slug: "widgets",
		Settings: model.Settings{
			PageTitle:             "Widgets Status",
			SupportEmail:          "ops@widgets.example",
			AdminPanelLogoURL:     "https://cdn.example/admin.png",
			DNSProviderAccountID:  "acct-123",
			DNSProviderZone:       "zone-9",
			CustomDomain:          "Status.Widgets.Example.",
			RedirectDomains:       []string{"old.widgets.example", "status.widgets.example", "not a host"},
			DisabledTabs:          map[string]bool{"users": true, "bogus": true},
			HideFromSearchEngines: model.Bool(true),
			SecondaryProjectID:    &secondary,
		},
		Components: []model.Component{
			{ID: 30, Name: "C", Order: 2, Status: model.StatusOperational},
			{ID: 20, Name: "B", Order: 1, Status: model.StatusDegradedPerformance},
			{ID: 10, Name: "A", Order: 2, Status: model.StatusOperational},
		},
		Incidents: []model.Incident{
			{ID: 1, Title: "old", CreatedAt: "2026-01-01T00:00:00.000Z", ResolvedAt: &resolved},
			{ID: 2, Title: "new", CreatedAt: "2026-03-01T00:00:00.000Z"},
		},
		ScheduledMaintenances: []model.Maintenance{
			{ID: 5, Title: "later", ScheduledStart: "2026-05-01T00:00:00.000Z"},
			{ID: 6, Title: "sooner", ScheduledStart: "2026-04-01T00:00:00.000Z"},
		},
		IncidentTemplates: []model.IncidentTemplate{{ID: 100, Name: "tmpl"}},
		Subscribers:       []model.Subscriber{{ID: 200, Email: "a@b.example"}},
		Analytics:         model.Analytics{PageViewsByDay: map[string]int{"2026-03-01": 4}},
	}
}

func TestProject_SortsAndStamps(t *testing.T) {
	pr := NewProjector(func() time.Time { return fixedNow })
	out, err := pr.Project(sampleProject())
	require.NoError(t, err)

	var ids []int64
	for _, c := range out.Components {
		ids = append(ids, c.ID)
	}
	require.Equal(t, []int64{20, 10, 30}, ids)
	require.Equal(t, "new", out.Incidents[0].Title)
	require.Equal(t, "sooner", out.ScheduledMaintenances[0].Title)
	require.Equal(t, "2026-03-04T05:06:07.000Z", out.UpdatedAt)
	require.Equal(t, model.StatusDegradedPerformance, out.OverallStatus)
}

func TestProject_NormalizesDomains(t *testing.T) {
	out, err := NewProjector(nil).Project(sampleProject())
	require.NoError(t, err)

	require.Equal(t, "status.widgets.example", out.CustomDomain)
	require.Equal(t, []string{"old.widgets.example"}, out.RedirectDomains)
	require.Equal(t, out.CustomDomain, out.Settings.CustomDomain)
	require.Equal(t, map[string]bool{"users": true}, out.Settings.DisabledTabs)
	require.Nil(t, out.Settings.SecondaryProjectID)
	require.True(t, out.Settings.HideFromSearchEngines)
	require.True(t, out.Settings.ShowUptime)
	require.Equal(t, "UTC", out.Settings.Timezone)
}

func TestProject_OmitsInternalFields(t *testing.T) {
	out, err := NewProjector(nil).Project(sampleProject())
	require.NoError(t, err)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, key := range []string{"subscribers", "analytics", "incidentTemplates", "maintenanceTemplates"} {
		require.NotContains(t, doc, key)
	}

	var settings map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc["settings"], &settings))
	for _, key := range []string{"supportEmail", "adminPanelLogoUrl", "dnsProviderAccountId", "dnsProviderZone", "domainRegistrar", "createdAt"} {
		require.NotContains(t, settings, key)
	}
	require.Contains(t, settings, "pageTitle")
}

func TestProject_DoesNotAliasSource(t *testing.T) {
	src := sampleProject()
	out, err := NewProjector(nil).Project(src)
	require.NoError(t, err)

	out.Components[0].Name = "changed"
	require.Equal(t, "C", src.Components[0].Name)
	require.Equal(t, int64(30), src.Components[0].ID, "source order is untouched")
}

func TestProject_EmptyCollections(t *testing.T) {
	out, err := NewProjector(nil).Project(&model.Project{ID: 1, Name: "Empty", Slug: "empty"})
	require.NoError(t, err)

	require.NotNil(t, out.Components)
	require.NotNil(t, out.Incidents)
	require.NotNil(t, out.ScheduledMaintenances)
	require.NotNil(t, out.UptimeData)
	require.NotNil(t, out.RedirectDomains)
	require.Equal(t, model.StatusOperational, out.OverallStatus)
}

func TestOverallStatus_Precedence(t *testing.T) {
	cases := []struct {
		statuses []string
		want     string
	}{
		{nil, model.StatusOperational},
		{[]string{model.StatusUnderMaintenance, model.StatusOperational}, model.StatusUnderMaintenance},
		{[]string{model.StatusUnderMaintenance, model.StatusDegradedPerformance}, model.StatusDegradedPerformance},
		{[]string{model.StatusDegradedPerformance, model.StatusPartialOutage}, model.StatusPartialOutage},
		{[]string{model.StatusPartialOutage, model.StatusMajorOutage, model.StatusOperational}, model.StatusMajorOutage},
	}
	for _, tc := range cases {
		var components []model.Component
		for i, s := range tc.statuses {
			components = append(components, model.Component{ID: int64(i), Status: s})
		}
		require.Equal(t, tc.want, OverallStatus(components))
	}
}
