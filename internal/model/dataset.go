package model

const (
	// SchemaVersion is the layout version written by this build.
	SchemaVersion = 2
	// MinNextID is the floor for the id counter of a fresh dataset.
	MinNextID int64 = 2000
)

// Dataset is the authoritative state held in memory and persisted to the
// local data file.
type Dataset struct {
	Users              []*User                      `json:"users"`
	Projects           []*Project                   `json:"projects"`
	NextID             int64                        `json:"nextId"`
	SecurityMigrations map[string]SecurityMigration `json:"securityMigrations,omitempty"`
	SchemaVersion      int                          `json:"schemaVersion"`
}

// SecurityMigration records the outcome of a one-off credential migration.
type SecurityMigration struct {
	Version              int    `json:"version"`
	RanAt                string `json:"ranAt,omitempty"`
	MigratedUsers        int    `json:"migratedUsers"`
	RemainingLegacyUsers int    `json:"remainingLegacyUsers"`
	Completed            bool   `json:"completed"`
}

// IssueID returns a fresh id and advances the counter. The caller is
// responsible for saving the dataset afterwards.
func (d *Dataset) IssueID() int64 {
	if d.NextID < MinNextID {
		d.NextID = MinNextID
	}
	id := d.NextID
	d.NextID++
	return id
}

// ProjectByID returns the project with the given id, or nil.
func (d *Dataset) ProjectByID(id int64) *Project {
	for _, p := range d.Projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// ProjectBySlug returns the project with the given slug, or nil.
func (d *Dataset) ProjectBySlug(slug string) *Project {
	for _, p := range d.Projects {
		if p.Slug == slug {
			return p
		}
	}
	return nil
}

// MaxID returns the highest numeric id present anywhere in the dataset.
func (d *Dataset) MaxID() int64 {
	var max int64
	bump := func(id int64) {
		if id > max {
			max = id
		}
	}
	for _, u := range d.Users {
		bump(u.ID)
	}
	for _, p := range d.Projects {
		bump(p.ID)
		for _, c := range p.Components {
			bump(c.ID)
		}
		for _, i := range p.Incidents {
			bump(i.ID)
			for _, u := range i.Updates {
				bump(u.ID)
			}
		}
		for _, m := range p.ScheduledMaintenances {
			bump(m.ID)
			for _, u := range m.Updates {
				bump(u.ID)
			}
		}
		for _, t := range p.IncidentTemplates {
			bump(t.ID)
		}
		for _, t := range p.MaintenanceTemplates {
			bump(t.ID)
		}
		for _, s := range p.Subscribers {
			bump(s.ID)
		}
	}
	return max
}
