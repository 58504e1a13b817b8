package audit

// Action names recorded in the audit log.
const (
	ActionProjectCreate  = "project.create"
	ActionProjectUpdate  = "project.update"
	ActionProjectDelete  = "project.delete"
	ActionSettingsUpdate = "settings.update"
)

// Actor identifies the user behind an audited action.
type Actor struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Entry is one append-only audit record. At uses model.TimeLayout.
type Entry struct {
	At     string         `json:"at"`
	User   *Actor         `json:"user"`
	Action string         `json:"action"`
	Meta   map[string]any `json:"meta"`
}
