package audit

import (
	"fmt"
	"strings"
)

var actionSummaries = map[string]string{
	"project.update":     "Updated project details",
	"project.delete":     "Deleted project",
	"component.create":   "Created component",
	"component.update":   "Updated component",
	"component.reorder":  "Reordered components",
	"component.delete":   "Deleted component",
	"incident.create":    "Created incident",
	"incident.update":    "Updated incident",
	"incident.delete":    "Deleted incident",
	"maintenance.create": "Created scheduled maintenance",
	"maintenance.update": "Updated scheduled maintenance",
	"maintenance.delete": "Deleted scheduled maintenance",
	"subscriber.delete":  "Removed subscriber",
	"user.create":        "Created user",
	"user.update":        "Updated user",
	"user.delete":        "Deleted user",
	"auth.login":         "Logged in",
}

// Summarize renders a short human description of an audited action.
func Summarize(action string, meta map[string]any) string {
	switch action {
	case ActionSettingsUpdate:
		fields := stringList(meta["fields"])
		if len(fields) == 0 {
			return "Updated project settings"
		}
		shown := fields
		suffix := ""
		if len(fields) > 4 {
			shown = fields[:4]
			suffix = ", ..."
		}
		return fmt.Sprintf("Updated settings (%s%s)", strings.Join(shown, ", "), suffix)
	case ActionProjectCreate:
		name, _ := meta["name"].(string)
		return fmt.Sprintf("Created project %q", name)
	}
	if summary, ok := actionSummaries[action]; ok {
		return summary
	}
	return action
}

func stringList(v any) []string {
	var out []string
	switch list := v.(type) {
	case []string:
		for _, s := range list {
			if s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
