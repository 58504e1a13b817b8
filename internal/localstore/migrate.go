package localstore

import (
	"encoding/json"
	"fmt"

	"github.com/rpggio/statuspage/internal/model"
)

// migration upgrades a raw dataset document by exactly one schema version.
type migration func(doc map[string]any, now string) error

// migrations[v] upgrades a document from version v to v+1.
var migrations = []migration{
	migrateFlatToProjects,
	migrateComponentDefaults,
}

// migrate runs every pending migration on doc and stamps the resulting
// version. Documents written by a newer build are left untouched.
func migrate(doc map[string]any, now string) error {
	version, err := schemaVersion(doc)
	if err != nil {
		return err
	}
	if version >= model.SchemaVersion {
		return nil
	}
	for v := version; v < model.SchemaVersion; v++ {
		if err := migrations[v](doc, now); err != nil {
			return fmt.Errorf("migrating schema %d to %d: %w", v, v+1, err)
		}
	}
	doc["schemaVersion"] = json.Number(fmt.Sprint(model.SchemaVersion))
	return nil
}

func schemaVersion(doc map[string]any) (int, error) {
	raw, ok := doc["schemaVersion"]
	if !ok || raw == nil {
		return 0, nil
	}
	n, ok := raw.(json.Number)
	if !ok {
		return 0, fmt.Errorf("schemaVersion is %T, want number", raw)
	}
	v, err := n.Int64()
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid schemaVersion %q", n)
	}
	return int(v), nil
}

var legacyProjectKeys = []string{"settings", "componentGroups", "components", "incidents", "scheduledMaintenances", "subscribers", "uptimeData"}

// migrateFlatToProjects moves a single-tenant document, which kept
// components and settings at the top level, into project 1.
func migrateFlatToProjects(doc map[string]any, now string) error {
	projects, err := listField(doc, "projects")
	if err != nil {
		return err
	}
	if _, err := listField(doc, "users"); err != nil {
		return err
	}

	if _, legacy := doc["components"]; legacy && len(projects) == 0 {
		proj := map[string]any{
			"id":        json.Number("1"),
			"name":      "3E Elite",
			"slug":      "default",
			"createdAt": now,
		}
		for _, key := range legacyProjectKeys {
			if v, ok := doc[key]; ok && v != nil {
				proj[key] = v
			}
			delete(doc, key)
		}
		if _, ok := proj["settings"].(map[string]any); !ok {
			proj["settings"] = map[string]any{}
		}
		delete(proj, "componentGroups")
		doc["projects"] = []any{proj}
	}
	return nil
}

// migrateComponentDefaults gives every component an explicit parentId, a
// view and a numeric order.
func migrateComponentDefaults(doc map[string]any, _ string) error {
	projects, err := listField(doc, "projects")
	if err != nil {
		return err
	}
	for _, rawProject := range projects {
		proj, ok := rawProject.(map[string]any)
		if !ok {
			continue
		}
		components, err := listField(proj, "components")
		if err != nil {
			return err
		}
		fallbackOrder := 0
		for _, rawComponent := range components {
			c, ok := rawComponent.(map[string]any)
			if !ok {
				continue
			}
			if _, ok := c["parentId"]; !ok {
				c["parentId"] = nil
			}
			if view, _ := c["view"].(string); view == "" {
				c["view"] = "list"
			}
			if _, ok := c["order"].(json.Number); !ok {
				c["order"] = json.Number(fmt.Sprint(fallbackOrder))
				fallbackOrder++
			}
		}
	}
	return nil
}

// listField returns doc[key] as a list, creating an empty one when absent.
func listField(doc map[string]any, key string) ([]any, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		list := []any{}
		doc[key] = list
		return list, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s is %T, want list", key, raw)
	}
	return list, nil
}
