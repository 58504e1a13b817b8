package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `statuspage serves public status pages for many projects from one process.

Core concepts:
- Project: one status page (components, incidents, maintenances, settings). Identified by numeric id and unique slug.
- Primary domain: settings.customDomain. Serves the project directly.
- Redirect domain: settings.redirectDomains. Answered with a 308 to the primary domain.
- Local dataset: data.json on disk. Always authoritative for reads.
- Remote mirror: a document store that receives every local write asynchronously and repopulates empty disks on boot.

Tools:
1) list_projects: ids, slugs and primary domains.
2) resolve_host: which project a host serves and whether it redirects.
3) check_domain: DNS records of a domain against the expected CNAME target.
4) get_public_snapshot: the public projection of a project (source=local or source=remote).
5) replication_status: queue counters and the last replication error.

Docs:
- statuspage://docs/index
- statuspage://docs/domains
- statuspage://docs/replication
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "statuspage://docs/index",
		Name:        "docs_index",
		Title:       "statuspage docs index",
		Description: "Entry point for operator docs.",
		Content: `# statuspage: Operator Docs

- statuspage://docs/domains: how hosts map to projects, redirects and DNS checks.
- statuspage://docs/replication: how the remote mirror is fed and how cold start works.

All tools are read-only. Mutations go through the admin HTTP API.
`,
	},
	{
		URI:         "statuspage://docs/domains",
		Name:        "docs_domains",
		Title:       "Domains and host resolution",
		Description: "Primary domains, redirect domains and DNS validation.",
		Content: `# Domains

Hosts are compared case-insensitively, without port and trailing dot, after
IDNA conversion to ASCII.

Resolution order for a request host:
1. A project whose primary domain equals the host. Served directly.
2. A project listing the host among its redirect domains. If the project has a
   primary domain, the client receives 308 to the same path on the primary.
3. Nothing matched. The request falls through to slug based routing.

A host belongs to at most one project. Saving a domain already used by
another project (as primary or redirect) fails with 409 naming that project.

check_domain reports:
- ok: CNAME points at the expected target, or A/AAAA records are shared with it.
- warning: the domain resolves elsewhere or does not resolve yet.
- error: the domain is not a valid hostname.
`,
	},
	{
		URI:         "statuspage://docs/replication",
		Name:        "docs_replication",
		Title:       "Remote replication",
		Description: "Write interception, the replication queue and cold start hydration.",
		Content: `# Replication

Every write of data.json enqueues a full dataset persist. Every append to the
audit log enqueues the appended entries. Tasks run one at a time in order on a
single worker. A failed task is logged and counted and never blocks the next.
A full queue drops the task (see replication_status.dropped). Audit entries
of a dropped task are sent with the next audit task.

Persisting is idempotent: documents equal to the remote copy are skipped and
remote documents that no longer exist locally are deleted.

Cold start:
- Remote has data: it overwrites the local file and the audit log.
- Remote is empty: the local file (or an empty dataset) seeds the remote.
- Remote unreachable or unopenable: boot continues on the local file.
- Audit read fails after the dataset hydrated: the dataset stays hydrated.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
