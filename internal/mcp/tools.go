package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/statuspage/internal/dnscheck"
	"github.com/rpggio/statuspage/internal/domain/project"
	"github.com/rpggio/statuspage/internal/hostname"
	"github.com/rpggio/statuspage/internal/mirror"
	"github.com/rpggio/statuspage/internal/tenant"
)

// Snapshot sources accepted by get_public_snapshot.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// ErrRemoteUnavailable is returned when a remote read is requested while
// replication is disabled.
var ErrRemoteUnavailable = errors.New("remote store not configured")

type listProjectsInput struct{}

type listProjectsOutput struct {
	Projects []project.Summary `json:"projects"`
}

type resolveHostInput struct {
	Host string `json:"host" jsonschema:"request host, a port suffix is ignored"`
}

type resolveHostOutput struct {
	Found     bool   `json:"found"`
	Host      string `json:"host"`
	ProjectID int64  `json:"projectId,omitempty"`
	Slug      string `json:"slug,omitempty"`
	Primary   string `json:"primary,omitempty"`
	Redirect  bool   `json:"redirect"`
}

type checkDomainInput struct {
	Domain string `json:"domain" jsonschema:"domain to check"`
	Target string `json:"target,omitempty" jsonschema:"expected CNAME target, defaults to the configured target"`
}

type checkDomainOutput struct {
	Result dnscheck.Result `json:"result"`
}

type snapshotInput struct {
	Slug   string `json:"slug" jsonschema:"project slug"`
	Source string `json:"source,omitempty" jsonschema:"local (default) or remote"`
}

type snapshotOutput struct {
	Source   string `json:"source"`
	Snapshot any    `json:"snapshot"`
}

type replicationStatusInput struct{}

type replicationStatusOutput struct {
	Enabled bool          `json:"enabled"`
	Stats   *mirror.Stats `json:"stats,omitempty"`
}

func registerTools(server *sdkmcp.Server, svc Services) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List every status page project with its slug and primary domain",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ listProjectsInput) (*sdkmcp.CallToolResult, listProjectsOutput, error) {
		projects := svc.Projects.List(ctx)
		if projects == nil {
			projects = []project.Summary{}
		}
		return nil, listProjectsOutput{Projects: projects}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "resolve_host",
		Description: "Show which project a request host serves and whether it redirects to the primary domain",
	}, func(_ context.Context, _ *sdkmcp.CallToolRequest, in resolveHostInput) (*sdkmcp.CallToolResult, resolveHostOutput, error) {
		out := resolveHostOutput{Host: hostname.Normalize(in.Host)}
		match, err := svc.Hosts.ByHost(in.Host)
		if errors.Is(err, tenant.ErrNotFound) {
			return nil, out, nil
		}
		if err != nil {
			return nil, out, err
		}
		out.Found = true
		out.Host = match.Host
		out.ProjectID = match.Project.ID
		out.Slug = match.Project.Slug
		out.Primary = match.Primary
		out.Redirect = match.Redirect
		return nil, out, nil
	})

	if svc.Domains != nil {
		sdkmcp.AddTool(server, &sdkmcp.Tool{
			Name:        "check_domain",
			Description: "Look up CNAME, A and AAAA records of a domain and compare them with the expected target",
		}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in checkDomainInput) (*sdkmcp.CallToolResult, checkDomainOutput, error) {
			target := in.Target
			if target == "" {
				target = svc.Domains.Target()
			}
			return nil, checkDomainOutput{Result: svc.Domains.Validate(ctx, in.Domain, target)}, nil
		})
	}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_public_snapshot",
		Description: "Return the public projection of a project from the local dataset or the remote store",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in snapshotInput) (*sdkmcp.CallToolResult, snapshotOutput, error) {
		source := strings.ToLower(strings.TrimSpace(in.Source))
		switch source {
		case "", SourceLocal:
			p, err := svc.Projects.GetBySlug(ctx, in.Slug)
			if err != nil {
				return nil, snapshotOutput{}, err
			}
			public, err := svc.Projector.Project(p)
			if err != nil {
				return nil, snapshotOutput{}, fmt.Errorf("project %s: %w", in.Slug, err)
			}
			return nil, snapshotOutput{Source: SourceLocal, Snapshot: public}, nil
		case SourceRemote:
			if svc.Remote == nil {
				return nil, snapshotOutput{}, ErrRemoteUnavailable
			}
			raw, err := svc.Remote.PublicBySlug(ctx, in.Slug)
			if err != nil {
				return nil, snapshotOutput{}, err
			}
			var doc map[string]any
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, snapshotOutput{}, fmt.Errorf("decode remote snapshot: %w", err)
			}
			return nil, snapshotOutput{Source: SourceRemote, Snapshot: doc}, nil
		default:
			return nil, snapshotOutput{}, fmt.Errorf("unknown source %q", in.Source)
		}
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "replication_status",
		Description: "Report the remote replication queue: pending, succeeded, failed and dropped tasks",
	}, func(_ context.Context, _ *sdkmcp.CallToolRequest, _ replicationStatusInput) (*sdkmcp.CallToolResult, replicationStatusOutput, error) {
		if svc.Replication == nil {
			return nil, replicationStatusOutput{}, nil
		}
		stats := svc.Replication.Stats()
		return nil, replicationStatusOutput{Enabled: true, Stats: &stats}, nil
	})
}
