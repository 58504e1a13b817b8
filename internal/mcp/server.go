package mcp

import (
	"context"
	"io"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/statuspage/internal/dnscheck"
	"github.com/rpggio/statuspage/internal/domain/project"
	"github.com/rpggio/statuspage/internal/mirror"
	"github.com/rpggio/statuspage/internal/model"
	"github.com/rpggio/statuspage/internal/snapshot"
	"github.com/rpggio/statuspage/internal/tenant"
)

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	List(ctx context.Context) []project.Summary
	GetBySlug(ctx context.Context, slug string) (*model.Project, error)
}

// HostResolver maps request hosts to projects.
type HostResolver interface {
	ByHost(host string) (tenant.Match, error)
}

// Projector builds public projections.
type Projector interface {
	Project(p *model.Project) (*snapshot.PublicProject, error)
}

// DomainValidator checks DNS records of a custom domain.
type DomainValidator interface {
	Validate(ctx context.Context, domain, expectedTarget string) dnscheck.Result
	Target() string
}

// ReplicationStats reports the replication queue state.
type ReplicationStats interface {
	Stats() mirror.Stats
}

// RemoteSnapshots reads public documents straight from the remote store.
type RemoteSnapshots interface {
	PublicBySlug(ctx context.Context, slug string) ([]byte, error)
}

// Services contains the collaborators exposed as tools. Replication and
// Remote are nil when sync is disabled.
type Services struct {
	Projects    ProjectService
	Hosts       HostResolver
	Projector   Projector
	Domains     DomainValidator
	Replication ReplicationStats
	Remote      RemoteSnapshots
}

// Config contains server configuration.
type Config struct {
	Services Services
	// Auth resolves bearer tokens; nil disables authentication.
	Auth    UserResolver
	Version string
	Logger  *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "statuspage",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	if cfg.Auth != nil {
		server.AddReceivingMiddleware(authMiddleware(cfg.Auth))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services)

	return server
}
