// Package mcp exposes target parsing, the stored log tree and job
// resolution as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"travis-log-fetch/src/provider"
	"travis-log-fetch/src/resolve"
	"travis-log-fetch/src/sanitize"
	"travis-log-fetch/src/storage"
	"travis-log-fetch/src/store"
	"travis-log-fetch/src/target"
)

// DefaultRecordLimit caps list_fetch_records when no limit is given.
const DefaultRecordLimit = 20

// Deps are the collaborators the tools use. Resolver and Ledger may be nil;
// the tools that need them then report an error.
type Deps struct {
	Index    *storage.Index
	Writer   *storage.Writer
	Resolver *resolve.Resolver
	Ledger   store.Store
}

// Server is the MCP server for travis-log-fetch.
type Server struct {
	mcpServer *server.MCPServer
	deps      Deps
}

// NewServer creates a new MCP server.
func NewServer(version string, deps Deps) *Server {
	s := server.NewMCPServer(
		"travis-log-fetch",
		version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		deps:      deps,
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	parseTool := mcp.NewTool("parse_target",
		mcp.WithDescription("Parse a Travis target (slug, extended slug such as user/project/12.3 or user/project@42, or a travis-ci URL) and return its canonical form and fields."),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Target text"),
		),
	)

	reposTool := mcp.NewTool("list_stored_repos",
		mcp.WithDescription("List the repositories that have logs in the local store."),
	)

	buildsTool := mcp.NewTool("list_stored_builds",
		mcp.WithDescription("List the build numbers stored locally for a repository."),
		mcp.WithString("slug",
			mcp.Required(),
			mcp.Description("Repository slug, user/project"),
		),
	)

	resolveTool := mcp.NewTool("resolve_jobs",
		mcp.WithDescription("Resolve targets to their Travis jobs, with state and whether each log is already stored. Without a build or job, the repository's last build is used."),
		mcp.WithString("targets",
			mcp.Required(),
			mcp.Description("Targets separated by spaces or commas"),
		),
	)

	readTool := mcp.NewTool("read_stored_log",
		mcp.WithDescription("Read a stored job log with escape sequences and Travis fold markers removed. Use list_stored_builds first to find build numbers."),
		mcp.WithString("slug",
			mcp.Required(),
			mcp.Description("Repository slug, user/project"),
		),
		mcp.WithString("number",
			mcp.Required(),
			mcp.Description("Job number build.job, or a build number when the build has a single stored job"),
		),
		mcp.WithString("section",
			mcp.Description("Only return the travis_fold section with this name"),
		),
		mcp.WithNumber("tail",
			mcp.Description("Only return the last N lines"),
		),
		mcp.WithBoolean("compact",
			mcp.Description("Strip timestamps, shorten long paths and collapse whitespace"),
		),
	)

	recordsTool := mcp.NewTool("list_fetch_records",
		mcp.WithDescription("List the most recent logs fetched for a repository, newest first, from the fetch ledger."),
		mcp.WithString("slug",
			mcp.Required(),
			mcp.Description("Repository slug, user/project"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Max records (default: %d)", DefaultRecordLimit)),
		),
	)

	s.mcpServer.AddTool(parseTool, s.handleParseTarget)
	s.mcpServer.AddTool(reposTool, s.handleListStoredRepos)
	s.mcpServer.AddTool(buildsTool, s.handleListStoredBuilds)
	s.mcpServer.AddTool(resolveTool, s.handleResolveJobs)
	s.mcpServer.AddTool(readTool, s.handleReadStoredLog)
	s.mcpServer.AddTool(recordsTool, s.handleListFetchRecords)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// ParsedTarget is the parse_target response.
type ParsedTarget struct {
	Canonical   string `json:"canonical"`
	Slug        string `json:"slug"`
	BuildID     int64  `json:"build_id,omitempty"`
	JobID       int64  `json:"job_id,omitempty"`
	BuildNumber int    `json:"build_number,omitempty"`
	JobNumber   int    `json:"job_number,omitempty"`
}

// JobInfo is one resolve_jobs entry.
type JobInfo struct {
	ID      int64  `json:"id"`
	Number  string `json:"number"`
	Slug    string `json:"slug"`
	State   string `json:"state"`
	Pending bool   `json:"pending"`
	// Stored is the path of the stored log, relative to the store root.
	Stored string `json:"stored,omitempty"`
}

func (s *Server) handleParseTarget(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := request.GetString("target", "")
	if text == "" {
		return mcp.NewToolResultError("target parameter is required"), nil
	}

	t, err := target.Parse(text)
	if err != nil {
		return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
	}

	return jsonResult(ParsedTarget{
		Canonical:   t.String(),
		Slug:        t.Slug(),
		BuildID:     t.BuildID,
		JobID:       t.JobID,
		BuildNumber: t.BuildNumber,
		JobNumber:   t.JobNumber,
	})
}

func (s *Server) handleListStoredRepos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slugs, err := s.deps.Index.StoredRepoSlugs()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list stored repositories: %v", err)), nil
	}
	if slugs == nil {
		slugs = []string{}
	}
	return jsonResult(map[string]any{"repos": slugs})
}

func (s *Server) handleListStoredBuilds(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug := request.GetString("slug", "")
	if _, err := target.ParseSimpleSlug(slug); err != nil {
		return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
	}

	builds, err := s.deps.Index.StoredBuildsForRepo(slug)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list stored builds: %v", err)), nil
	}

	numbers := make([]int, 0, len(builds))
	for _, b := range builds {
		numbers = append(numbers, b.BuildNumber)
	}
	return jsonResult(map[string]any{"slug": slug, "builds": numbers})
}

func (s *Server) handleResolveJobs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.deps.Resolver == nil {
		return mcp.NewToolResultError("resolve_jobs needs a Travis API client"), nil
	}

	fields := strings.FieldsFunc(request.GetString("targets", ""), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	if len(fields) == 0 {
		return mcp.NewToolResultError("targets parameter is required"), nil
	}

	targets, err := target.ParseAll(fields)
	if err != nil {
		return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
	}

	jobs, err := s.deps.Resolver.ResolveJobs(ctx, targets)
	if err != nil {
		return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
	}

	infos := make([]JobInfo, 0, len(jobs))
	for _, job := range jobs {
		info := JobInfo{
			ID:      job.ID,
			Number:  job.Number,
			Slug:    job.Slug,
			State:   job.State,
			Pending: job.Pending(),
		}
		if s.deps.Writer != nil {
			path := s.deps.Writer.PathFor(job)
			if _, err := os.Stat(path); err == nil {
				if rel, err := filepath.Rel(s.deps.Index.Root(), path); err == nil {
					info.Stored = filepath.ToSlash(rel)
				}
			}
		}
		infos = append(infos, info)
	}
	return jsonResult(map[string]any{"jobs": infos})
}

func (s *Server) handleReadStoredLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug := request.GetString("slug", "")
	number := request.GetString("number", "")
	if slug == "" || number == "" {
		return mcp.NewToolResultError("slug and number parameters are required"), nil
	}

	t, err := target.ParseExtendedSlug(slug + "/" + number)
	if err != nil {
		return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
	}

	entries, err := s.deps.Index.Find(t.Slug(), t.BuildNumber, t.JobNumber)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to scan stored logs: %v", err)), nil
	}
	switch {
	case len(entries) == 0:
		return mcp.NewToolResultError(fmt.Sprintf("no stored log for %s", t)), nil
	case len(entries) > 1:
		var names []string
		for _, e := range entries {
			names = append(names, e.Target.String())
		}
		return mcp.NewToolResultError(fmt.Sprintf("%s has %d stored jobs, pick one of: %s", t, len(entries), strings.Join(names, ", "))), nil
	}

	data, err := os.ReadFile(filepath.Join(s.deps.Index.Root(), filepath.FromSlash(entries[0].Path)))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read %s: %v", entries[0].Path, err)), nil
	}

	var lines []string
	if name := request.GetString("section", ""); name != "" {
		found := false
		for _, sec := range sanitize.Sections(string(data)) {
			if sec.Name == name {
				lines, found = sec.Lines, true
				break
			}
		}
		if !found {
			return mcp.NewToolResultError(fmt.Sprintf("no section %q in %s", name, entries[0].Target)), nil
		}
	} else {
		lines = strings.Split(sanitize.Clean(string(data)), "\n")
	}

	if request.GetBool("compact", false) {
		lines = compact(lines)
	}
	if n := request.GetInt("tail", 0); n > 0 && n < len(lines) {
		lines = lines[len(lines)-n:]
	}

	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) handleListFetchRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.deps.Ledger == nil {
		return mcp.NewToolResultError("no fetch ledger configured"), nil
	}

	slug := request.GetString("slug", "")
	if _, err := target.ParseSimpleSlug(slug); err != nil {
		return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
	}

	records, err := s.deps.Ledger.RecordsForSlug(ctx, slug, request.GetInt("limit", DefaultRecordLimit))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read fetch ledger: %v", err)), nil
	}
	return jsonResult(map[string]any{"slug": slug, "records": records})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
