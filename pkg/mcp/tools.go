package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/ocaport/internal/app"
	"github.com/Sumatoshi-tech/ocaport/pkg/terminal"
)

// Tool name constants.
const (
	ToolNameDiff  = "oca_port_diff"
	ToolNameCache = "oca_port_cache_info"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyRepoPath indicates the repo_path parameter is empty.
	ErrEmptyRepoPath = errors.New("repo_path parameter is required and must not be empty")
	// ErrRepoPathNotAbsolute indicates the repo_path is not an absolute path.
	ErrRepoPathNotAbsolute = errors.New("repo_path must be an absolute path")
	// ErrRepoNotFound indicates the repository path does not exist.
	ErrRepoNotFound = errors.New("repository path does not exist")
	// ErrNotGitRepo indicates the path is not a git repository.
	ErrNotGitRepo = errors.New("path is not a git repository")
	// ErrMissingArgument indicates a required branch or addon parameter is empty.
	ErrMissingArgument = errors.New("source, target and addon parameters are required")
)

// DiffInput is the input schema for the oca_port_diff tool.
type DiffInput struct {
	Addon         string `json:"addon"                    jsonschema:"technical name of the Odoo addon"`
	NoCache       bool   `json:"no_cache,omitempty"       jsonschema:"ignore the user cache"`
	RepoName      string `json:"repo_name,omitempty"      jsonschema:"upstream repository name when it cannot be read from the remote URL"`
	RepoPath      string `json:"repo_path"                jsonschema:"absolute path to a Git repository"`
	Source        string `json:"source"                   jsonschema:"source branch as [remote/]branch (e.g. origin/15.0)"`
	SourceVersion string `json:"source_version,omitempty" jsonschema:"Odoo series of the source branch when its name carries none"`
	Target        string `json:"target"                   jsonschema:"target branch as [remote/]branch (e.g. origin/16.0)"`
	TargetVersion string `json:"target_version,omitempty" jsonschema:"Odoo series of the target branch when its name carries none"`
}

// CacheInput is the input schema for the oca_port_cache_info tool.
type CacheInput struct {
	Addon    string `json:"addon"               jsonschema:"technical name of the Odoo addon"`
	RepoName string `json:"repo_name,omitempty" jsonschema:"upstream repository name when it cannot be read from the remote URL"`
	RepoPath string `json:"repo_path"           jsonschema:"absolute path to a Git repository"`
	Source   string `json:"source"              jsonschema:"source branch as [remote/]branch"`
	Target   string `json:"target"              jsonschema:"target branch as [remote/]branch"`
}

// DiffResult is the document returned by oca_port_diff.
type DiffResult struct {
	Outcome string `json:"outcome"`
	app.Report
}

// CacheFile describes one user cache file.
type CacheFile struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Entries int    `json:"entries"`
	Exists  bool   `json:"exists"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

type toolset struct {
	app *app.App
}

func (t *toolset) handleDiff(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input DiffInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateRequest(input.RepoPath, input.Source, input.Target, input.Addon)
	if err != nil {
		return errorResult(err)
	}

	outcome, err := t.app.Run(ctx, app.Options{
		RepoPath:       input.RepoPath,
		Source:         input.Source,
		Target:         input.Target,
		Addon:          input.Addon,
		SourceVersion:  input.SourceVersion,
		TargetVersion:  input.TargetVersion,
		RepoName:       input.RepoName,
		NonInteractive: true,
		Output:         terminal.FormatJSON,
		NoCache:        input.NoCache,
	})
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(DiffResult{Outcome: outcome.Kind.String(), Report: outcome.Report()})
}

func (t *toolset) handleCache(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input CacheInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateRequest(input.RepoPath, input.Source, input.Target, input.Addon)
	if err != nil {
		return errorResult(err)
	}

	infos, err := t.app.CacheFiles(ctx, app.CacheOptions{
		RepoPath: input.RepoPath,
		Source:   input.Source,
		Target:   input.Target,
		Addon:    input.Addon,
		RepoName: input.RepoName,
	})
	if err != nil {
		return errorResult(err)
	}

	files := make([]CacheFile, 0, len(infos))
	for _, info := range infos {
		files = append(files, CacheFile(info))
	}

	return jsonResult(files)
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func validateRequest(repoPath, source, target, addonName string) error {
	err := validateRepoPath(repoPath)
	if err != nil {
		return err
	}

	if source == "" || target == "" || addonName == "" {
		return ErrMissingArgument
	}

	return nil
}

func validateRepoPath(repoPath string) error {
	if repoPath == "" {
		return ErrEmptyRepoPath
	}

	if !filepath.IsAbs(repoPath) {
		return ErrRepoPathNotAbsolute
	}

	info, err := os.Stat(repoPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRepoNotFound, repoPath)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRepoNotFound, repoPath)
	}

	_, err = os.Stat(filepath.Join(repoPath, ".git"))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotGitRepo, repoPath)
	}

	return nil
}
