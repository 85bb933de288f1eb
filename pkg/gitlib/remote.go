package gitlib

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnsupportedURL is returned for remote URLs that do not name an owner/repository pair.
var ErrUnsupportedURL = errors.New("unsupported remote URL")

// Remote is a configured remote and its fetch URL.
type Remote struct {
	Name string
	URL  string
}

// Remotes lists the configured remotes.
func (r *Repository) Remotes() ([]Remote, error) {
	names, err := r.repo.Remotes.List()
	if err != nil {
		return nil, fmt.Errorf("list remotes: %w", err)
	}

	remotes := make([]Remote, 0, len(names))

	for _, name := range names {
		remote, lookupErr := r.LookupRemote(name)
		if lookupErr != nil {
			return nil, lookupErr
		}

		remotes = append(remotes, remote)
	}

	return remotes, nil
}

// LookupRemote returns the remote with the given name.
func (r *Repository) LookupRemote(name string) (Remote, error) {
	remote, err := r.repo.Remotes.Lookup(name)
	if err != nil {
		return Remote{}, fmt.Errorf("%w: %s", ErrRemoteNotFound, name)
	}
	defer remote.Free()

	return Remote{Name: name, URL: remote.Url()}, nil
}

// RemoteLocation is the hosting coordinates parsed from a remote URL.
type RemoteLocation struct {
	Host  string
	Owner string
	Repo  string
}

// IsGitHub reports whether the remote is hosted on github.com.
func (l RemoteLocation) IsGitHub() bool {
	return l.Host == "github.com"
}

// ParseRemoteURL extracts host, owner and repository from https, ssh and
// scp-like ("git@host:owner/repo.git") remote URLs.
func ParseRemoteURL(raw string) (RemoteLocation, error) {
	raw = strings.TrimSpace(raw)

	var host, path string

	switch {
	case strings.Contains(raw, "://"):
		parsed, err := url.Parse(raw)
		if err != nil {
			return RemoteLocation{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, raw)
		}

		host, path = parsed.Hostname(), parsed.Path
	case strings.Contains(raw, ":"):
		hostPart, pathPart, _ := strings.Cut(raw, ":")
		if at := strings.LastIndexByte(hostPart, '@'); at >= 0 {
			hostPart = hostPart[at+1:]
		}

		host, path = hostPart, pathPart
	default:
		return RemoteLocation{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, raw)
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")

	owner, repo, ok := strings.Cut(path, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return RemoteLocation{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, raw)
	}

	return RemoteLocation{Host: strings.ToLower(host), Owner: owner, Repo: repo}, nil
}
