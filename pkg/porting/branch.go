package porting

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownRemote is returned when a branch names a remote that is not configured.
var ErrUnknownRemote = errors.New("remote doesn't exist")

// BranchRef is a branch name with an optional remote qualifier.
type BranchRef struct {
	Remote string
	Name   string
}

// ParseBranchRef splits "remote/name" when the prefix is one of remotes,
// otherwise the ref is taken as a branch of defaultRemote (or a local branch
// when defaultRemote is empty). A "x/y" ref whose prefix is not a remote is
// rejected when requireRemote is set.
func ParseBranchRef(ref, defaultRemote string, remotes []string, requireRemote bool) (BranchRef, error) {
	if remote, name, ok := strings.Cut(ref, "/"); ok {
		if slices.Contains(remotes, remote) {
			return BranchRef{Remote: remote, Name: name}, nil
		}

		if requireRemote {
			return BranchRef{}, fmt.Errorf("%w: %q", ErrUnknownRemote, remote)
		}
	}

	if defaultRemote != "" && !slices.Contains(remotes, defaultRemote) {
		return BranchRef{}, fmt.Errorf("%w: %q", ErrUnknownRemote, defaultRemote)
	}

	return BranchRef{Remote: defaultRemote, Name: ref}, nil
}

// Ref returns the revision used for history queries.
func (b BranchRef) Ref() string {
	if b.Remote == "" {
		return b.Name
	}

	return b.Remote + "/" + b.Name
}

// String implements fmt.Stringer.
func (b BranchRef) String() string {
	return b.Ref()
}
