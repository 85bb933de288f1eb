package gitlib

import (
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// Signature represents a git signature (author/committer).
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

func signatureFromNative(sig *git2go.Signature) Signature {
	if sig == nil {
		return Signature{}
	}

	return Signature{Name: sig.Name, Email: sig.Email, When: sig.When}
}

func (s Signature) native() *git2go.Signature {
	return &git2go.Signature{Name: s.Name, Email: s.Email, When: s.When}
}
