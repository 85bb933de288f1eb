// Package gitlib wraps libgit2 for the read side of repository access
// (history walks, first-parent diffs, remotes, trees) and the git executable
// for operations that mutate the worktree.
package gitlib

import (
	"encoding/hex"
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Constants for hash operations.
const (
	// HashSize is the size of a SHA-1 hash in bytes.
	HashSize = 20
	// HashHexSize is the size of a hex-encoded SHA-1 hash.
	HashHexSize = 40
)

// ErrInvalidHash is returned when a string is not a full hex object id.
var ErrInvalidHash = errors.New("invalid object hash")

// Hash represents a git object hash (SHA-1).
type Hash [HashSize]byte

// ParseHash decodes a 40 character hex string.
func ParseHash(hexStr string) (Hash, error) {
	var h Hash

	if len(hexStr) != HashHexSize {
		return h, fmt.Errorf("%w: %q", ErrInvalidHash, hexStr)
	}

	_, err := hex.Decode(h[:], []byte(hexStr))
	if err != nil {
		return h, fmt.Errorf("%w: %q", ErrInvalidHash, hexStr)
	}

	return h, nil
}

// HashFromOid converts a libgit2 Oid to Hash.
func HashFromOid(oid *git2go.Oid) Hash {
	var h Hash
	if oid != nil {
		copy(h[:], oid[:])
	}

	return h
}

// String returns the hex representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the abbreviated hex form used in console output.
func (h Hash) Short() string {
	const shortLen = 8

	return h.String()[:shortLen]
}

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ToOid converts Hash back to libgit2 Oid.
func (h Hash) ToOid() *git2go.Oid {
	oid := new(git2go.Oid)
	copy(oid[:], h[:])

	return oid
}
