// Package addon classifies repository paths the way Odoo addon repositories
// are laid out: one addon per top-level folder, identified by its manifest.
package addon

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// FoldersToSkip are top-level folders generated by tooling rather than written by developers.
var FoldersToSkip = []string{"setup", ".github"}

// FilesToKeep are top-level files developers edit by hand alongside addons.
var FilesToKeep = []string{"requirements.txt", "test-requirements.txt", "oca_dependencies.txt"}

// BotFiles are per-addon files regenerated by bots; porting them only causes conflicts.
var BotFiles = []string{"README.rst", "static/description/index.html"}

// ManifestNames lists the manifest file names that mark a folder as an addon.
var ManifestNames = []string{"__manifest__.py", "__openerp__.py"}

var poFile = regexp.MustCompile(`.*i18n/.+\.pot?$`)

// CommitPath is the first segment of a changed file path.
type CommitPath struct {
	Name  string
	IsDir bool
}

// NewCommitPath reduces a file path to its top-level segment.
func NewCommitPath(filePath string) CommitPath {
	head, _, isDir := strings.Cut(filePath, "/")

	return CommitPath{Name: head, IsDir: isDir}
}

// String returns the segment name.
func (p CommitPath) String() string {
	return p.Name
}

// ShouldSkip reports whether changes under p are not worth porting: tooling
// folders, and any top-level file that is not hand-edited metadata.
func ShouldSkip(p CommitPath) bool {
	if p.IsDir {
		return slices.Contains(FoldersToSkip, p.Name)
	}

	return !slices.Contains(FilesToKeep, p.Name)
}

// KeepDiffPath reports whether a changed file should be included in a patch.
// Packaging files and translation catalogs are regenerated on each branch.
func KeepDiffPath(filePath string) bool {
	if strings.HasPrefix(filePath, "setup") {
		return false
	}

	return !poFile.MatchString(filePath)
}

// IsBotFile reports whether filePath is regenerated by a bot inside an addon.
func IsBotFile(filePath string) bool {
	_, rest, ok := strings.Cut(filePath, "/")
	if !ok {
		return false
	}

	return slices.Contains(BotFiles, rest)
}

// IsManifest reports whether filePath is an addon manifest at the top of its folder.
func IsManifest(filePath string) bool {
	dir, name, ok := strings.Cut(filePath, "/")

	return ok && dir != "" && slices.Contains(ManifestNames, name)
}

// ManifestPath returns the manifest file of the addon in dir, or "" when dir is not an addon.
func ManifestPath(dir string) string {
	for _, name := range ManifestNames {
		candidate := filepath.Join(dir, name)

		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}

	return ""
}
