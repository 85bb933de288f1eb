package porting

import (
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/ocaport/pkg/addon"
)

// BotEmails are author addresses of automation accounts whose commits are never ported.
var BotEmails = []string{
	"transbot@odoo-community.org",
	"noreply@weblate.org",
	"oca-git-bot@odoo-community.org",
	"oca+oca-travis@odoo-community.org",
	"oca-ci@odoo-community.org",
	"shopinvader-git-bot@shopinvader.com",
}

// TranslationSummaries mark commits pushed by the translation platform.
var TranslationSummaries = []string{
	"Translated using Weblate",
	"Added translation using Weblate",
}

// Filter decides which commits are noise. The same filter is applied to
// both branches so that the remaining commits can be compared.
type Filter struct {
	BotEmails    []string
	SummaryTerms []string
}

// DefaultFilter returns the filter for OCA repositories.
func DefaultFilter() Filter {
	return Filter{BotEmails: BotEmails, SummaryTerms: TranslationSummaries}
}

// IsNoise reports whether c is a merge, a bot or translation commit, or only
// touches paths that are never ported.
func (f Filter) IsNoise(c *Commit) bool {
	if c.IsMerge() {
		return true
	}

	if slices.Contains(f.BotEmails, c.AuthorEmail) {
		return true
	}

	for _, term := range f.SummaryTerms {
		if strings.Contains(c.Summary, term) {
			return true
		}
	}

	for _, p := range c.Paths {
		if !addon.ShouldSkip(p) {
			return false
		}
	}

	return true
}
