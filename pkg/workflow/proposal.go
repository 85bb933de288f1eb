package workflow

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/ocaport/pkg/github"
	"github.com/Sumatoshi-tech/ocaport/pkg/session"
)

// Proposal is the draft pull request opened for a work branch.
type Proposal struct {
	Title string
	Body  string
	// Head is "<fork org>:<branch>".
	Head string
	Base string
}

// NewPullRequest converts p into a draft pull request.
func (p Proposal) NewPullRequest() github.NewPullRequest {
	return github.NewPullRequest{
		Title: p.Title,
		Head:  p.Head,
		Base:  p.Base,
		Body:  p.Body,
		Draft: true,
	}
}

// NewProposal describes the pull request carrying the ported and
// blacklisted records of a session.
func NewProposal(s Settings, branch string, ported, blacklisted []session.Record) Proposal {
	var title, body string

	switch {
	case len(ported) > 1:
		title = fmt.Sprintf("[%s][FW] %s: multiple ports from %s", s.TargetVersion, s.Addon, s.SourceVersion)

		lines := []string{fmt.Sprintf("Port of the following PRs from %s to %s:", s.SourceVersion, s.TargetVersion)}
		for _, rec := range ported {
			lines = append(lines, "- "+recordLabel(rec))
		}

		body = strings.Join(lines, "\n")
	case len(ported) == 1:
		title = fmt.Sprintf("[%s][FW] %s", s.TargetVersion, ported[0].Title)
		body = fmt.Sprintf("Port of %s from %s to %s.", recordLabel(ported[0]), s.SourceVersion, s.TargetVersion)
	}

	if len(blacklisted) > 0 {
		if title == "" {
			title = fmt.Sprintf("[%s][FW] Blacklist of some PRs from %s", s.TargetVersion, s.SourceVersion)
		}

		lines := []string{"The following PRs have been blacklisted:"}
		for _, rec := range blacklisted {
			lines = append(lines, fmt.Sprintf("- %s: %s", recordLabel(rec), rec.Reason))
		}

		section := strings.Join(lines, "\n")
		if body == "" {
			body = section
		} else {
			body += "\n\n" + section
		}
	}

	return Proposal{
		Title: title,
		Body:  body,
		Head:  s.ForkOrg + ":" + branch,
		Base:  s.Target.Name,
	}
}

func recordLabel(rec session.Record) string {
	if rec.Number == 0 {
		return "commits w/o PR"
	}

	return fmt.Sprintf("#%d", rec.Number)
}
