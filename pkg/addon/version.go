package addon

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrVersionNotFound is returned when a branch name carries no Odoo series.
var ErrVersionNotFound = errors.New("unable to identify Odoo version")

var seriesPattern = regexp.MustCompile(`(^|[^\d.])(\d{1,2}\.\d)($|[^\d])`)

// ParseVersion extracts the Odoo series ("16.0") from a branch name such as
// "16.0", "origin/16.0" or "16.0-mig-my_module".
func ParseVersion(branch string) (string, error) {
	match := seriesPattern.FindStringSubmatch(branch)
	if match == nil {
		return "", fmt.Errorf("%w from %s", ErrVersionNotFound, branch)
	}

	return match[2], nil
}
