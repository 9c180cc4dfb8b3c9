package ingest

import (
	"strings"

	"github.com/yair/conference-portal/pkg/domain"
	"github.com/yair/conference-portal/pkg/tabular"
)

// registrationLink prefers the link column, then the first URL-looking cell
// anywhere in the row, then the "#" placeholder.
func registrationLink(row []tabular.Cell, linkCol int) string {
	if linkCol >= 0 {
		c := tabular.CellAt(row, linkCol)
		for _, v := range []string{c.Href, c.Text} {
			if v = strings.TrimSpace(v); looksLikeLink(v) {
				return v
			}
		}
	}

	for _, c := range row {
		for _, v := range []string{c.Href, c.Text} {
			if v = strings.TrimSpace(v); looksLikeURL(v) {
				return v
			}
		}
	}

	return domain.PlaceholderRegistration
}

// looksLikeLink is the looser check applied to the dedicated link column.
func looksLikeLink(s string) bool {
	return strings.HasPrefix(s, "http") || strings.Contains(s, "www.")
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.Contains(s, "www.")
}
