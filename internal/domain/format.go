package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title renders the display title for a storm, e.g.
// "Hurricane Lee (Category 3)" or "Tropical Storm Margot".
func Title(rec CycloneRecord) string {
	title := cases.Title(language.English).String(strings.TrimSpace(rec.Classification + " " + rec.Name))
	if rec.Category > 0 {
		title += fmt.Sprintf(" (Category %d)", rec.Category)
	}
	return title
}
