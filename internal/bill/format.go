package bill

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fallback layouts tried after DateLayout, most likely first
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"02/01/2006",
	time.RFC3339,
}

var frenchMonths = [...]string{
	"janv.", "févr.", "mars", "avr.", "mai", "juin",
	"juil.", "août", "sept.", "oct.", "nov.", "déc.",
}

var titleFR = cases.Title(language.French)

// ParseDate tries the known layouts in order
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders d the way the bills table shows it, e.g. "4 Avr. 04"
func FormatDate(d time.Time) string {
	month := []rune(frenchMonths[d.Month()-1])
	if len(month) > 3 {
		month = month[:3]
	}
	return fmt.Sprintf("%d %s. %02d", d.Day(), titleFR.String(string(month)), d.Year()%100)
}

// Display labels for each status
const (
	LabelPending  = "En attente"
	LabelAccepted = "Accepté"
	LabelRefused  = "Refusé"
	LabelUnknown  = "Inconnu"
)

// Label maps a status to its display label
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return LabelPending
	case StatusAccepted:
		return LabelAccepted
	case StatusRefused:
		return LabelRefused
	default:
		return LabelUnknown
	}
}
