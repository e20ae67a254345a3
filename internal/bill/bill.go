package bill

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPct is the VAT percentage applied when the form leaves it blank
const DefaultPct = 20

// DateLayout is the ISO layout bills are submitted with
const DateLayout = "2006-01-02"

// Bill is an employee expense claim as exchanged with the store
type Bill struct {
	ID         string `json:"id,omitempty"`
	Email      string `json:"email"`
	Type       string `json:"type"`
	Name       string `json:"name"`
	Amount     *int   `json:"amount,omitempty"`
	Date       string `json:"date"`
	VAT        string `json:"vat"`
	Pct        int    `json:"pct"`
	Commentary string `json:"commentary"`
	FileURL    string `json:"fileUrl,omitempty"`
	FileName   string `json:"fileName,omitempty"`
	Status     Status `json:"status"`
}

// UnmarshalJSON decodes a bill field by field. Fields of an unexpected JSON type
// keep their raw text instead of failing the record: a numeric vat becomes "70"
// and a numeric date stays as its digits so listings show it unparsed.
func (b *Bill) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decoding bill: %w", err)
	}

	*b = Bill{
		ID:         rawText(fields["id"]),
		Email:      rawText(fields["email"]),
		Type:       rawText(fields["type"]),
		Name:       rawText(fields["name"]),
		Date:       rawText(fields["date"]),
		VAT:        rawText(fields["vat"]),
		Commentary: rawText(fields["commentary"]),
		FileURL:    rawText(fields["fileUrl"]),
		FileName:   rawText(fields["fileName"]),
	}
	if raw := rawText(fields["amount"]); raw != "" {
		b.Amount = ParseAmount(raw)
	}
	if n, ok := leadingInt(rawText(fields["pct"])); ok {
		b.Pct = n
	}
	if raw, ok := fields["status"]; ok && !isNull(raw) {
		if err := b.Status.UnmarshalJSON(raw); err != nil {
			return err
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// rawText returns a JSON string's value, or the literal text of any other value
func rawText(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// leadingInt reads an optionally signed run of digits at the start of s
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Status is the approval state of a bill
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

// UnmarshalJSON accepts both the string form and the numeric codes 0, 1 and 2.
// Anything else decodes to its raw text so a single odd record cannot fail a listing.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = Status(str)
		return nil
	}

	var code int
	if err := json.Unmarshal(data, &code); err == nil {
		switch code {
		case 0:
			*s = StatusPending
		case 1:
			*s = StatusAccepted
		case 2:
			*s = StatusRefused
		default:
			*s = Status(strconv.Itoa(code))
		}
		return nil
	}

	*s = Status(strings.Trim(string(data), `"`))
	return nil
}

// Categories lists the expense types offered on the new bill form
var Categories = []string{
	"Transports",
	"Restaurants et bars",
	"Hôtel et logement",
	"Services en ligne",
	"IT et électronique",
	"Equipement et matériel",
	"Fournitures de bureau",
}

// KnownCategory reports whether t is one of Categories.
// Unknown categories are still accepted on submission.
func KnownCategory(t string) bool {
	for _, c := range Categories {
		if c == t {
			return true
		}
	}
	return false
}

var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
}

// AllowedFile reports whether a receipt file name carries an accepted image extension
func AllowedFile(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return allowedExtensions[ext]
}

// ParseAmount keeps the integer part of s ("12.50" is 12).
// It returns nil when s does not start with a number.
func ParseAmount(s string) *int {
	n, ok := leadingInt(s)
	if !ok {
		return nil
	}
	return &n
}

// ParsePct reads s like ParseAmount and falls back to DefaultPct when s has no number
func ParsePct(s string) int {
	n, ok := leadingInt(s)
	if !ok {
		return DefaultPct
	}
	return n
}

// ParseVAT keeps s only if it reads as a number
func ParseVAT(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if _, err := decimal.NewFromString(s); err != nil {
		return ""
	}
	return s
}
