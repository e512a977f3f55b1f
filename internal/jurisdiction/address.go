package jurisdiction

import (
	"regexp"
	"strings"

	"github.com/deedscope/deedscope/internal/model"
)

var (
	streetNumberRe = regexp.MustCompile(`^(\d+)\s+(.+)$`)
	stateZipRe     = regexp.MustCompile(`\b([A-Z]{2})\s*(\d{5})\b`)
	nonAlnumRe     = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// ParseAddress splits a comma-segmented US address into components.
// "123 Main St, Austin, TX 78701" -> street, city, state, zip.
func ParseAddress(address string) model.ParsedAddress {
	parsed := model.ParsedAddress{Raw: address}

	addr := strings.Join(strings.Fields(strings.TrimSpace(address)), " ")
	segments := strings.Split(addr, ",")
	for i := range segments {
		segments[i] = strings.TrimSpace(segments[i])
	}

	if len(segments) >= 1 {
		parsed.FullStreet = segments[0]
		if m := streetNumberRe.FindStringSubmatch(segments[0]); m != nil {
			parsed.StreetNumber = m[1]
			parsed.StreetName = m[2]
		}
	}
	if len(segments) >= 2 {
		parsed.City = segments[1]
	}
	if len(segments) >= 3 {
		if m := stateZipRe.FindStringSubmatch(segments[2]); m != nil {
			parsed.State = m[1]
			parsed.Zip = m[2]
		} else if len(segments[2]) == 2 && segments[2] == strings.ToUpper(segments[2]) {
			parsed.State = segments[2]
		}
	}

	// State and ZIP often appear without a third comma segment.
	if parsed.State == "" || parsed.Zip == "" {
		if m := stateZipRe.FindStringSubmatch(addr); m != nil {
			if parsed.State == "" {
				parsed.State = m[1]
			}
			if parsed.Zip == "" {
				parsed.Zip = m[2]
			}
		}
	}

	return parsed
}

// Normalize lower-cases text, strips punctuation, and collapses whitespace
// so catalog matching is insensitive to formatting.
func Normalize(text string) string {
	lower := strings.ToLower(text)
	stripped := nonAlnumRe.ReplaceAllString(lower, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(stripped, " "))
}
