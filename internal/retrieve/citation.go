package retrieve

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deedscope/deedscope/internal/model"
)

var instrumentNumberRe = regexp.MustCompile(`(?i)(?:instrument|document|file)\s*(?:no\.?|number|#)\s*:?\s*([0-9][0-9A-Z-]{4,})`)

// documentTypeTokens maps URL/text tokens to a recorded document type label.
var documentTypeTokens = []struct {
	token string
	label string
}{
	{"warranty-deed", "Warranty Deed"},
	{"deed-of-trust", "Deed of Trust"},
	{"quitclaim", "Quitclaim Deed"},
	{"deed", "Deed"},
	{"lien", "Lien"},
	{"judgment", "Judgment"},
	{"mortgage", "Mortgage"},
	{"tax", "Tax Record"},
	{"assessor", "Assessment Record"},
	{"plat", "Plat"},
}

// newCitation builds the SourceCitation for a freshly retrieved document.
func newCitation(source model.SourceType, rawURL, text string) model.SourceCitation {
	return model.SourceCitation{
		ID:               uuid.NewString(),
		SourceType:       source,
		SourceName:       sourceName(rawURL),
		URL:              rawURL,
		RetrievedAt:      time.Now().UTC(),
		Excerpt:          model.Excerpt(text),
		DocumentType:     inferDocumentType(rawURL),
		InstrumentNumber: findInstrumentNumber(text),
	}
}

func sourceName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}

func inferDocumentType(rawURL string) string {
	lower := strings.ToLower(rawURL)
	for _, dt := range documentTypeTokens {
		if strings.Contains(lower, dt.token) {
			return dt.label
		}
	}
	return ""
}

func findInstrumentNumber(text string) string {
	// Scan only the head of the document; instrument numbers are stamped
	// on the first page.
	head := text
	if len(head) > 4000 {
		head = head[:4000]
	}
	if m := instrumentNumberRe.FindStringSubmatch(head); m != nil {
		return m[1]
	}
	return ""
}
