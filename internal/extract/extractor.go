package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deedscope/deedscope/internal/model"
)

// perDocumentLimit bounds how much of each source document enters a prompt.
const perDocumentLimit = 4000

// buildContext renders the retrieved documents into one prompt block.
// Each document is headed by its source so the model can cite it.
func buildContext(docs []model.RetrievedDocument) string {
	var b strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&b, "=== Source %d (%s: %s) ===\n", i+1, doc.Source, doc.Citation.SourceName)
		text := doc.Text
		if len(text) > perDocumentLimit {
			text = text[:perDocumentLimit]
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// decodeStrict unmarshals a model response, rejecting fields outside the
// declared envelope. Extraction output feeds legal schedules, so a response
// that drifts from the schema is discarded rather than guessed at.
func decodeStrict(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode extraction response: %w", err)
	}
	return nil
}
