package agent

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// EventType classifies a sidecar stream frame
type EventType string

const (
	EventProgress   EventType = "progress"
	EventScreenshot EventType = "screenshot"
	EventLiveView   EventType = "live_view"
	EventResult     EventType = "result"
	EventError      EventType = "error"
	EventDebug      EventType = "debug"
)

// Event is one decoded frame from the sidecar's streaming channel.
// Data holds the payload for screenshot (base64 string) and result
// (object) frames.
type Event struct {
	Type    EventType       `json:"type"`
	Step    string          `json:"step,omitempty"`
	Message string          `json:"message,omitempty"`
	Label   string          `json:"label,omitempty"`
	URL     string          `json:"url,omitempty"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Decoder incrementally decodes newline-delimited `data: {...}` frames from
// a byte stream. Frames are separated by a blank line; a partial trailing
// fragment is held back until its terminator arrives.
type Decoder struct {
	r     io.Reader
	buf   bytes.Buffer
	chunk []byte
	eof   bool
}

// NewDecoder wraps a stream body.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, chunk: make([]byte, 4096)}
}

// Next returns the next decoded event. io.EOF signals a cleanly exhausted
// stream; malformed frames are skipped.
func (d *Decoder) Next() (*Event, error) {
	for {
		if evt := d.popFrame(); evt != nil {
			return evt, nil
		}
		if d.eof {
			// The stream may end without a final blank line; the
			// remainder is one implicit frame.
			if d.buf.Len() > 0 {
				rest := d.buf.String()
				d.buf.Reset()
				if evt := parseFrame(rest); evt != nil {
					return evt, nil
				}
			}
			return nil, io.EOF
		}

		n, err := d.r.Read(d.chunk)
		if n > 0 {
			d.buf.Write(d.chunk[:n])
		}
		if err == io.EOF {
			d.eof = true
		} else if err != nil {
			return nil, err
		}
	}
}

// popFrame removes and parses the next complete frame, skipping frames
// that carry no event.
func (d *Decoder) popFrame() *Event {
	for {
		data := d.buf.Bytes()
		idx := bytes.Index(data, []byte("\n\n"))
		if idx < 0 {
			return nil
		}
		frame := string(data[:idx])
		d.buf.Next(idx + 2)
		if evt := parseFrame(frame); evt != nil {
			return evt
		}
	}
}

func parseFrame(frame string) *Event {
	for _, line := range strings.Split(frame, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		var evt Event
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			continue
		}
		if evt.Type == "" {
			continue
		}
		return &evt
	}
	return nil
}
