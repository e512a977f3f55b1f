package agent

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// chunkedReader returns its frames in deliberately awkward pieces so the
// decoder has to reassemble split fragments.
type chunkedReader struct {
	chunks []string
	pos    int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if c.pos >= len(c.chunks) {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[c.pos])
	c.pos++
	return n, nil
}

func TestDecoder_SplitFrames(t *testing.T) {
	r := &chunkedReader{chunks: []string{
		`data: {"type":"progress","step":"lookup","mes`,
		`sage":"Resolving county"}` + "\n\n" + `data: {"type":"scre`,
		`enshot","label":"Search results","data":"aGVsbG8="}`,
		"\n\ndata: " + `{"type":"result","data":{"address":"123 Main St","county":"Harris County"}}` + "\n\n",
	}}

	decoder := NewDecoder(r)

	evt, err := decoder.Next()
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if evt.Type != EventProgress || evt.Step != "lookup" || evt.Message != "Resolving county" {
		t.Errorf("first frame = %+v", evt)
	}

	evt, err = decoder.Next()
	if err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if evt.Type != EventScreenshot || evt.Label != "Search results" {
		t.Errorf("second frame = %+v", evt)
	}
	if string(evt.Data) != `"aGVsbG8="` {
		t.Errorf("screenshot payload = %s", evt.Data)
	}

	evt, err = decoder.Next()
	if err != nil {
		t.Fatalf("third frame: %v", err)
	}
	if evt.Type != EventResult {
		t.Errorf("third frame type = %s", evt.Type)
	}

	if _, err := decoder.Next(); err != io.EOF {
		t.Errorf("expected EOF after last frame, got %v", err)
	}
}

func TestDecoder_SkipsMalformedAndBlankFrames(t *testing.T) {
	stream := strings.Join([]string{
		"data: {not json}",
		": keepalive comment",
		"",
		`data: {"type":"debug","message":"portal loaded"}`,
		"",
	}, "\n")

	decoder := NewDecoder(strings.NewReader(stream))
	evt, err := decoder.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if evt.Type != EventDebug || evt.Message != "portal loaded" {
		t.Errorf("event = %+v", evt)
	}
	if _, err := decoder.Next(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestDecoder_TrailingFrameWithoutBlankLine(t *testing.T) {
	decoder := NewDecoder(strings.NewReader(`data: {"type":"progress","message":"last"}`))
	evt, err := decoder.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if evt.Message != "last" {
		t.Errorf("message = %q", evt.Message)
	}
	if _, err := decoder.Next(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestClient_SearchStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search-stream" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, `data: {"type":"progress","step":"retrieval","message":"Searching recorder portal"}`+"\n\n")
		io.WriteString(w, `data: {"type":"result","data":{"address":"123 Main St, Houston, TX","county":"Harris County","parcelId":"044-121-000-0003","ownershipChain":[{"date":"2021-03-01","grantor":"Sunset Realty LLC","grantee":"Johnson Family Trust","documentType":"Warranty Deed","documentNumber":"2021-446871"}],"liens":[{"type":"Deed of Trust","claimant":"First National Bank","amount":"$385,000","status":"active"}]}}`+"\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, 10*time.Second, nil)

	var events []Event
	result, err := client.SearchStream(context.Background(), "123 Main St, Houston, TX", "Harris County", func(evt Event) {
		events = append(events, evt)
	})
	if err != nil {
		t.Fatalf("SearchStream: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("relayed %d events, want 2", len(events))
	}
	if events[0].Type != EventProgress || events[0].Step != "retrieval" {
		t.Errorf("first event = %+v", events[0])
	}

	if result.County != "Harris County" || result.ParcelID != "044-121-000-0003" {
		t.Errorf("result = %+v", result)
	}
	if len(result.OwnershipChain) != 1 || result.OwnershipChain[0].DocumentNumber != "2021-446871" {
		t.Errorf("ownership chain = %+v", result.OwnershipChain)
	}
	if len(result.Liens) != 1 || result.Liens[0].Claimant != "First National Bank" {
		t.Errorf("liens = %+v", result.Liens)
	}
}

func TestClient_SearchStreamErrorFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `data: {"type":"progress","message":"starting"}`+"\n\n")
		io.WriteString(w, `data: {"type":"error","error":"portal blocked the session"}`+"\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, 10*time.Second, nil)
	_, err := client.SearchStream(context.Background(), "123 Main St", "Harris County", nil)
	if err == nil || !strings.Contains(err.Error(), "portal blocked the session") {
		t.Errorf("err = %v", err)
	}
}

func TestClient_SearchStreamTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `data: {"type":"progress","message":"starting"}`+"\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, 10*time.Second, nil)
	_, err := client.SearchStream(context.Background(), "123 Main St", "Harris County", nil)
	if err == nil || !strings.Contains(err.Error(), "without a result") {
		t.Errorf("err = %v", err)
	}
}

func TestResult_Document(t *testing.T) {
	result := &Result{
		Address:  "123 Main St, Houston, TX",
		County:   "Harris County",
		ParcelID: "044-121-000-0003",
		OwnershipChain: []DeedRecord{
			{Date: "2021-03-01", Grantor: "Sunset Realty LLC", Grantee: "Johnson Family Trust", DocumentType: "Warranty Deed", DocumentNumber: "2021-446871"},
		},
		Liens: []LienRecord{
			{Type: "Deed of Trust", Claimant: "First National Bank", Amount: "$385,000", Status: "active"},
		},
	}

	doc := result.Document("https://www.cclerk.hctx.net/applications/websearch/")
	if doc.Citation.ID == "" {
		t.Error("citation missing id")
	}
	for _, want := range []string{
		"Sunset Realty LLC conveyed to Johnson Family Trust",
		"Instrument No. 2021-446871",
		"Deed of Trust held by First National Bank",
		"Parcel ID: 044-121-000-0003",
	} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("document text missing %q", want)
		}
	}
}
