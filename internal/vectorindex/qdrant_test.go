package vectorindex

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestPayloadRoundTripsThroughQdrantValues(t *testing.T) {
	in := Payload{SiteID: 4, PageID: 12, URL: "https://x/a", Title: "A", Content: "body", ContentLength: 4}
	got := payloadFromValues(qdrant.NewValueMap(payloadMap(in)))
	if got != in {
		t.Fatalf("payload mismatch: got %#v want %#v", got, in)
	}
}

func TestPayloadFromValuesToleratesMissingKeys(t *testing.T) {
	got := payloadFromValues(map[string]*qdrant.Value{"url": qdrant.NewValueString("https://x/")})
	if got.URL != "https://x/" || got.SiteID != 0 || got.Title != "" {
		t.Fatalf("unexpected payload %#v", got)
	}
}

func TestMatchFilter(t *testing.T) {
	f := matchFilter("site_id", 9)
	if len(f.GetMust()) != 1 {
		t.Fatalf("expected one condition, got %d", len(f.GetMust()))
	}
	field := f.GetMust()[0].GetField()
	if field.GetKey() != "site_id" || field.GetMatch().GetInteger() != 9 {
		t.Fatalf("unexpected condition %v", field)
	}
}
