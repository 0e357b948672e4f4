package pages

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPageRoundTripKeepsUnknownFields(t *testing.T) {
	doc := `{"title":"Example A","story":[{"type":"paragraph","id":"7b56f22a4b9ee974","text":"hello","alias":"x1"}],` +
		`"journal":[{"type":"create","item":{"title":"Example A"},"date":1420938191608,"site":"fed.wiki"}],"synopsis":"custom"}`

	page, err := ParsePage([]byte(doc))
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}
	if page.Title != "Example A" {
		t.Errorf("Title = %q, want %q", page.Title, "Example A")
	}
	if len(page.Story) != 1 || page.Story[0].ID != "7b56f22a4b9ee974" {
		t.Fatalf("Story = %+v", page.Story)
	}
	if page.Journal[0].Date == nil || *page.Journal[0].Date != 1420938191608 {
		t.Errorf("journal date = %v, want 1420938191608", page.Journal[0].Date)
	}

	got, err := json.Marshal(page)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if diff := cmp.Diff(doc, string(got)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPageMistypedFieldIsPreserved(t *testing.T) {
	doc := `{"story":"not a list","title":"Odd"}`
	page, err := ParsePage([]byte(doc))
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}
	if page.Story != nil {
		t.Errorf("Story = %+v, want nil", page.Story)
	}
	if _, ok := page.Extra["story"]; !ok {
		t.Fatalf("expected raw story in Extra, got %v", page.Extra)
	}

	got, err := json.Marshal(page)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if want := `{"title":"Odd","story":"not a list"}`; string(got) != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}
}

func TestParsePageRejectsNonObjects(t *testing.T) {
	for _, doc := range []string{"{{{", "}}}", "", "null", "[]", `"page"`, "42"} {
		if _, err := ParsePage([]byte(doc)); err == nil {
			t.Errorf("ParsePage(%q) expected error", doc)
		}
	}
}

func TestParsePageEmptyObject(t *testing.T) {
	page, err := ParsePage([]byte("{}"))
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}
	if diff := cmp.Diff(&Page{}, page); diff != "" {
		t.Errorf("unexpected page (-want +got):\n%s", diff)
	}
}

func TestEncodeForStorage(t *testing.T) {
	got, err := encodeForStorage(&Page{Title: "Example A", Plugin: "paragraph"})
	if err != nil {
		t.Fatalf("encodeForStorage failed: %v", err)
	}
	want := "{\n  \"title\": \"Example A\"\n}"
	if string(got) != want {
		t.Errorf("encodeForStorage = %q, want %q", got, want)
	}
}

func TestPageKeepsNonObjectElements(t *testing.T) {
	doc := `{"title":"Mixed","story":[null,{"type":"paragraph","id":"a1","text":"see [[Other Page]]"},"loose"],` +
		`"journal":[7,{"type":"create","date":1420938191608}]}`

	page, err := ParsePage([]byte(doc))
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}
	if len(page.Story) != 3 {
		t.Fatalf("len(Story) = %d, want 3", len(page.Story))
	}
	if string(page.Story[0].Raw) != "null" || page.Story[0].Text != "" {
		t.Errorf("Story[0] = %+v, want raw null", page.Story[0])
	}
	if page.Story[1].ID != "a1" || page.Story[1].Type != "paragraph" {
		t.Errorf("Story[1] = %+v", page.Story[1])
	}
	if len(page.Journal) != 2 || string(page.Journal[0].Raw) != "7" {
		t.Errorf("Journal = %+v", page.Journal)
	}

	got, err := json.Marshal(page)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if diff := cmp.Diff(doc, string(got)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPageKeepsBlankFields(t *testing.T) {
	doc := `{"title":"","story":[{"type":"paragraph","id":"a1","text":""}],"journal":[{"type":"create","date":null}]}`

	page, err := ParsePage([]byte(doc))
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}
	if page.Title != "" || page.Journal[0].Date != nil {
		t.Errorf("page = %+v, want blank title and nil date", page)
	}

	got, err := json.Marshal(page)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if diff := cmp.Diff(doc, string(got)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	page.Title = "Named"
	got, err = json.Marshal(page)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if want := `{"title":"Named",`; string(got[:len(want)]) != want {
		t.Errorf("Marshal = %s, want title replaced in place", got)
	}
}

func TestEncodeForStorageDropsRawPlugin(t *testing.T) {
	page, err := ParsePage([]byte(`{"title":"Example A","plugin":null}`))
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}
	got, err := encodeForStorage(page)
	if err != nil {
		t.Fatalf("encodeForStorage failed: %v", err)
	}
	if want := "{\n  \"title\": \"Example A\"\n}"; string(got) != want {
		t.Errorf("encodeForStorage = %q, want %q", got, want)
	}
	if _, ok := page.Extra["plugin"]; !ok {
		t.Error("encodeForStorage modified the caller's Extra")
	}
}
