package pages

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
)

// Page is a wiki page as stored on disk.
//
// Only the fields the store reasons about are typed. Everything else in the
// document, and any typed field whose JSON does not fit its Go type, is kept
// verbatim in Extra so that any well-formed JSON object loads and is written
// back unchanged.
type Page struct {
	Title   string
	Story   []Item
	Journal []Action

	// Plugin names the plugin a page was resolved from. It is never
	// persisted.
	Plugin string

	Extra map[string]json.RawMessage
}

// Item is one block of page content. Text may hold [[Link]] markup.
type Item struct {
	ID    string
	Text  string
	Type  string
	Extra map[string]json.RawMessage

	// Raw holds a story element that is not a JSON object. It is written
	// back as is and carries no text.
	Raw json.RawMessage
}

// Action is a journal entry. Date is epoch milliseconds.
type Action struct {
	Type  string
	Date  *int64
	Item  json.RawMessage
	Extra map[string]json.RawMessage

	// Raw holds a journal element that is not a JSON object.
	Raw json.RawMessage
}

var errNotObject = errors.New("document is not a JSON object")

func (p Page) MarshalJSON() ([]byte, error) {
	return encodeObject([]member{
		{"title", p.Title, p.Title != ""},
		{"story", p.Story, p.Story != nil},
		{"journal", p.Journal, p.Journal != nil},
		{"plugin", p.Plugin, p.Plugin != ""},
	}, p.Extra)
}

func (p *Page) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	*p = Page{}
	take(fields, "title", &p.Title)
	take(fields, "story", &p.Story)
	take(fields, "journal", &p.Journal)
	take(fields, "plugin", &p.Plugin)
	p.Extra = compactFields(fields)
	return nil
}

func (it Item) MarshalJSON() ([]byte, error) {
	if it.Raw != nil {
		return it.Raw, nil
	}
	return encodeObject([]member{
		{"type", it.Type, it.Type != ""},
		{"id", it.ID, it.ID != ""},
		{"text", it.Text, it.Text != ""},
	}, it.Extra)
}

func (it *Item) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		*it = Item{Raw: compact(data)}
		return nil
	}
	*it = Item{}
	take(fields, "type", &it.Type)
	take(fields, "id", &it.ID)
	take(fields, "text", &it.Text)
	it.Extra = compactFields(fields)
	return nil
}

func (a Action) MarshalJSON() ([]byte, error) {
	if a.Raw != nil {
		return a.Raw, nil
	}
	var date any
	if a.Date != nil {
		date = *a.Date
	}
	return encodeObject([]member{
		{"type", a.Type, a.Type != ""},
		{"item", a.Item, a.Item != nil},
		{"date", date, a.Date != nil},
	}, a.Extra)
}

func (a *Action) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		*a = Action{Raw: compact(data)}
		return nil
	}
	*a = Action{}
	take(fields, "type", &a.Type)
	var item json.RawMessage
	if take(fields, "item", &item) {
		a.Item = compact(item)
	}
	take(fields, "date", &a.Date)
	a.Extra = compactFields(fields)
	return nil
}

// ParsePage decodes a stored document.
func ParsePage(data []byte) (*Page, error) {
	var p Page
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// encodeForStorage renders p the way it is kept on disk: indented by two
// spaces, with the transient plugin annotation dropped.
func encodeForStorage(p *Page) ([]byte, error) {
	stored := *p
	stored.Plugin = ""
	if _, ok := stored.Extra["plugin"]; ok {
		stored.Extra = make(map[string]json.RawMessage, len(p.Extra))
		for k, v := range p.Extra {
			if k != "plugin" {
				stored.Extra[k] = v
			}
		}
	}
	return json.MarshalIndent(stored, "", "  ")
}

// member is a typed field in its encoding position. A member that is not set
// falls back to the raw value of the same name in Extra, if any.
type member struct {
	name  string
	value any
	set   bool
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errNotObject
	}
	return fields, nil
}

// take decodes fields[name] into v and drops it from fields. A value that does
// not fit v is left in fields, and so is a null or empty string, so that it is
// written back where it was.
func take[T any](fields map[string]json.RawMessage, name string, dst *T) bool {
	raw, ok := fields[name]
	if !ok {
		return false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	*dst = v
	if !isBlank(raw) {
		delete(fields, name)
	}
	return true
}

func isBlank(raw json.RawMessage) bool {
	v := string(bytes.TrimSpace(raw))
	return v == "null" || v == `""`
}

func compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

func compactFields(fields map[string]json.RawMessage) map[string]json.RawMessage {
	if len(fields) == 0 {
		return nil
	}
	for k, v := range fields {
		fields[k] = compact(v)
	}
	return fields
}

// encodeObject writes known members in order, then the remaining extra
// members sorted by name. Extra members shadowed by a known member are
// skipped.
func encodeObject(known []member, extra map[string]json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	seen := make(map[string]bool, len(known))
	write := func(name string, raw []byte) {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(name)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(raw)
	}
	for _, m := range known {
		seen[m.name] = true
		if !m.set {
			if raw, ok := extra[m.name]; ok {
				write(m.name, raw)
			}
			continue
		}
		raw, err := json.Marshal(m.value)
		if err != nil {
			return nil, err
		}
		write(m.name, raw)
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		write(k, extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
