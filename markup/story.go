package markup

import (
	"bytes"
	"context"
	"html"
	"io"

	"github.com/a-h/templ"

	"github.com/eringen/wikiengine/pages"
)

// Story returns a templ.Component that renders every item of story.
func Story(story []pages.Item) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		RenderStory(&buf, story)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// RenderStory writes one <div class="item TYPE"> per story item to buf.
// Item types without a renderer show their text escaped. Elements that are
// not objects are skipped.
func RenderStory(buf *bytes.Buffer, story []pages.Item) {
	for _, it := range story {
		if it.Raw != nil {
			continue
		}
		class := "item"
		if it.Type != "" {
			class += " " + html.EscapeString(it.Type)
		}
		buf.WriteString(`<div class="` + class + `" data-id="` + html.EscapeString(it.ID) + `">`)
		switch it.Type {
		case "paragraph":
			buf.WriteString("<p>" + Inline(it.Text) + "</p>")
		case "markdown":
			RenderMarkdown(buf, it.Text)
		case "code":
			buf.WriteString(`<pre class="code-block"><code>` + html.EscapeString(it.Text) + "</code></pre>")
		default:
			if it.Text != "" {
				buf.WriteString("<p>" + html.EscapeString(it.Text) + "</p>")
			}
		}
		buf.WriteString("</div>")
	}
}
