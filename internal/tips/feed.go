// Package tips serves the public tips feed.
package tips

import (
	"context"
	"html/template"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/illegalcall/fittrack/internal/models"
	"github.com/illegalcall/fittrack/internal/storage"
)

// FeedLimit caps how many tips the public feed shows.
const FeedLimit = 50

const loadFailedMessage = "Failed to load tips."

// TimeLayout is how tip timestamps are shown.
const TimeLayout = "Jan 2, 2006, 3:04 PM MST"

// Card is one rendered tip.
type Card struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
	Posted   string `json:"posted,omitempty"`
}

// View is the feed as the page shows it: cards, the empty state, or an error.
type View struct {
	Cards []Card `json:"cards"`
	Empty bool   `json:"empty"`
	Error string `json:"error,omitempty"`
}

type Feed struct {
	tips storage.TipStore
}

func NewFeed(tips storage.TipStore) *Feed {
	return &Feed{tips: tips}
}

// Load fetches the newest tips. A store failure is logged and turned into an
// error view.
func (f *Feed) Load(ctx context.Context) View {
	list, err := f.tips.Recent(ctx, FeedLimit)
	if err != nil {
		slog.Error("Failed to load tips", "error", err)
		return View{Error: loadFailedMessage}
	}
	if len(list) == 0 {
		return View{Empty: true}
	}
	cards := make([]Card, len(list))
	for i, t := range list {
		cards[i] = NewCard(t)
	}
	return View{Cards: cards}
}

// NewCard prepares a tip for display. Blank titles read "Tip".
func NewCard(t models.Tip) Card {
	c := Card{Title: strings.TrimSpace(t.Title), Text: t.Text, Posted: FormatTime(t.CreatedAt)}
	if c.Title == "" {
		c.Title = models.DefaultTipTitle
	}
	if t.HasImage() {
		c.ImageURL = strings.TrimSpace(*t.ImageURL)
	}
	return c
}

// FormatTime renders a creation time, or "" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

var feedTemplate = template.Must(template.New("feed").Parse(`
{{- if .Error}}<p id="status" class="status error">{{.Error}}</p>
{{- else if .Empty}}<p id="empty" class="empty">No tips yet. Check back soon.</p>
{{- else}}<div id="tipsGrid" class="tips-grid">
{{- range .Cards}}
  <div class="tip">
    {{- if .ImageURL}}<img class="img" src="{{.ImageURL}}" alt="tip image" />{{end}}
    <div class="body">
      <h2>{{.Title}}</h2>
      <p>{{.Text}}</p>
      {{- if .Posted}}<div class="meta">{{.Posted}}</div>{{end}}
    </div>
  </div>
{{- end}}
</div>
{{- end}}`))

// Render writes the feed markup. Every field is escaped.
func Render(w io.Writer, v View) error {
	return feedTemplate.Execute(w, v)
}
