package api

import (
	"bytes"
	"html/template"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/illegalcall/fittrack/internal/admin"
	"github.com/illegalcall/fittrack/internal/auth"
	"github.com/illegalcall/fittrack/internal/models"
	"github.com/illegalcall/fittrack/internal/tips"
)

const recentOnIndex = 5

const layoutHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>{{.Title}} · FitTrack</title>
</head>
<body>
<header>
  <nav><a href="/">Home</a> <a href="/tips">Tips</a> <a href="/admin">Admin</a></nav>
  <div data-auth="signed-out"{{if .Header.SignedIn}} hidden{{end}}>
    <a href="/#login">Login</a>
  </div>
  <div data-auth="signed-in"{{if not .Header.SignedIn}} hidden{{end}}>
    <img id="profilePic" src="{{.Header.AvatarURL}}" alt="avatar" width="32" height="32" />
    <span id="userEmail">{{.Header.Label}}</span>
    <form method="post" action="/api/logout"><button id="logoutBtn" type="submit">Logout</button></form>
  </div>
</header>
<main data-auth-state="{{.Header.AuthAttr}}">
{{template "content" .}}
</main>
</body>
</html>`

const indexHTML = `{{define "content"}}
{{- if .Header.SignedIn}}
<section data-auth="signed-in">
  <h1>Recent sessions</h1>
  {{- if .Sessions}}
  <table><tbody id="sessionsBody">
  {{- range .Sessions}}
    <tr><td>{{.Exercise}}</td><td>{{.Reps}}</td><td>{{printf "%.2f" .Calories}}</td></tr>
  {{- end}}
  </tbody></table>
  {{- else}}
  <p id="noSessions">No sessions logged yet.</p>
  {{- end}}
</section>
{{- else}}
<section data-auth="signed-out" id="login">
  <h1>Welcome to FitTrack</h1>
  <p>Sign up or log in to start tracking your workouts.</p>
</section>
{{- end}}
{{end}}`

const tipsHTML = `{{define "content"}}
<h1>Tips</h1>
{{.Feed}}
{{end}}`

const adminHTML = `{{define "content"}}
<h1>Admin</h1>
{{- if .Admin.Status}}
<p id="status">{{.Admin.Status}}</p>
{{- end}}
{{- if .Admin.Granted}}
<form method="get" action="/admin"><input id="search" name="q" value="{{.Admin.Filter}}" /></form>
<table>
  <thead><tr><th>Name</th><th>ID</th><th>Admin</th></tr></thead>
  <tbody id="usersBody">
  {{- range .Admin.Users}}
    <tr data-id="{{.ID}}"><td>{{.DisplayName}}</td><td>{{.ID}}</td><td>{{if .IsAdmin}}yes{{else}}no{{end}}</td></tr>
  {{- end}}
  </tbody>
</table>
<table>
  <thead><tr><th>Title</th><th>Image</th><th>Posted</th></tr></thead>
  <tbody id="tipsBody">
  {{- range .Admin.Tips}}
    <tr data-id="{{.ID}}"><td>{{.Title}}</td><td>{{if .HasImage}}yes{{else}}no{{end}}</td><td>{{.Posted}}</td></tr>
  {{- end}}
  </tbody>
</table>
{{- end}}
{{end}}`

var layout = template.Must(template.New("layout").Parse(layoutHTML))

func pageTemplate(content string) *template.Template {
	return template.Must(template.Must(layout.Clone()).Parse(content))
}

var (
	indexPage = pageTemplate(indexHTML)
	tipsPage  = pageTemplate(tipsHTML)
	adminPage = pageTemplate(adminHTML)
)

type adminView struct {
	Status  string
	Granted bool
	Filter  string
	Users   []models.Profile
	Tips    []TipRow
}

type pageData struct {
	Title    string
	Header   auth.HeaderView
	Sessions []models.SessionRecord
	Feed     template.HTML
	Admin    adminView
}

func (s *Server) header(c *fiber.Ctx, sess *auth.Session) auth.HeaderView {
	var resolver auth.AvatarResolver
	if s.Resolver != nil {
		resolver = s.Resolver
	}
	return auth.Header(c.UserContext(), sess, s.Profiles, resolver, s.cfg.Server.DefaultAvatar)
}

func render(c *fiber.Ctx, t *template.Template, data pageData) error {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		slog.Error("Failed to render page", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to render page")
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func (s *Server) handleIndexPage(c *fiber.Ctx) error {
	sess := s.pageSession(c)
	data := pageData{Title: "Home", Header: s.header(c, sess)}
	if sess != nil {
		recs, err := s.Sessions.LoadRecent(c.UserContext(), sess, recentOnIndex)
		if err != nil {
			slog.Warn("Failed to load recent sessions", "user_id", sess.Identity.ID, "error", err)
		}
		data.Sessions = recs
	}
	return render(c, indexPage, data)
}

func (s *Server) handleTipsPage(c *fiber.Ctx) error {
	sess := s.pageSession(c)
	var feed bytes.Buffer
	if err := tips.Render(&feed, s.Feed.Load(c.UserContext())); err != nil {
		slog.Error("Failed to render tips", "error", err)
	}
	return render(c, tipsPage, pageData{
		Title:  "Tips",
		Header: s.header(c, sess),
		// tips.Render escapes every field.
		Feed: template.HTML(feed.String()),
	})
}

func (s *Server) handleAdminPage(c *fiber.Ctx) error {
	sess := s.pageSession(c)
	page := s.Admin.Open(c.UserContext(), sess)

	view := adminView{Status: page.Status, Granted: page.Gate == admin.GateGranted}
	if view.Granted {
		st := page.State.WithFilter(c.Query("q"))
		view.Filter = st.Filter()
		view.Users = st.Visible()
		view.Tips = tipRows(st.Tips())
	}
	return render(c, adminPage, pageData{Title: "Admin", Header: s.header(c, sess), Admin: view})
}
