package pressroom

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pressroom/blog"
)

type stubAuth map[string]string

func (s stubAuth) Authenticate(_ context.Context, user, password string) (string, error) {
	if p, ok := s[user]; ok && p == password {
		return user, nil
	}
	return "", ErrInvalidCredentials
}

func text(format string, args ...any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, format, args...)
		return err
	})
}

func titles(posts []blog.Post) string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Slug
	}
	return strings.Join(out, ",")
}

func stubViews() ViewFuncs {
	return ViewFuncs{
		Home:    func(posts []blog.Post, _ SiteConfig) templ.Component { return text("home:%s", titles(posts)) },
		Archive: func(posts []blog.Post, _ SiteConfig) templ.Component { return text("archive:%s", titles(posts)) },
		Article: func(post blog.Post, body templ.Component, _ SiteConfig) templ.Component {
			return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
				fmt.Fprintf(w, "article:%s|", post.Slug)
				return body.Render(ctx, w)
			})
		},
		AdminLogin: func(msg, _ string) templ.Component { return text("login:%s", msg) },
		AdminDashboard: func(posts []blog.Post, msg, _ string) templ.Component {
			return text("dashboard:%s:%s", msg, titles(posts))
		},
		AdminEditor: func(f EditorForm, _ string) templ.Component {
			return text("editor:%s:%s:%s", f.ErrorField, f.Error, f.Values.Get("title"))
		},
		NotFound:    func() templ.Component { return text("not-found") },
		ServerError: func() templ.Component { return text("server-error") },
	}
}

type testClient struct {
	t      *testing.T
	app    *App
	server *httptest.Server
	http   *http.Client
}

func newTestApp(t *testing.T, cfg SiteConfig, opts ...Option) *testClient {
	t.Helper()
	cfg.SessionSecret = "test-session-secret"
	cfg.URL = "https://example.com"
	if cfg.StaticDir == "" {
		cfg.StaticDir = t.TempDir()
	}
	opts = append([]Option{
		WithStore(newTestStore(t)),
		WithAuthenticator(stubAuth{"alice": "pw"}),
		WithLogger(zerolog.Nop()),
	}, opts...)
	app := New(cfg, stubViews(), opts...)
	require.NoError(t, app.Init(context.Background()))
	t.Cleanup(func() { app.Close() })

	srv := httptest.NewServer(app.Echo)
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{
		t:      t,
		app:    app,
		server: srv,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type response struct {
	*http.Response
	body string
}

func (c *testClient) do(req *http.Request) response {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return response{Response: resp, body: string(b)}
}

func (c *testClient) get(path string, header ...string) response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.server.URL+path, nil)
	require.NoError(c.t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return c.do(req)
}

// csrf returns the token from the _csrf cookie, fetching a page first when
// the cookie is not set yet.
func (c *testClient) csrf() string {
	c.t.Helper()
	u, _ := url.Parse(c.server.URL)
	for attempt := 0; attempt < 2; attempt++ {
		for _, ck := range c.http.Jar.Cookies(u) {
			if ck.Name == "_csrf" {
				return ck.Value
			}
		}
		c.get("/admin/login/")
	}
	c.t.Fatal("no csrf cookie")
	return ""
}

func (c *testClient) post(path string, form url.Values) response {
	c.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("_csrf", c.csrf())
	req, err := http.NewRequest(http.MethodPost, c.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *testClient) login() {
	c.t.Helper()
	resp := c.post("/admin/login/", url.Values{"username": {"alice"}, "password": {"pw"}})
	require.Equal(c.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(c.t, "/admin/", resp.Header.Get("Location"))
}

// createPost creates a post through the console and returns it.
func (c *testClient) createPost(slug, content string) blog.Post {
	c.t.Helper()
	form := postForm(slug)
	if content != "" {
		form.Set("content", content)
	}
	resp := c.post("/admin/posts/", form)
	require.Equal(c.t, http.StatusSeeOther, resp.StatusCode, resp.body)
	p, err := c.app.Store.FindBySlug(context.Background(), slug, false)
	require.NoError(c.t, err)
	return p
}

func TestAdminRequiresSession(t *testing.T) {
	c := newTestApp(t, SiteConfig{})

	resp := c.get("/admin/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/login/", resp.Header.Get("Location"))

	resp = c.get("/admin/new/", "Accept", "application/json")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, resp.body)

	resp = c.post("/admin/posts/", postForm("sneaky"))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, err := c.app.Store.FindBySlug(context.Background(), "sneaky", false)
	assert.ErrorIs(t, err, blog.ErrNotFound)

	resp = c.get("/admin/login/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "login:", resp.body)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}

func TestAdminRejectsMissingCSRFToken(t *testing.T) {
	c := newTestApp(t, SiteConfig{})
	c.login()

	req, err := http.NewRequest(http.MethodPost, c.server.URL+"/admin/posts/", strings.NewReader(postForm("x").Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := c.do(req)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	c := newTestApp(t, SiteConfig{})

	resp := c.post("/admin/login/", url.Values{"username": {"alice"}, "password": {"nope"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "login:Invalid username or password.", resp.body)

	c.login()
	resp = c.get("/admin/login/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode, "signed-in authors skip the login page")

	resp = c.post("/admin/logout/", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, http.StatusSeeOther, c.get("/admin/").StatusCode)
}

func TestLoginIsRateLimited(t *testing.T) {
	c := newTestApp(t, SiteConfig{})
	bad := url.Values{"username": {"alice"}, "password": {"nope"}}

	for i := 0; i < loginAttemptLimit; i++ {
		require.Equal(t, http.StatusUnauthorized, c.post("/admin/login/", bad).StatusCode)
	}
	resp := c.post("/admin/login/", url.Values{"username": {"alice"}, "password": {"pw"}})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
	assert.Equal(t, "login:Too many login attempts. Try again later.", resp.body)
}

func TestPublishingFlow(t *testing.T) {
	c := newTestApp(t, SiteConfig{})
	c.login()

	p := c.createPost("launch", "# Launch\n\n<StatCard number=\"42%\" label=\"Growth\" />\n")
	assert.False(t, p.Published)

	resp := c.get("/admin/?msg=created")
	assert.Equal(t, "dashboard:Post created.:launch", resp.body)

	resp = c.get("/blog/launch/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "drafts are not public")
	assert.Equal(t, "not-found", resp.body)
	assert.Equal(t, "home:", c.get("/").body)

	resp = c.post("/admin/posts/"+p.ID+"/publish/", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/?msg=published", resp.Header.Get("Location"))

	resp = c.get("/blog/launch/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "public, max-age=60", resp.Header.Get("Cache-Control"))
	assert.True(t, strings.HasPrefix(resp.body, "article:launch|"))
	assert.Contains(t, resp.body, `<h1 data-block="heading" class="heading-1">Launch</h1>`)
	assert.Contains(t, resp.body, `<span class="stat-number">42%</span>`)
	assert.Equal(t, "home:launch", c.get("/").body, "publishing invalidates the listing")
	assert.Equal(t, "archive:launch", c.get("/blog/").body)

	form := postForm("relaunch")
	resp = c.post("/admin/posts/"+p.ID+"/", form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, http.StatusNotFound, c.get("/blog/launch/").StatusCode, "old slug is invalidated")
	assert.Equal(t, http.StatusOK, c.get("/blog/relaunch/").StatusCode)

	resp = c.post("/admin/posts/"+p.ID+"/delete/", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/?msg=deleted", resp.Header.Get("Location"))
	assert.Equal(t, http.StatusNotFound, c.get("/blog/relaunch/").StatusCode, "deleted article is not served from cache")
	assert.Equal(t, "home:", c.get("/").body)

	resp = c.get("/admin/posts/" + p.ID + "/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEditorErrors(t *testing.T) {
	c := newTestApp(t, SiteConfig{})
	c.login()

	form := postForm("x")
	form.Set("title", "  ")
	resp := c.post("/admin/posts/", form)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "editor:title:Title is required.:  ", resp.body)

	c.createPost("taken", "")
	resp = c.post("/admin/posts/", postForm("taken"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "editor:slug:A post with this slug already exists.:Title taken", resp.body)

	form = postForm("mystery")
	form.Set("content", "<Mystery />")
	resp = c.post("/admin/posts/", form)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, resp.body, "Content uses an unknown component: Mystery.")

	resp = c.post("/admin/posts/missing/", postForm("y"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMutationsAreRateLimited(t *testing.T) {
	c := newTestApp(t, SiteConfig{RateLimit: 2})
	c.login()

	c.createPost("one", "")
	c.createPost("two", "")
	resp := c.post("/admin/posts/", postForm("three"))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
	assert.Contains(t, resp.body, "Too many requests.")

	_, err := c.app.Store.FindBySlug(context.Background(), "three", false)
	assert.ErrorIs(t, err, blog.ErrNotFound)
}

func TestPublicFeeds(t *testing.T) {
	c := newTestApp(t, SiteConfig{Name: "Daily"})
	c.login()
	for _, slug := range []string{"older", "newer"} {
		p := c.createPost(slug, "")
		require.Equal(t, http.StatusSeeOther, c.post("/admin/posts/"+p.ID+"/publish/", nil).StatusCode)
	}
	c.createPost("draft", "")

	resp := c.get("/sitemap.xml")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sm sitemapURLSet
	require.NoError(t, xml.Unmarshal([]byte(resp.body), &sm))
	var locs []string
	for _, u := range sm.URLs {
		locs = append(locs, u.Loc)
	}
	assert.Equal(t, []string{
		"https://example.com/",
		"https://example.com/blog/newer/",
		"https://example.com/blog/older/",
	}, locs)
	assert.NotEmpty(t, sm.URLs[1].LastMod)

	resp = c.get("/feed.xml")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/rss+xml; charset=utf-8", resp.Header.Get("Content-Type"))
	var feed rssXML
	require.NoError(t, xml.Unmarshal([]byte(resp.body), &feed))
	assert.Equal(t, "Daily", feed.Channel.Title)
	require.Len(t, feed.Channel.Items, 2)
	assert.NotEmpty(t, feed.Channel.Items[0].PubDate)

	resp = c.get("/robots.txt")
	assert.Contains(t, resp.body, "Disallow: /admin\n")
	assert.Contains(t, resp.body, "Sitemap: https://example.com/sitemap.xml\n")
}

func TestUnknownRoutesRenderNotFound(t *testing.T) {
	c := newTestApp(t, SiteConfig{})
	resp := c.get("/nope/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not-found", resp.body)

	resp = c.get("/blog")
	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
}

func (c *testClient) upload(name string, data []byte) response {
	c.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(c.t, err)
	_, err = fw.Write(data)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.server.URL+"/admin/uploads/", &body)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-CSRF-Token", c.csrf())
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func TestUpload(t *testing.T) {
	c := newTestApp(t, SiteConfig{})
	c.login()

	resp := c.upload("cover.png", pngBytes(t, 64, 64))
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.body)
	var out uploadResponse
	require.NoError(t, json.Unmarshal([]byte(resp.body), &out))
	assert.True(t, strings.HasPrefix(out.URL, "https://example.com/public/uploads/cover-"), out.URL)

	resp = c.upload("notes.txt", []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"File is not a supported image."}`, resp.body)
}

func TestInitRequiresSecretAndAuthors(t *testing.T) {
	app := New(SiteConfig{}, stubViews(), WithLogger(zerolog.Nop()))
	assert.ErrorContains(t, app.Init(context.Background()), "SessionSecret")

	app = New(SiteConfig{SessionSecret: "x"}, stubViews(), WithLogger(zerolog.Nop()))
	assert.ErrorContains(t, app.Init(context.Background()), "author")
}
