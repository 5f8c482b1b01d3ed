package views

import (
	"bytes"
	"context"

	"github.com/a-h/templ"

	"github.com/eringen/pressroom"
	"github.com/eringen/pressroom/blog"
)

func csrfField(buf *bytes.Buffer, token string) {
	buf.WriteString(`<input type="hidden" name="_csrf" value="` + esc(token) + `"/>`)
}

func AdminLogin(message string, csrfToken string) templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		return adminPage(buf, "Sign in", func() error {
			buf.WriteString(`<h1>Sign in</h1>`)
			if message != "" {
				buf.WriteString(`<p class="form-error" role="alert">` + esc(message) + `</p>`)
			}
			buf.WriteString(`<form method="post" action="/admin/login/">`)
			csrfField(buf, csrfToken)
			buf.WriteString(`<label>Username <input name="username" autocomplete="username" required/></label>`)
			buf.WriteString(`<label>Password <input type="password" name="password" autocomplete="current-password" required/></label>`)
			buf.WriteString(`<button type="submit">Sign in</button></form>`)
			return nil
		})
	})
}

// AdminDashboard lists every post with its state and actions.
func AdminDashboard(posts []blog.Post, message string, csrfToken string) templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		return adminPage(buf, "Posts", func() error {
			buf.WriteString(`<header class="admin-header"><h1>Posts</h1><a href="/admin/new/" class="button">New post</a>`)
			buf.WriteString(`<form method="post" action="/admin/logout/">`)
			csrfField(buf, csrfToken)
			buf.WriteString(`<button type="submit">Sign out</button></form></header>`)
			if message != "" {
				buf.WriteString(`<p class="flash" role="status">` + esc(message) + `</p>`)
			}
			buf.WriteString(`<table class="posts"><thead><tr><th>Title</th><th>State</th><th>Updated</th><th></th></tr></thead><tbody>`)
			for _, p := range posts {
				edit := esc(pressroom.AdminPostPath(p.ID))
				buf.WriteString(`<tr data-state="` + p.State().String() + `">`)
				buf.WriteString(`<td><a href="` + edit + `">` + esc(p.Title) + `</a></td>`)
				buf.WriteString(`<td>` + p.State().String() + `</td>`)
				buf.WriteString(`<td>` + formatDate(&p.UpdatedAt) + `</td><td>`)
				buf.WriteString(`<form method="post" action="` + esc(pressroom.AdminPostPath(p.ID, "publish")) + `">`)
				csrfField(buf, csrfToken)
				label := "Publish"
				if p.Published {
					label = "Unpublish"
				}
				buf.WriteString(`<button type="submit">` + label + `</button></form>`)
				buf.WriteString(`<form method="post" action="` + esc(pressroom.AdminPostPath(p.ID, "delete")) + `">`)
				csrfField(buf, csrfToken)
				buf.WriteString(`<button type="submit" class="danger">Delete</button></form></td></tr>`)
			}
			buf.WriteString(`</tbody></table>`)
			return nil
		})
	})
}

type editorField struct {
	name  string
	label string
	kind  string // input type, or "textarea"
}

var editorFields = []editorField{
	{"title", "Title", "text"},
	{"slug", "Slug", "text"},
	{"excerpt", "Excerpt", "textarea"},
	{"coverImage", "Card image URL", "url"},
	{"postCoverImage", "Post cover image URL", "url"},
	{"content", "Content", "textarea"},
}

// AdminEditor renders the create and edit form. The field named by
// form.ErrorField is marked invalid.
func AdminEditor(form pressroom.EditorForm, csrfToken string) templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		title, action := "Edit post", esc(pressroom.AdminPostPath(form.ID))
		if form.IsNew {
			title, action = "New post", "/admin/posts/"
		}
		return adminPage(buf, title, func() error {
			buf.WriteString(`<h1>` + title + `</h1>`)
			if form.Error != "" {
				buf.WriteString(`<p class="form-error" role="alert">` + esc(form.Error) + `</p>`)
			}
			buf.WriteString(`<form method="post" action="` + action + `" class="editor">`)
			csrfField(buf, csrfToken)
			for _, f := range editorFields {
				invalid := ""
				if f.name == form.ErrorField {
					invalid = ` aria-invalid="true"`
				}
				value := esc(form.Values.Get(f.name))
				buf.WriteString(`<label>` + f.label + ` `)
				if f.kind == "textarea" {
					buf.WriteString(`<textarea name="` + f.name + `"` + invalid + `>` + value + `</textarea>`)
				} else {
					buf.WriteString(`<input type="` + f.kind + `" name="` + f.name + `" value="` + value + `"` + invalid + `/>`)
				}
				buf.WriteString(`</label>`)
			}
			buf.WriteString(`<input type="file" accept="image/*" data-upload="/admin/uploads/"/>`)
			buf.WriteString(`<button type="submit">Save</button></form>`)
			if !form.IsNew {
				state := "Draft"
				if form.Published {
					state = "Published"
				}
				buf.WriteString(`<p class="post-state">` + state + `</p>`)
			}
			return nil
		})
	})
}
