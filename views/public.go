package views

import (
	"bytes"
	"context"

	"github.com/a-h/templ"

	"github.com/eringen/pressroom"
	"github.com/eringen/pressroom/blog"
)

// Home lists the latest published posts as cards.
func Home(posts []blog.Post, site pressroom.SiteConfig) templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		return page(buf, site.Name, site, func() error {
			buf.WriteString(`<section class="post-list">`)
			if len(posts) == 0 {
				buf.WriteString(`<p class="empty">Nothing published yet.</p>`)
			}
			for _, p := range posts {
				postCard(buf, p)
			}
			buf.WriteString(`</section>`)
			return nil
		})
	})
}

// Archive lists every published post by publication date.
func Archive(posts []blog.Post, site pressroom.SiteConfig) templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		return page(buf, "Archive | "+site.Name, site, func() error {
			buf.WriteString(`<h1 class="heading-1">Archive</h1><ul class="archive">`)
			for _, p := range posts {
				buf.WriteString(`<li><a href="` + esc(p.Link()) + `">` + esc(p.Title) + `</a>`)
				if p.PublishedAt != nil {
					buf.WriteString(` <time datetime="` + isoDate(p.PublishedAt) + `">` + formatDate(p.PublishedAt) + `</time>`)
				}
				buf.WriteString(`</li>`)
			}
			buf.WriteString(`</ul>`)
			return nil
		})
	})
}

func postCard(buf *bytes.Buffer, p blog.Post) {
	buf.WriteString(`<article class="post-card">`)
	if src := imageURL(p.CoverImage); src != "" {
		buf.WriteString(`<img src="` + src + `" alt="" loading="lazy"/>`)
	}
	buf.WriteString(`<h2><a href="` + esc(p.Link()) + `">` + esc(p.Title) + `</a></h2>`)
	if p.PublishedAt != nil {
		buf.WriteString(`<time datetime="` + isoDate(p.PublishedAt) + `">` + formatDate(p.PublishedAt) + `</time>`)
	}
	buf.WriteString(`<p>` + esc(p.Excerpt) + `</p></article>`)
}

// Article renders a published post around its rendered body.
func Article(post blog.Post, body templ.Component, site pressroom.SiteConfig) templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		return page(buf, post.Title+" | "+site.Name, site, func() error {
			buf.WriteString(`<article class="post">`)
			if src := imageURL(post.PostCoverImage); src != "" {
				buf.WriteString(`<img class="post-cover" src="` + src + `" alt="" fetchpriority="high"/>`)
			}
			buf.WriteString(`<h1 class="post-title">` + esc(post.Title) + `</h1>`)
			if post.PublishedAt != nil {
				buf.WriteString(`<time datetime="` + isoDate(post.PublishedAt) + `">` + formatDate(post.PublishedAt) + `</time>`)
			}
			buf.WriteString(`<div class="post-body">`)
			if err := body.Render(ctx, buf); err != nil {
				return err
			}
			buf.WriteString(`</div></article>`)
			return nil
		})
	})
}

func NotFound() templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		buf.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"/><title>Not found</title></head>`)
		buf.WriteString(`<body><main><h1>Page not found</h1><p><a href="/">Back to the front page</a></p></main></body></html>`)
		return nil
	})
}

func ServerError() templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		buf.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"/><title>Error</title></head>`)
		buf.WriteString(`<body><main><h1>Something went wrong</h1><p>Please try again later.</p></main></body></html>`)
		return nil
	})
}
