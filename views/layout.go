package views

import (
	"bytes"

	"github.com/eringen/pressroom"
)

// page writes the document shell around body.
func page(buf *bytes.Buffer, title string, site pressroom.SiteConfig, body func() error) error {
	buf.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"/>`)
	buf.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1"/>`)
	buf.WriteString(`<title>` + esc(title) + `</title>`)
	if site.Description != "" {
		buf.WriteString(`<meta name="description" content="` + esc(site.Description) + `"/>`)
	}
	buf.WriteString(`<link rel="alternate" type="application/rss+xml" title="` + esc(site.Name) + `" href="/feed.xml"/>`)
	buf.WriteString(`<link rel="stylesheet" href="/public/styles.css"/>`)
	buf.WriteString(`</head><body><header class="site-header"><a href="/" class="site-name">` + esc(site.Name) + `</a>`)
	buf.WriteString(`<nav><a href="/blog/">Archive</a></nav></header><main>`)
	if err := body(); err != nil {
		return err
	}
	buf.WriteString(`</main><footer class="site-footer">`)
	if site.Author != "" {
		buf.WriteString(`<span>` + esc(site.Author) + `</span>`)
	}
	buf.WriteString(`</footer></body></html>`)
	return nil
}

// adminPage is the shell of the authoring console.
func adminPage(buf *bytes.Buffer, title string, body func() error) error {
	buf.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"/>`)
	buf.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1"/>`)
	buf.WriteString(`<meta name="robots" content="noindex"/>`)
	buf.WriteString(`<title>` + esc(title) + `</title>`)
	buf.WriteString(`<link rel="stylesheet" href="/public/styles.css"/></head><body class="admin"><main>`)
	if err := body(); err != nil {
		return err
	}
	buf.WriteString(`</main></body></html>`)
	return nil
}
