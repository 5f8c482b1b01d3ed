package pressroom

import (
	"encoding/xml"
	"net/http"
	"slices"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pressroom/blog"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// buildSitemap lists the home page and every published article, most
// recently updated first.
func (a *App) buildSitemap(posts []blog.Post) sitemapURLSet {
	base := a.Config.URL
	sorted := slices.Clone(posts)
	slices.SortStableFunc(sorted, func(x, y blog.Post) int {
		return y.UpdatedAt.Compare(x.UpdatedAt)
	})

	urls := make([]sitemapURL, 0, len(sorted)+1)
	home := sitemapURL{Loc: BuildURL(base)}
	if len(sorted) > 0 {
		home.LastMod = sorted[0].UpdatedAt.UTC().Format(time.RFC3339)
	}
	urls = append(urls, home)
	for _, p := range sorted {
		urls = append(urls, sitemapURL{
			Loc:     ArticleURL(base, p.Slug),
			LastMod: p.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
}

func (a *App) renderSitemap(c echo.Context, posts []blog.Post) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(a.buildSitemap(posts))
}
