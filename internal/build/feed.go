package build

import (
	"strings"

	"github.com/gorilla/feeds"

	"git.home.luguber.info/inful/verin/internal/config"
	ferrors "git.home.luguber.info/inful/verin/internal/foundation/errors"
)

// renderFeed builds rss.xml from the sorted articles. Timestamps come from
// the posts only, so unchanged input yields an identical feed.
func renderFeed(cfg *config.Config, articles []Article) ([]byte, error) {
	rss := cfg.RSS
	title := rss.Title
	if title == "" {
		title = cfg.Name
	}
	base := strings.TrimRight(rss.Link, "/")

	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: base + "/"},
		Description: rss.Description,
	}
	if rss.Author != "" {
		feed.Author = &feeds.Author{Name: rss.Author}
	}
	if len(articles) > 0 {
		feed.Created = articles[0].Published
		feed.Updated = articles[0].Published
	}

	for _, a := range articles {
		link := base + "/" + a.Page
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       a.Name,
			Link:        &feeds.Link{Href: link},
			Id:          link,
			Description: string(a.Summary),
			Created:     a.Published,
		})
	}

	out, err := feed.ToRss()
	if err != nil {
		return nil, ferrors.BuildError("render rss feed").WithCause(err).Fatal().Build()
	}
	return []byte(out), nil
}
