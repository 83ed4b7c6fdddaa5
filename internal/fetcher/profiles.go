package fetcher

import (
	"archive/zip"
	"context"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// profilePrefix is the site path under which profile pages live.
const profilePrefix = "/pls/parlam/"

// ProfileLinks returns the href of every anchor in a saved link-list page, deduplicated
// and sorted.
func ProfileLinks(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse link list")
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || seen[href] {
			return
		}
		seen[href] = true
		links = append(links, href)
	})
	sort.Strings(links)
	return links, nil
}

// EntryName is the archive name of a profile link: the site prefix is dropped and
// "_.html" appended.
func EntryName(link string) string {
	p := link
	if u, err := url.Parse(link); err == nil && u.Path != "" {
		p = u.Path
		if u.RawQuery != "" {
			p += "?" + u.RawQuery
		}
	}
	p = strings.TrimPrefix(p, profilePrefix)
	p = strings.TrimPrefix(p, "/")
	return p + "_.html"
}

// ScrapeProfiles downloads every link relative to base and writes the pages into a zip
// archive on w. A link whose download fails after retries is logged and returned among the
// recalcitrant URLs; scraping carries on with the next link. When cb is non-nil it is
// consulted before each download and pauses the loop while the site is failing.
// Cancelling ctx stops the loop and returns its error.
func ScrapeProfiles(ctx context.Context, f Fetcher, cb *CircuitBreaker, base string, links []string, w io.Writer) ([]string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse base url")
	}

	log := zap.L().With(zap.String("base", base))
	zw := zip.NewWriter(w)
	var failed []string

	for i, link := range links {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return failed, eris.Wrap(err, "fetcher: scrape cancelled")
		}

		ref, err := url.Parse(link)
		if err != nil {
			log.Warn("fetcher: bad profile link", zap.String("link", link), zap.Error(err))
			failed = append(failed, link)
			continue
		}
		full := baseURL.ResolveReference(ref).String()

		if err := cb.Wait(ctx); err != nil {
			_ = zw.Close()
			return failed, eris.Wrap(err, "fetcher: scrape cancelled")
		}
		body, err := download(ctx, f, full)
		cb.Record(err)
		if err != nil {
			log.Warn("fetcher: profile download failed", zap.String("url", full), zap.Error(err))
			failed = append(failed, full)
			continue
		}

		entry, err := zw.CreateHeader(&zip.FileHeader{Name: EntryName(link), Method: zip.Deflate})
		if err != nil {
			_ = zw.Close()
			return failed, eris.Wrap(err, "fetcher: create archive entry")
		}
		if _, err := entry.Write(body); err != nil {
			_ = zw.Close()
			return failed, eris.Wrap(err, "fetcher: write archive entry")
		}
		log.Debug("fetcher: profile saved", zap.Int("index", i), zap.String("url", full))
	}

	if err := zw.Close(); err != nil {
		return failed, eris.Wrap(err, "fetcher: close archive")
	}
	return failed, nil
}

func download(ctx context.Context, f Fetcher, rawURL string) ([]byte, error) {
	rc, err := f.Download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}
	return body, nil
}
