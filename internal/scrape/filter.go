package scrape

import (
	"net/url"
	"path"
	"strings"
)

// Hosts whose pages sit behind login walls or are video-only, so scraping
// them never yields founder or company text. Subdomains are blocked too.
var defaultBlockedHosts = []string{
	"linkedin.com",
	"facebook.com",
	"instagram.com",
	"twitter.com",
	"x.com",
	"tiktok.com",
	"youtube.com",
}

var defaultSkipPaths = []string{
	"/login*",
	"/signup*",
	"/authwall*",
	"/careers/*",
	"/jobs/*",
	"/*.pdf",
	"/*.zip",
}

// URLFilter decides which search-result URLs are worth scraping.
type URLFilter struct {
	hosts []string
	paths []string
}

// NewURLFilter builds a filter from blocked hosts and path globs. A glob
// ending in "/*" also matches everything below that directory. Empty
// arguments take the defaults.
func NewURLFilter(hosts, paths []string) *URLFilter {
	if len(hosts) == 0 {
		hosts = defaultBlockedHosts
	}
	if len(paths) == 0 {
		paths = defaultSkipPaths
	}
	f := &URLFilter{}
	for _, h := range hosts {
		f.hosts = append(f.hosts, strings.ToLower(strings.TrimPrefix(h, "www.")))
	}
	for _, p := range paths {
		f.paths = append(f.paths, strings.ToLower(p))
	}
	return f
}

// Skip reports whether rawURL should not be scraped. Relative and
// unparsable URLs are always skipped.
func (f *URLFilter) Skip(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return true
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, h := range f.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}

	p := strings.ToLower(u.Path)
	for _, glob := range f.paths {
		if globMatch(glob, p) {
			return true
		}
	}
	return false
}

func globMatch(glob, p string) bool {
	if ok, _ := path.Match(glob, p); ok {
		return true
	}
	dir, ok := strings.CutSuffix(glob, "/*")
	return ok && (p == dir || strings.HasPrefix(p, dir+"/"))
}
