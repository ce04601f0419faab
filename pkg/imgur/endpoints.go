package imgur

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// albumURLPattern accepts the album URL forms imgur serves: http or https,
// optional www. or m. prefix, /a/ or /gallery/ paths, and a trailing #n
// image fragment.
var albumURLPattern = regexp.MustCompile(`^(https?)://(?:www\.)?(?:m\.)?imgur\.com/(?:(?:a|gallery)/)?([a-zA-Z0-9]+)/?(?:#[0-9]+)?$`)

// ParseAlbumURL extracts the album key from an imgur album URL. The second
// return value reports whether the URL is an imgur album URL at all.
func ParseAlbumURL(raw string) (string, bool) {
	m := albumURLPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", false
	}
	return m[2], true
}

// AlbumPageURL returns the URL of the page to scrape for a given album URL.
// Imgur album URLs are rewritten to the blog layout, which embeds the whole
// image list without scripting. Any other absolute http(s) URL passes
// through unchanged so mirrors and test servers can be scraped directly.
func AlbumPageURL(raw string) (string, error) {
	if key, ok := ParseAlbumURL(raw); ok {
		return fmt.Sprintf("https://imgur.com/a/%s/layout/blog", key), nil
	}

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid album URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid album URL %q: not an http(s) URL", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid album URL %q: missing host", raw)
	}
	return raw, nil
}

// AlbumKey derives the album key from a URL: the imgur album key when the
// URL matches a known imgur form, the trailing path segment otherwise.
func AlbumKey(raw string) (string, error) {
	if key, ok := ParseAlbumURL(raw); ok {
		return key, nil
	}

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid album URL %q: %w", raw, err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	key := segments[len(segments)-1]
	if key == "" {
		return "", fmt.Errorf("cannot derive album key from URL %q", raw)
	}
	return key, nil
}

// ImageURL builds the full-resolution download URL for an image identifier
func ImageURL(baseURL, id, ext string) string {
	return strings.TrimRight(baseURL, "/") + "/" + id + ext
}
