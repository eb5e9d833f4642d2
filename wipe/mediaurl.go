package wipe

import (
	"fmt"
	"net/url"
	"strings"
)

const objectPathMarker = "/o/"

// storagePathFromURL recovers the bucket-relative object path from a media
// URL stored in a message document. Download URLs escape the object path as
// a single segment ("chats%2Fc1%2Fimg.png"), so the raw path is cut before
// unescaping. gs:// URLs and bare object paths are accepted too.
func storagePathFromURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("empty media URL")
	}

	if rest, ok := strings.CutPrefix(rawURL, "gs://"); ok {
		_, path, ok := strings.Cut(rest, "/")
		if !ok || path == "" {
			return "", fmt.Errorf("no object path in URL: %s", rawURL)
		}
		return path, nil
	}

	if !strings.Contains(rawURL, "://") {
		return strings.TrimPrefix(rawURL, "/"), nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	esc := u.EscapedPath()
	i := strings.Index(esc, objectPathMarker)
	if i < 0 {
		return "", fmt.Errorf("no object path in URL: %s", rawURL)
	}
	path, err := url.PathUnescape(esc[i+len(objectPathMarker):])
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("no object path in URL: %s", rawURL)
	}
	return path, nil
}
