package util

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

var (
	ErrNoFilename = errors.New("cannot extract valid filename")
)

// FilenameFromURL returns the last path element of u, which must look like a file name.
func FilenameFromURL(u *url.URL) (string, error) {
	if u == nil {
		return "", ErrNoFilename
	}
	filename := path.Base(strings.Trim(u.Path, "/"))
	// Don't allow "filenames" that are just ".", "..", "/" etc.
	if strings.Trim(filename, "./") == "" {
		return "", ErrNoFilename
	}
	return filename, nil
}

func FilenameFromURLString(s string) (string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	return FilenameFromURL(u)
}

// MediaFilename names a file downloaded from rawURL, using fallback when the URL has no usable file name or the
// name lacks an extension (CDN links often end in an opaque ID).
func MediaFilename(rawURL string, fallback string) string {
	name, err := FilenameFromURLString(rawURL)
	if err != nil || path.Ext(name) == "" {
		return fallback
	}
	return name
}
