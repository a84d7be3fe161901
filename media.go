package clipbot

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyResult   = errors.New("media result has no content")
	ErrInvalidResult = errors.New("media result must have exactly one variant")
)

// MediaKind identifies which variant of a MediaResult is populated.
type MediaKind string

const (
	MediaKindNone     MediaKind = ""
	MediaKindVideo    MediaKind = "video"
	MediaKindPhoto    MediaKind = "photo"
	MediaKindPhotoURL MediaKind = "photo_url"
)

// A MediaResult is what a successful Extractor produces: raw video bytes, a set of photo payloads, or a set of
// hosted photo URLs that the transport can fetch itself.
type MediaResult struct {
	Kind      MediaKind
	Video     []byte
	Photos    [][]byte
	PhotoURLs []string
}

func Video(data []byte) MediaResult {
	return MediaResult{Kind: MediaKindVideo, Video: data}
}

func PhotoSet(photos [][]byte) MediaResult {
	return MediaResult{Kind: MediaKindPhoto, Photos: photos}
}

func PhotoURLSet(urls []string) MediaResult {
	return MediaResult{Kind: MediaKindPhotoURL, PhotoURLs: urls}
}

// Validate checks that exactly the variant named by Kind is populated, and that it isn't empty.
func (r MediaResult) Validate() error {
	populated := 0
	if r.Video != nil {
		populated++
	}
	if r.Photos != nil {
		populated++
	}
	if r.PhotoURLs != nil {
		populated++
	}
	if populated != 1 {
		return ErrInvalidResult
	}
	switch r.Kind {
	case MediaKindVideo:
		if len(r.Video) == 0 {
			return ErrEmptyResult
		}
	case MediaKindPhoto:
		if len(r.Photos) == 0 {
			return ErrEmptyResult
		}
		for i, p := range r.Photos {
			if len(p) == 0 {
				return fmt.Errorf("photo %d: %w", i, ErrEmptyResult)
			}
		}
	case MediaKindPhotoURL:
		if len(r.PhotoURLs) == 0 {
			return ErrEmptyResult
		}
	default:
		return fmt.Errorf("unknown media kind %q: %w", r.Kind, ErrInvalidResult)
	}
	return nil
}

// Count returns the number of deliverable items.
func (r MediaResult) Count() int {
	switch r.Kind {
	case MediaKindVideo:
		return 1
	case MediaKindPhoto:
		return len(r.Photos)
	case MediaKindPhotoURL:
		return len(r.PhotoURLs)
	default:
		return 0
	}
}

// Size returns the number of payload bytes held in memory (zero for PhotoURLSet).
func (r MediaResult) Size() int64 {
	var n int64
	n += int64(len(r.Video))
	for _, p := range r.Photos {
		n += int64(len(p))
	}
	return n
}

func (r MediaResult) String() string {
	return fmt.Sprintf("MediaResult{Kind:%q, Count:%d, Size:%d}", r.Kind, r.Count(), r.Size())
}
