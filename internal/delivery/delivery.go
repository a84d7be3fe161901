package delivery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/generic"
	"github.com/alanbriolat/clipbot/internal/cache"
	"github.com/alanbriolat/clipbot/util"
)

// CheckSize rejects videos larger than limit bytes.
func CheckSize(result clipbot.MediaResult, limit int64) error {
	if result.Kind == clipbot.MediaKindVideo && int64(len(result.Video)) > limit {
		return &clipbot.OversizeError{Size: int64(len(result.Video)), Limit: limit}
	}
	return nil
}

// Deliver sends a resolved result to target, photos in batches of MaxMediaGroup. It returns the handles of
// everything sent, in order.
func Deliver(ctx context.Context, t Transport, target Target, result clipbot.MediaResult) ([]string, error) {
	switch result.Kind {
	case clipbot.MediaKindVideo:
		chatAction(ctx, t, target, ActionUploadVideo)
		handle, err := t.SendVideo(ctx, target, Media{Bytes: result.Video, Name: "video.mp4"})
		if err != nil {
			return nil, fmt.Errorf("failed to send video: %w", err)
		}
		return []string{handle}, nil
	case clipbot.MediaKindPhoto:
		photos := make([]Media, len(result.Photos))
		for i, p := range result.Photos {
			photos[i] = Media{Bytes: p, Name: fmt.Sprintf("photo%d.jpg", i+1)}
		}
		return sendPhotos(ctx, t, target, photos)
	case clipbot.MediaKindPhotoURL:
		photos := make([]Media, len(result.PhotoURLs))
		for i, u := range result.PhotoURLs {
			photos[i] = Media{URL: u, Name: util.MediaFilename(u, fmt.Sprintf("photo%d.jpg", i+1))}
		}
		return sendPhotos(ctx, t, target, photos)
	default:
		return nil, fmt.Errorf("cannot deliver %v: %w", result, clipbot.ErrInvalidResult)
	}
}

// DeliverCached resends previously delivered media by handle.
func DeliverCached(ctx context.Context, t Transport, target Target, entry cache.Entry) error {
	switch entry.Kind {
	case clipbot.MediaKindVideo:
		if len(entry.Handles) == 0 {
			return clipbot.ErrEmptyResult
		}
		chatAction(ctx, t, target, ActionUploadVideo)
		_, err := t.SendVideo(ctx, target, Media{FileID: entry.Handles[0]})
		return err
	case clipbot.MediaKindPhoto, clipbot.MediaKindPhotoURL:
		photos := make([]Media, len(entry.Handles))
		for i, h := range entry.Handles {
			photos[i] = Media{FileID: h}
		}
		_, err := sendPhotos(ctx, t, target, photos)
		return err
	default:
		return fmt.Errorf("cannot deliver cached %q: %w", entry.Kind, clipbot.ErrInvalidResult)
	}
}

func sendPhotos(ctx context.Context, t Transport, target Target, photos []Media) ([]string, error) {
	if len(photos) == 0 {
		return nil, clipbot.ErrEmptyResult
	}
	chatAction(ctx, t, target, ActionUploadPhoto)
	var handles []string
	for n, batch := range generic.Batch(photos, MaxMediaGroup) {
		sent, err := t.SendPhotos(ctx, target, batch)
		if err != nil {
			return handles, fmt.Errorf("failed to send photo batch %d: %w", n+1, err)
		}
		handles = append(handles, sent...)
	}
	return handles, nil
}

func chatAction(ctx context.Context, t Transport, target Target, action ChatAction) {
	if err := t.SendChatAction(ctx, target.ChatID, action); err != nil {
		zap.S().Named("delivery").Debugw("chat action failed", "chat", target.ChatID, "action", action, "error", err)
	}
}

// InlineCached builds inline results that point at cached media. Photo sets are truncated to MaxInlineResults.
func InlineCached(id string, entry cache.Entry) []InlineResult {
	switch entry.Kind {
	case clipbot.MediaKindVideo:
		if len(entry.Handles) == 0 {
			return nil
		}
		return []InlineResult{{
			Kind:   InlineCachedVideo,
			ID:     id,
			Title:  "Video",
			FileID: entry.Handles[0],
		}}
	case clipbot.MediaKindPhoto, clipbot.MediaKindPhotoURL:
		handles := entry.Handles
		if len(handles) > MaxInlineResults {
			handles = handles[:MaxInlineResults]
		}
		results := make([]InlineResult, 0, len(handles))
		for n, h := range handles {
			results = append(results, InlineResult{
				Kind:   InlineCachedPhoto,
				ID:     fmt.Sprintf("%s_%d", id, n),
				Title:  fmt.Sprintf("Photo %d/%d", n+1, len(entry.Handles)),
				FileID: h,
			})
		}
		return results
	default:
		return nil
	}
}
