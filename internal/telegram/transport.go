// Package telegram connects the bot to the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/alanbriolat/clipbot/internal/delivery"
)

var ErrNoFile = errors.New("telegram returned no file for the sent media")

// Transport implements delivery.Transport on top of a tgbotapi.BotAPI. The API client has no context support, so
// ctx is only checked before each request.
type Transport struct {
	api *tgbotapi.BotAPI
}

var _ delivery.Transport = &Transport{}

func NewTransport(api *tgbotapi.BotAPI) *Transport {
	return &Transport{api: api}
}

func (t *Transport) SendChatAction(ctx context.Context, chatID int64, action delivery.ChatAction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.api.Request(tgbotapi.NewChatAction(chatID, string(action)))
	return err
}

func (t *Transport) SendText(ctx context.Context, target delivery.Target, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(target.ChatID, text)
	msg.ReplyToMessageID = target.ReplyTo
	msg.DisableWebPagePreview = true
	sent, err := t.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (t *Transport) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

func (t *Transport) SendVideo(ctx context.Context, target delivery.Target, video delivery.Media) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	msg := tgbotapi.NewVideo(target.ChatID, fileOf(video))
	msg.ReplyToMessageID = target.ReplyTo
	msg.SupportsStreaming = true
	sent, err := t.api.Send(msg)
	if err != nil {
		return "", err
	}
	return videoHandle(sent)
}

// videoHandle returns the file ID of the video in sent. Silent clips come back as animations and some files as
// documents; those were delivered but can't be resent as a cached video, so their handle is empty.
func videoHandle(sent tgbotapi.Message) (string, error) {
	switch {
	case sent.Video != nil:
		return sent.Video.FileID, nil
	case sent.Animation != nil, sent.Document != nil:
		return "", nil
	default:
		return "", ErrNoFile
	}
}

func (t *Transport) SendPhotos(ctx context.Context, target delivery.Target, photos []delivery.Media) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(photos) > delivery.MaxMediaGroup {
		return nil, fmt.Errorf("media group of %d photos exceeds the limit of %d", len(photos), delivery.MaxMediaGroup)
	}
	if len(photos) == 1 {
		// Media groups need at least two items
		msg := tgbotapi.NewPhoto(target.ChatID, fileOf(photos[0]))
		msg.ReplyToMessageID = target.ReplyTo
		sent, err := t.api.Send(msg)
		if err != nil {
			return nil, err
		}
		handle, ok := largestPhoto(sent.Photo)
		if !ok {
			return nil, ErrNoFile
		}
		return []string{handle}, nil
	}

	files := make([]interface{}, len(photos))
	for i, p := range photos {
		files[i] = tgbotapi.NewInputMediaPhoto(fileOf(p))
	}
	group := tgbotapi.NewMediaGroup(target.ChatID, files)
	group.ReplyToMessageID = target.ReplyTo
	sent, err := t.api.SendMediaGroup(group)
	if err != nil {
		return nil, err
	}
	handles := make([]string, 0, len(sent))
	for _, m := range sent {
		if handle, ok := largestPhoto(m.Photo); ok {
			handles = append(handles, handle)
		}
	}
	if len(handles) != len(photos) {
		return handles, fmt.Errorf("%w: sent %d photos, got %d handles", ErrNoFile, len(photos), len(handles))
	}
	return handles, nil
}

func (t *Transport) AnswerInline(ctx context.Context, queryID string, results []delivery.InlineResult, opts delivery.InlineOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	converted := make([]interface{}, len(results))
	for i, r := range results {
		converted[i] = inlineResult(r)
	}
	_, err := t.api.Request(tgbotapi.InlineConfig{
		InlineQueryID:     queryID,
		Results:           converted,
		CacheTime:         opts.CacheTime,
		IsPersonal:        opts.Personal,
		SwitchPMText:      opts.SwitchPMText,
		SwitchPMParameter: opts.SwitchPMParameter,
	})
	return err
}

func fileOf(m delivery.Media) tgbotapi.RequestFileData {
	switch {
	case m.FileID != "":
		return tgbotapi.FileID(m.FileID)
	case m.URL != "":
		return tgbotapi.FileURL(m.URL)
	default:
		return tgbotapi.FileBytes{Name: m.Name, Bytes: m.Bytes}
	}
}

// largestPhoto picks the full-resolution size; the others are thumbnails of the same photo.
func largestPhoto(sizes []tgbotapi.PhotoSize) (string, bool) {
	best := -1
	for i, s := range sizes {
		if best < 0 || s.Width*s.Height > sizes[best].Width*sizes[best].Height {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return sizes[best].FileID, true
}

func inlineResult(r delivery.InlineResult) interface{} {
	switch r.Kind {
	case delivery.InlineCachedVideo:
		return tgbotapi.NewInlineQueryResultCachedVideo(r.ID, r.FileID, r.Title)
	case delivery.InlineCachedPhoto:
		photo := tgbotapi.NewInlineQueryResultCachedPhoto(r.ID, r.FileID)
		photo.Title = r.Title
		return photo
	default:
		return tgbotapi.NewInlineQueryResultArticle(r.ID, r.Title, r.Text)
	}
}
