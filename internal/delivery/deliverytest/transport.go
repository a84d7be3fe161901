// Package deliverytest provides a recording delivery.Transport for tests.
package deliverytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/alanbriolat/clipbot/internal/delivery"
)

type Call struct {
	Method  string
	Target  delivery.Target
	Action  delivery.ChatAction
	Text    string
	Media   []delivery.Media
	QueryID string
	Results []delivery.InlineResult
	Options delivery.InlineOptions
}

// Transport records every call. Handles are generated as "file-N". Setting Err makes every send fail, and setting
// NoVideoHandle makes SendVideo report an empty handle as for a clip kept as an animation.
type Transport struct {
	mu            sync.Mutex
	calls         []Call
	handles       int
	msgID         int
	Err           error
	NoVideoHandle bool
}

var _ delivery.Transport = &Transport{}

func (t *Transport) record(c Call) {
	t.calls = append(t.calls, c)
}

func (t *Transport) nextHandle() string {
	t.handles++
	return fmt.Sprintf("file-%d", t.handles)
}

func (t *Transport) SendChatAction(ctx context.Context, chatID int64, action delivery.ChatAction) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(Call{Method: "SendChatAction", Target: delivery.Target{ChatID: chatID}, Action: action})
	return nil
}

func (t *Transport) SendText(ctx context.Context, target delivery.Target, text string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(Call{Method: "SendText", Target: target, Text: text})
	t.msgID++
	return t.msgID, nil
}

func (t *Transport) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(Call{Method: "EditText", Target: delivery.Target{ChatID: chatID, ReplyTo: messageID}, Text: text})
	return nil
}

func (t *Transport) SendVideo(ctx context.Context, target delivery.Target, video delivery.Media) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(Call{Method: "SendVideo", Target: target, Media: []delivery.Media{video}})
	if t.Err != nil {
		return "", t.Err
	}
	if video.FileID != "" {
		return video.FileID, nil
	}
	if t.NoVideoHandle {
		return "", nil
	}
	return t.nextHandle(), nil
}

func (t *Transport) SendPhotos(ctx context.Context, target delivery.Target, photos []delivery.Media) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(photos) > delivery.MaxMediaGroup {
		return nil, fmt.Errorf("media group of %d exceeds %d", len(photos), delivery.MaxMediaGroup)
	}
	t.record(Call{Method: "SendPhotos", Target: target, Media: photos})
	if t.Err != nil {
		return nil, t.Err
	}
	handles := make([]string, len(photos))
	for i, p := range photos {
		if p.FileID != "" {
			handles[i] = p.FileID
		} else {
			handles[i] = t.nextHandle()
		}
	}
	return handles, nil
}

func (t *Transport) AnswerInline(ctx context.Context, queryID string, results []delivery.InlineResult, opts delivery.InlineOptions) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(Call{Method: "AnswerInline", QueryID: queryID, Results: results, Options: opts})
	return nil
}

// Calls returns the recorded calls, optionally only those of the named methods.
func (t *Transport) Calls(methods ...string) []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(methods) == 0 {
		return append([]Call(nil), t.calls...)
	}
	var res []Call
	for _, c := range t.calls {
		for _, m := range methods {
			if c.Method == m {
				res = append(res, c)
				break
			}
		}
	}
	return res
}
