package delivery

import "context"

// Protocol-imposed limits.
const (
	MaxMediaGroup    = 10
	MaxInlineResults = 50
)

type ChatAction string

const (
	ActionTyping      ChatAction = "typing"
	ActionUploadVideo ChatAction = "upload_video"
	ActionUploadPhoto ChatAction = "upload_photo"
)

// A Target is where a reply goes: a chat, and optionally the message being replied to.
type Target struct {
	ChatID  int64
	ReplyTo int
}

// Media is one item to send. Exactly one of Bytes, URL or FileID is set.
type Media struct {
	Bytes  []byte
	URL    string
	FileID string
	// Upload file name, only meaningful with Bytes.
	Name string
}

type InlineResultKind int

const (
	InlineArticle InlineResultKind = iota
	InlineCachedVideo
	InlineCachedPhoto
)

type InlineResult struct {
	Kind  InlineResultKind
	ID    string
	Title string
	// File handle for cached results.
	FileID string
	// Message text for articles.
	Text string
}

type InlineOptions struct {
	CacheTime         int
	Personal          bool
	SwitchPMText      string
	SwitchPMParameter string
}

// Transport is the set of messaging capabilities the bot needs. Send methods return the platform's handles for
// what was sent, so it can be resent later without uploading again.
type Transport interface {
	SendChatAction(ctx context.Context, chatID int64, action ChatAction) error
	// SendText returns the ID of the sent message.
	SendText(ctx context.Context, target Target, text string) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	// SendVideo returns an empty handle if the platform kept the file as something other than a video.
	SendVideo(ctx context.Context, target Target, video Media) (string, error)
	// SendPhotos sends at most MaxMediaGroup photos as one message.
	SendPhotos(ctx context.Context, target Target, photos []Media) ([]string, error)
	AnswerInline(ctx context.Context, queryID string, results []InlineResult, opts InlineOptions) error
}
