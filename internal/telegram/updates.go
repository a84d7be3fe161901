package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/alanbriolat/clipbot/internal/bot"
)

const pollTimeout = 30

// Handler receives decoded updates; *bot.Bot is the real implementation.
type Handler interface {
	HandleMessage(ctx context.Context, msg bot.Message)
	HandleInlineQuery(ctx context.Context, q bot.InlineQuery)
}

var _ Handler = &bot.Bot{}

// Poll long-polls for updates and dispatches each to its own goroutine. It returns once ctx is done and every
// dispatched handler has finished.
func Poll(ctx context.Context, api *tgbotapi.BotAPI, handler Handler) error {
	log := zap.S().Named("telegram")
	config := tgbotapi.NewUpdate(0)
	config.Timeout = pollTimeout
	config.AllowedUpdates = []string{"message", "inline_query"}
	updates := api.GetUpdatesChan(config)

	var wg sync.WaitGroup
	defer wg.Wait()
	log.Infow("polling for updates", "bot", api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						log.Errorw("panic while handling update", "update", update.UpdateID, "panic", r)
					}
				}()
				dispatch(ctx, handler, update)
			}()
		}
	}
}

func dispatch(ctx context.Context, handler Handler, update tgbotapi.Update) {
	if msg, ok := messageOf(update); ok {
		handler.HandleMessage(ctx, msg)
	} else if q, ok := inlineQueryOf(update); ok {
		handler.HandleInlineQuery(ctx, q)
	}
}

func messageOf(update tgbotapi.Update) (bot.Message, bool) {
	m := update.Message
	if m == nil || m.Chat == nil {
		return bot.Message{}, false
	}
	text := m.Text
	if text == "" {
		text = m.Caption
	}
	if text == "" {
		return bot.Message{}, false
	}
	msg := bot.Message{ChatID: m.Chat.ID, MessageID: m.MessageID, Text: text}
	if m.From != nil {
		msg.UserID = m.From.ID
	}
	return msg, true
}

func inlineQueryOf(update tgbotapi.Update) (bot.InlineQuery, bool) {
	q := update.InlineQuery
	if q == nil || q.From == nil {
		return bot.InlineQuery{}, false
	}
	return bot.InlineQuery{ID: q.ID, UserID: q.From.ID, Query: q.Query}, true
}

// Logger routes the API client's log output through zap.
type Logger struct {
	log *zap.SugaredLogger
}

func NewLogger() *Logger {
	return &Logger{log: zap.S().Named("tgbotapi")}
}

func (l *Logger) Println(v ...interface{}) {
	l.log.Debug(v...)
}

func (l *Logger) Printf(format string, v ...interface{}) {
	l.log.Debugf(format, v...)
}
