package bot

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/generic"
	"github.com/alanbriolat/clipbot/internal/cache"
	"github.com/alanbriolat/clipbot/internal/delivery"
	"github.com/alanbriolat/clipbot/internal/jobs"
	"github.com/alanbriolat/clipbot/internal/matcher"
	"github.com/alanbriolat/clipbot/internal/progress"
	"github.com/alanbriolat/clipbot/internal/stats"
)

const (
	cachedInlineTTL  = 3600
	pendingInlineTTL = 1
	averageWindow    = 7 * 24 * time.Hour
	noticeTimeout    = 10 * time.Second
)

var _ ContentCache = &cache.Cache{}

// Resolver turns a request into media; *clipbot.Chain is the real implementation.
type Resolver interface {
	Resolve(ctx context.Context, req clipbot.Request) (clipbot.MediaResult, error)
}

// ContentCache maps request fingerprints to already-delivered media; *cache.Cache is the real implementation.
type ContentCache interface {
	Get(fingerprint string) generic.Option[cache.Entry]
	Put(fingerprint string, entry cache.Entry) error
}

type Message struct {
	ChatID    int64
	MessageID int
	UserID    int64
	Text      string
}

type InlineQuery struct {
	ID     string
	UserID int64
	Query  string
}

type Deps struct {
	Transport delivery.Transport
	Matcher   *matcher.Matcher
	Resolver  Resolver
	Cache     ContentCache
	// Optional, statistics are discarded if nil.
	Recorder Recorder
}

// Bot implements the chat-facing behaviour: direct replies to messages, and inline queries answered from the
// cache or deferred to a background job.
type Bot struct {
	config    clipbot.Config
	username  string
	transport delivery.Transport
	matcher   *matcher.Matcher
	resolver  Resolver
	cache     ContentCache
	stats     Recorder
	jobs      *jobs.Scheduler
	direct    *semaphore.Weighted
	log       *zap.SugaredLogger
}

func New(config clipbot.Config, username string, deps Deps) *Bot {
	b := &Bot{
		config:    config,
		username:  username,
		transport: deps.Transport,
		matcher:   deps.Matcher,
		resolver:  deps.Resolver,
		cache:     deps.Cache,
		stats:     deps.Recorder,
		direct:    semaphore.NewWeighted(int64(max(config.MaxConcurrent, 1))),
		log:       zap.S().Named("bot"),
	}
	if b.stats == nil {
		b.stats = NilRecorder{}
	}
	b.jobs = jobs.NewScheduler(jobs.Config{
		Workers:   config.JobWorkers,
		QueueSize: config.JobQueueSize,
		Timeout:   config.JobTimeout,
	}, b.runInlineJob)
	return b
}

// Start runs the deferred job workers until ctx ends or Close is called.
func (b *Bot) Start(ctx context.Context) {
	b.jobs.Start(ctx)
}

// Close stops accepting inline jobs and waits for running ones.
func (b *Bot) Close() {
	b.jobs.Close()
}

// HandleMessage replies to a chat message: commands, or every supported link in it, one after another.
func (b *Bot) HandleMessage(ctx context.Context, msg Message) {
	text := strings.TrimSpace(msg.Text)
	target := delivery.Target{ChatID: msg.ChatID, ReplyTo: msg.MessageID}
	switch command(text) {
	case "start", "help":
		b.reply(ctx, target, usageMessage(b.username))
		return
	case "stats":
		summary, err := b.stats.Summary(ctx, time.Now())
		if err != nil {
			b.log.Warnw("failed to get statistics", "error", err)
			b.reply(ctx, target, msgStatsUnavailable)
			return
		}
		b.reply(ctx, target, statsMessage(summary))
		return
	}
	for raw := range b.matcher.All(text) {
		if ctx.Err() != nil {
			return
		}
		b.handleLink(ctx, msg, target, raw)
	}
}

func (b *Bot) handleLink(ctx context.Context, msg Message, target delivery.Target, raw string) {
	req := b.matcher.Request(ctx, raw, clipbot.ModeDirect)
	log := b.log.With("chat", msg.ChatID, "url", req.URL, "fingerprint", req.Fingerprint)
	ctx = clipbot.WithLogger(ctx, log.Desugar())

	if entry, ok := b.cache.Get(req.Fingerprint).Get(); ok {
		err := delivery.DeliverCached(ctx, b.transport, target, entry)
		if err == nil {
			log.Infow("delivered from cache", "kind", entry.Kind)
			return
		}
		log.Warnw("cached delivery failed, resolving again", "error", err)
	}

	if err := b.direct.Acquire(ctx, 1); err != nil {
		return
	}
	defer b.direct.Release(1)

	start := time.Now()
	resolveCtx, cancel := context.WithTimeout(ctx, b.config.DirectTimeout)
	defer cancel()
	typing := func(ctx context.Context) error {
		return b.transport.SendChatAction(ctx, msg.ChatID, delivery.ActionTyping)
	}
	result, err := progress.Run(resolveCtx, b.config.TypingInterval, typing, func(ctx context.Context) (clipbot.MediaResult, error) {
		return b.resolver.Resolve(ctx, req)
	})
	if err == nil {
		err = delivery.CheckSize(result, b.config.MaxVideoBytes)
	}
	if err != nil {
		log.Infow("resolution failed", "error", err)
		b.reply(ctx, target, errorMessage(err))
		b.record(ctx, req, msg.ChatID, statusOf(err), 0, time.Since(start))
		return
	}

	handles, err := delivery.Deliver(ctx, b.transport, target, result)
	if err != nil {
		log.Warnw("delivery failed", "error", err)
		b.reply(ctx, target, msgSendFailed)
		b.record(ctx, req, msg.ChatID, stats.StatusFailed, result.Size(), time.Since(start))
		return
	}
	b.remember(log, req, result, handles)
	b.record(ctx, req, msg.ChatID, stats.StatusSuccess, result.Size(), time.Since(start))
}

// HandleInlineQuery answers straight from the cache, or with a placeholder while a background job fetches the
// media and sends it privately.
func (b *Bot) HandleInlineQuery(ctx context.Context, q InlineQuery) {
	log := b.log.With("query", q.ID, "user", q.UserID)
	raw, ok := b.matcher.First(q.Query)
	if !ok {
		b.answer(ctx, log, q.ID, nil, delivery.InlineOptions{
			SwitchPMText:      msgSendLink,
			SwitchPMParameter: "start",
		})
		return
	}

	expandCtx, cancel := context.WithTimeout(ctx, b.config.InlineExpandTimeout)
	req := b.matcher.Request(expandCtx, raw, clipbot.ModeInline)
	cancel()
	log = log.With("url", req.URL, "fingerprint", req.Fingerprint)

	if entry, ok := b.cache.Get(req.Fingerprint).Get(); ok {
		if results := delivery.InlineCached(req.Fingerprint, entry); len(results) > 0 {
			log.Infow("answered from cache", "kind", entry.Kind, "results", len(results))
			b.answer(ctx, log, q.ID, results, delivery.InlineOptions{CacheTime: cachedInlineTTL, Personal: true})
			return
		}
	}

	avg, err := b.stats.AverageDuration(ctx, time.Now().Add(-averageWindow))
	if err != nil {
		log.Debugw("failed to get average duration", "error", err)
	}
	placeholder := delivery.InlineResult{
		Kind:  delivery.InlineArticle,
		ID:    "pending",
		Title: msgPendingTitle,
		Text:  pendingMessage(avg),
	}
	b.answer(ctx, log, q.ID, []delivery.InlineResult{placeholder}, delivery.InlineOptions{CacheTime: pendingInlineTTL, Personal: true})

	job := jobs.NewJob(req, q.UserID)
	switch err := b.jobs.Submit(job); {
	case err == nil:
		log.Infow("inline job submitted", "job", job.ID)
	case errors.Is(err, jobs.ErrDuplicate):
		log.Debugw("inline job already in progress")
	case errors.Is(err, jobs.ErrQueueFull):
		log.Warnw("inline job rejected", "error", err)
		b.reply(ctx, delivery.Target{ChatID: q.UserID}, msgQueueFull)
	default:
		log.Warnw("inline job rejected", "error", err)
	}
}

// runInlineJob resolves a deferred inline request and delivers it to the requesting user's private chat. Progress
// and failures are reported by editing a status message in that chat.
func (b *Bot) runInlineJob(ctx context.Context, job jobs.Job) error {
	req := job.Request
	log := b.log.With("job", job.ID, "user", job.UserID, "url", req.URL)
	ctx = clipbot.WithLogger(ctx, log.Desugar())
	target := delivery.Target{ChatID: job.UserID}

	statusID, err := b.transport.SendText(ctx, target, jobStartedMessage(req.RawURL))
	if err != nil {
		// Most likely the user has never started a private chat with the bot
		return err
	}

	start := time.Now()
	result, err := b.resolver.Resolve(ctx, req)
	if err == nil {
		err = delivery.CheckSize(result, b.config.MaxVideoBytes)
	}
	if err == nil {
		var handles []string
		if handles, err = delivery.Deliver(ctx, b.transport, target, result); err == nil {
			b.remember(log, req, result, handles)
		}
	}
	// The job deadline may have passed, so notices get their own
	noticeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), noticeTimeout)
	defer cancel()
	b.record(noticeCtx, req, job.UserID, statusOf(err), result.Size(), time.Since(start))
	if err != nil {
		b.edit(noticeCtx, log, job.UserID, statusID, errorMessage(err))
		return err
	}
	b.edit(noticeCtx, log, job.UserID, statusID, jobDoneMessage(b.username))
	return nil
}

func (b *Bot) remember(log *zap.SugaredLogger, req clipbot.Request, result clipbot.MediaResult, handles []string) {
	if len(handles) == 0 || slices.Contains(handles, "") {
		log.Debugw("delivered media has no reusable handle, not caching")
		return
	}
	kind := result.Kind
	if kind == clipbot.MediaKindPhotoURL {
		// Once sent, URL photos have platform handles like any other photo
		kind = clipbot.MediaKindPhoto
	}
	if err := b.cache.Put(req.Fingerprint, cache.Entry{Kind: kind, Handles: handles}); err != nil {
		log.Warnw("failed to cache delivered media", "error", err)
	}
}

func (b *Bot) record(ctx context.Context, req clipbot.Request, chatID int64, status stats.Status, bytes int64, elapsed time.Duration) {
	job := stats.Job{
		URL:        req.URL,
		ChatID:     chatID,
		Mode:       req.Mode.String(),
		Status:     status,
		Bytes:      bytes,
		DurationMs: elapsed.Milliseconds(),
	}
	if err := b.stats.Record(ctx, &job); err != nil {
		b.log.Warnw("failed to record statistics", "error", err)
	}
}

func (b *Bot) reply(ctx context.Context, target delivery.Target, text string) {
	if _, err := b.transport.SendText(ctx, target, text); err != nil {
		b.log.Warnw("failed to send message", "chat", target.ChatID, "error", err)
	}
}

func (b *Bot) edit(ctx context.Context, log *zap.SugaredLogger, chatID int64, messageID int, text string) {
	if err := b.transport.EditText(ctx, chatID, messageID, text); err != nil {
		log.Warnw("failed to edit status message", "error", err)
	}
}

func (b *Bot) answer(ctx context.Context, log *zap.SugaredLogger, queryID string, results []delivery.InlineResult, opts delivery.InlineOptions) {
	if err := b.transport.AnswerInline(ctx, queryID, results, opts); err != nil {
		log.Warnw("failed to answer inline query", "error", err)
	}
}

// command returns the bot command at the start of text without its slash or @username suffix, or "".
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	word := strings.Fields(text)[0][1:]
	name, _, _ := strings.Cut(word, "@")
	return strings.ToLower(name)
}
