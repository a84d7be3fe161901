package bot

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/download"
	"github.com/alanbriolat/clipbot/generic"
	"github.com/alanbriolat/clipbot/internal/cache"
	"github.com/alanbriolat/clipbot/internal/delivery"
	"github.com/alanbriolat/clipbot/internal/delivery/deliverytest"
	"github.com/alanbriolat/clipbot/internal/matcher"
	"github.com/alanbriolat/clipbot/internal/stats"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]cache.Entry
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]cache.Entry)}
}

func (c *memoryCache) Get(fingerprint string) generic.Option[cache.Entry] {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fingerprint]
	return generic.OptionOf(e, ok)
}

func (c *memoryCache) Put(fingerprint string, entry cache.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = entry
	return nil
}

type resolverFunc func(ctx context.Context, req clipbot.Request) (clipbot.MediaResult, error)

func (f resolverFunc) Resolve(ctx context.Context, req clipbot.Request) (clipbot.MediaResult, error) {
	return f(ctx, req)
}

type memoryRecorder struct {
	mu   sync.Mutex
	jobs []stats.Job
	avg  time.Duration
}

func (r *memoryRecorder) Record(_ context.Context, job *stats.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, *job)
	return nil
}

func (r *memoryRecorder) Jobs() []stats.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stats.Job(nil), r.jobs...)
}

func (r *memoryRecorder) AverageDuration(_ context.Context, _ time.Time) (time.Duration, error) {
	return r.avg, nil
}

func (r *memoryRecorder) Summary(_ context.Context, _ time.Time) (stats.Summary, error) {
	return stats.Summary{Daily: 3, Weekly: 10, Monthly: 25, Total: 100, Bytes: 15 * clipbot.MiB, AvgDuration: 2500 * time.Millisecond}, nil
}

type fixture struct {
	bot       *Bot
	transport *deliverytest.Transport
	cache     *memoryCache
	recorder  *memoryRecorder
	mu        sync.Mutex
	resolved  []string
}

func (f *fixture) Resolved() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.resolved...)
}

func testConfig() clipbot.Config {
	config := clipbot.DefaultConfig
	config.MaxVideoBytes = 10
	config.DirectTimeout = time.Second
	config.TypingInterval = 10 * time.Millisecond
	config.JobTimeout = time.Second
	config.InlineExpandTimeout = time.Second
	return config
}

func newFixture(t *testing.T, config clipbot.Config, m *matcher.Matcher, resolve resolverFunc) *fixture {
	f := &fixture{
		transport: &deliverytest.Transport{},
		cache:     newMemoryCache(),
		recorder:  &memoryRecorder{},
	}
	if m == nil {
		m = matcher.New(nil, 0)
	}
	f.bot = New(config, "clipbot", Deps{
		Transport: f.transport,
		Matcher:   m,
		Resolver: resolverFunc(func(ctx context.Context, req clipbot.Request) (clipbot.MediaResult, error) {
			f.mu.Lock()
			f.resolved = append(f.resolved, req.URL)
			f.mu.Unlock()
			return resolve(ctx, req)
		}),
		Cache:    f.cache,
		Recorder: f.recorder,
	})
	f.bot.Start(context.Background())
	t.Cleanup(f.bot.Close)
	return f
}

func video(data string) resolverFunc {
	return func(ctx context.Context, req clipbot.Request) (clipbot.MediaResult, error) {
		return clipbot.Video([]byte(data)), nil
	}
}

func lastText(tr *deliverytest.Transport) string {
	calls := tr.Calls("SendText", "EditText")
	if len(calls) == 0 {
		return ""
	}
	return calls[len(calls)-1].Text
}

// Redirects vm.tiktok.com short links to the canonical video URL without touching the network.
type shortLinkTransport struct{}

func (shortLinkTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.URL.Host == "vm.tiktok.com" {
		return &http.Response{
			StatusCode: http.StatusFound,
			Header:     http.Header{"Location": {"https://www.tiktok.com/@user/video/123?is_from_webapp=1"}},
			Body:       http.NoBody,
			Request:    r,
		}, nil
	}
	return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: http.NoBody, Request: r}, nil
}

func TestHandleMessage_EndToEnd(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)

	client := download.NewClient().WithHTTPClient(&http.Client{Transport: shortLinkTransport{}})
	f := newFixture(t, testConfig(), matcher.New(client, time.Second), video("VIDEO"))

	f.bot.HandleMessage(context.Background(), Message{ChatID: 1, MessageID: 5, UserID: 9, Text: "check this out https://vm.tiktok.com/ZMabc123/"})

	assert.Equal([]string{"https://www.tiktok.com/@user/video/123"}, f.Resolved())
	sends := f.transport.Calls("SendVideo", "SendPhotos")
	require.Len(sends, 1)
	assert.Equal("SendVideo", sends[0].Method)
	assert.Equal(delivery.Target{ChatID: 1, ReplyTo: 5}, sends[0].Target)
	assert.Equal([]byte("VIDEO"), sends[0].Media[0].Bytes)
	assert.NotEmpty(f.transport.Calls("SendChatAction"))

	fingerprint := clipbot.Fingerprint("https://www.tiktok.com/@user/video/123")
	entry, ok := f.cache.Get(fingerprint).Get()
	require.True(ok)
	assert.Equal(clipbot.MediaKindVideo, entry.Kind)
	assert.Equal([]string{"file-1"}, entry.Handles)

	jobs := f.recorder.Jobs()
	require.Len(jobs, 1)
	assert.Equal(stats.StatusSuccess, jobs[0].Status)
	assert.EqualValues(5, jobs[0].Bytes)
	assert.Equal("direct", jobs[0].Mode)
}

func TestHandleMessage_CacheHit(t *testing.T) {
	assert := assert_.New(t)
	f := newFixture(t, testConfig(), nil, video("VIDEO"))

	link := "https://www.tiktok.com/@user/video/123"
	assert.NoError(f.cache.Put(clipbot.Fingerprint(link), cache.Entry{Kind: clipbot.MediaKindVideo, Handles: []string{"cached"}}))

	f.bot.HandleMessage(context.Background(), Message{ChatID: 1, Text: link + "?lang=en"})
	assert.Empty(f.Resolved())
	sends := f.transport.Calls("SendVideo")
	assert.Len(sends, 1)
	assert.Equal("cached", sends[0].Media[0].FileID)
	assert.Empty(f.recorder.Jobs())
}

func TestHandleMessage_NoVideoHandle(t *testing.T) {
	assert := assert_.New(t)
	f := newFixture(t, testConfig(), nil, video("VIDEO"))
	f.transport.NoVideoHandle = true

	f.bot.HandleMessage(context.Background(), Message{ChatID: 1, Text: "https://youtu.be/abc"})
	assert.Len(f.transport.Calls("SendVideo"), 1)
	assert.Empty(f.cache.entries)
	assert.Equal(stats.StatusSuccess, f.recorder.Jobs()[0].Status)
}

func TestHandleMessage_Sequential(t *testing.T) {
	assert := assert_.New(t)

	var mu sync.Mutex
	active := 0
	f := newFixture(t, testConfig(), nil, func(ctx context.Context, req clipbot.Request) (clipbot.MediaResult, error) {
		mu.Lock()
		active++
		assert.Equal(1, active, "links in one message are resolved one at a time")
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return clipbot.Video([]byte("V")), nil
	})

	f.bot.HandleMessage(context.Background(), Message{ChatID: 1, Text: "https://youtu.be/b and https://youtu.be/a then https://youtu.be/b"})
	assert.Equal([]string{"https://youtu.be/b", "https://youtu.be/a"}, f.Resolved())
	assert.Len(f.transport.Calls("SendVideo"), 2)
}

func TestHandleMessage_Timeout(t *testing.T) {
	assert := assert_.New(t)

	config := testConfig()
	config.DirectTimeout = 20 * time.Millisecond
	f := newFixture(t, config, nil, func(ctx context.Context, req clipbot.Request) (clipbot.MediaResult, error) {
		<-ctx.Done()
		return clipbot.MediaResult{}, clipbot.ErrTimeout
	})

	f.bot.HandleMessage(context.Background(), Message{ChatID: 1, Text: "https://youtu.be/abc"})
	assert.Contains(lastText(f.transport), "took too long")
	assert.Empty(f.transport.Calls("SendVideo"))
	assert.Equal(stats.StatusTimeout, f.recorder.Jobs()[0].Status)

	// Typing indicator has stopped
	n := len(f.transport.Calls("SendChatAction"))
	time.Sleep(30 * time.Millisecond)
	assert.Len(f.transport.Calls("SendChatAction"), n)
}

func TestHandleMessage_Oversize(t *testing.T) {
	assert := assert_.New(t)
	f := newFixture(t, testConfig(), nil, video("01234567890"))

	f.bot.HandleMessage(context.Background(), Message{ChatID: 1, Text: "https://youtu.be/abc"})
	assert.Contains(lastText(f.transport), "larger than")
	assert.Empty(f.transport.Calls("SendVideo"))
	assert.Empty(f.cache.entries)
	assert.Equal(stats.StatusTooLarge, f.recorder.Jobs()[0].Status)
}

func TestHandleMessage_Exhausted(t *testing.T) {
	assert := assert_.New(t)
	f := newFixture(t, testConfig(), nil, func(ctx context.Context, req clipbot.Request) (clipbot.MediaResult, error) {
		return clipbot.MediaResult{}, &clipbot.ChainExhaustedError{First: errors.New("tikwm: api error -1")}
	})

	f.bot.HandleMessage(context.Background(), Message{ChatID: 1, Text: "https://www.tiktok.com/@u/video/1"})
	text := lastText(f.transport)
	assert.Contains(text, "Could not download")
	assert.Contains(text, "tikwm: api error -1")
	assert.Equal(stats.StatusFailed, f.recorder.Jobs()[0].Status)
}

func TestHandleMessage_StrategyTimeout(t *testing.T) {
	assert := assert_.New(t)

	chain := clipbot.NewChain([]clipbot.Strategy{
		{Name: "slow", Extractor: clipbot.ExtractorFunc(func(ctx context.Context, req clipbot.Request) clipbot.Outcome {
			<-ctx.Done()
			return clipbot.Fail(ctx.Err())
		})},
		{Name: "bad", Extractor: clipbot.ExtractorFunc(func(ctx context.Context, req clipbot.Request) clipbot.Outcome {
			return clipbot.Fail(errors.New("provider said no"))
		})},
	}, clipbot.ChainOptions{StrategyTimeout: 20 * time.Millisecond})
	f := newFixture(t, testConfig(), nil, chain.Resolve)

	f.bot.HandleMessage(context.Background(), Message{ChatID: 1, Text: "https://www.tiktok.com/@u/video/1"})
	text := lastText(f.transport)
	assert.Contains(text, "Could not download: slow:")
	assert.NotContains(text, "took too long")
	assert.Equal(stats.StatusFailed, f.recorder.Jobs()[0].Status)
}

func TestHandleMessage_Photos(t *testing.T) {
	assert := assert_.New(t)

	photos := make([][]byte, 12)
	for i := range photos {
		photos[i] = []byte("p")
	}
	f := newFixture(t, testConfig(), nil, func(ctx context.Context, req clipbot.Request) (clipbot.MediaResult, error) {
		return clipbot.PhotoSet(photos), nil
	})

	f.bot.HandleMessage(context.Background(), Message{ChatID: 1, Text: "https://www.tiktok.com/@u/photo/1"})
	sends := f.transport.Calls("SendPhotos")
	assert.Len(sends, 2)
	entry := f.cache.Get(clipbot.Fingerprint("https://www.tiktok.com/@u/photo/1")).Unwrap()
	assert.Equal(clipbot.MediaKindPhoto, entry.Kind)
	assert.Len(entry.Handles, 12)
}

func TestHandleMessage_Commands(t *testing.T) {
	assert := assert_.New(t)
	f := newFixture(t, testConfig(), nil, video("V"))

	f.bot.HandleMessage(context.Background(), Message{ChatID: 1, Text: "/start"})
	assert.Contains(lastText(f.transport), "@clipbot <link>")

	f.bot.HandleMessage(context.Background(), Message{ChatID: 1, Text: "/stats@clipbot"})
	text := lastText(f.transport)
	assert.Contains(text, "Total: 100")
	assert.Contains(text, "Traffic: 15.0 MB")
	assert.Contains(text, "Average time: 2.5s")

	f.bot.HandleMessage(context.Background(), Message{ChatID: 1, Text: "hello there"})
	assert.Len(f.transport.Calls(), 2, "messages without links are ignored")
}

func TestHandleInlineQuery_NoLink(t *testing.T) {
	assert := assert_.New(t)
	f := newFixture(t, testConfig(), nil, video("V"))

	f.bot.HandleInlineQuery(context.Background(), InlineQuery{ID: "q1", UserID: 9, Query: "hello"})
	answers := f.transport.Calls("AnswerInline")
	require_.Len(t, answers, 1)
	assert.Empty(answers[0].Results)
	assert.Equal("start", answers[0].Options.SwitchPMParameter)
	assert.Zero(answers[0].Options.CacheTime)
}

func TestHandleInlineQuery_CacheHit(t *testing.T) {
	assert := assert_.New(t)
	f := newFixture(t, testConfig(), nil, video("V"))

	link := "https://www.tiktok.com/@user/video/123"
	fingerprint := clipbot.Fingerprint(link)
	assert.NoError(f.cache.Put(fingerprint, cache.Entry{Kind: clipbot.MediaKindVideo, Handles: []string{"cached"}}))

	f.bot.HandleInlineQuery(context.Background(), InlineQuery{ID: "q1", UserID: 9, Query: link})
	answers := f.transport.Calls("AnswerInline")
	require_.Len(t, answers, 1)
	require_.Len(t, answers[0].Results, 1)
	assert.Equal(delivery.InlineCachedVideo, answers[0].Results[0].Kind)
	assert.Equal("cached", answers[0].Results[0].FileID)
	assert.Equal(3600, answers[0].Options.CacheTime)
	assert.True(answers[0].Options.Personal)
	assert.Empty(f.Resolved())
}

func TestHandleInlineQuery_Deferred(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)

	f := newFixture(t, testConfig(), nil, func(ctx context.Context, req clipbot.Request) (clipbot.MediaResult, error) {
		assert.Equal(clipbot.ModeInline, req.Mode)
		return clipbot.PhotoURLSet([]string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"}), nil
	})
	f.recorder.avg = 12 * time.Second

	link := "https://www.tiktok.com/@user/photo/123"
	f.bot.HandleInlineQuery(context.Background(), InlineQuery{ID: "q1", UserID: 9, Query: link})

	answers := f.transport.Calls("AnswerInline")
	require.Len(answers, 1)
	require.Len(answers[0].Results, 1)
	assert.Equal(delivery.InlineArticle, answers[0].Results[0].Kind)
	assert.Contains(answers[0].Results[0].Text, "Average wait: 12s")
	assert.Equal(1, answers[0].Options.CacheTime)

	// The job delivers privately and edits its status message
	assert.Eventually(func() bool { return len(f.transport.Calls("EditText")) == 1 }, time.Second, time.Millisecond)
	sends := f.transport.Calls("SendPhotos")
	require.Len(sends, 1)
	assert.Equal(delivery.Target{ChatID: 9}, sends[0].Target)
	assert.Equal("https://cdn.example.com/1.jpg", sends[0].Media[0].URL)
	assert.Contains(lastText(f.transport), "Done")

	entry := f.cache.Get(clipbot.Fingerprint(link)).Unwrap()
	assert.Equal(clipbot.MediaKindPhoto, entry.Kind)
	assert.Len(entry.Handles, 2)
	assert.Equal("inline", f.recorder.Jobs()[0].Mode)

	// Now it's cached, the next query is answered directly
	f.bot.HandleInlineQuery(context.Background(), InlineQuery{ID: "q2", UserID: 9, Query: link})
	answers = f.transport.Calls("AnswerInline")
	require.Len(answers, 2)
	assert.Len(answers[1].Results, 2)
	assert.Equal(delivery.InlineCachedPhoto, answers[1].Results[0].Kind)
	assert.Len(f.Resolved(), 1)
}

func TestHandleInlineQuery_JobFailure(t *testing.T) {
	assert := assert_.New(t)

	config := testConfig()
	config.JobTimeout = 20 * time.Millisecond
	f := newFixture(t, config, nil, func(ctx context.Context, req clipbot.Request) (clipbot.MediaResult, error) {
		<-ctx.Done()
		return clipbot.MediaResult{}, clipbot.ErrTimeout
	})

	f.bot.HandleInlineQuery(context.Background(), InlineQuery{ID: "q1", UserID: 9, Query: "https://youtu.be/abc"})
	assert.Eventually(func() bool { return len(f.transport.Calls("EditText")) == 1 }, time.Second, time.Millisecond)
	edit := f.transport.Calls("EditText")[0]
	assert.Equal(int64(9), edit.Target.ChatID)
	assert.True(strings.Contains(edit.Text, "took too long"))
	assert.Empty(f.transport.Calls("SendVideo"))
	assert.Equal(stats.StatusTimeout, f.recorder.Jobs()[0].Status)
}

func TestCommand(t *testing.T) {
	assert := assert_.New(t)

	assert.Equal("start", command("/start"))
	assert.Equal("stats", command("/Stats@clipbot extra"))
	assert.Equal("", command("start"))
	assert.Equal("", command("/"))
}
