package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/internal/stats"
)

const (
	msgSendLink     = "Send me a link to a video"
	msgPendingTitle = "⏳ Fetching content…"
	msgPending      = "⏳ Downloading, I'll send it to you in a private message"
	msgQueueFull    = "⏳ Too many downloads in progress, please try again in a minute."
	msgSendFailed   = "❌ Downloaded, but Telegram refused the upload."

	msgStatsUnavailable = "❌ Statistics are unavailable right now."
)

func usageMessage(username string) string {
	return fmt.Sprintf("Send me links to TikTok, Instagram, YouTube Shorts or Douyin videos and I'll download them.\n"+
		"Or use me in any chat: @%s <link>", username)
}

func pendingMessage(avg time.Duration) string {
	if avg <= 0 {
		return msgPending
	}
	return fmt.Sprintf("%s\nAverage wait: %ds", msgPending, int(avg.Round(time.Second)/time.Second))
}

func jobStartedMessage(rawURL string) string {
	return "⏳ Downloading " + rawURL
}

func jobDoneMessage(username string) string {
	return fmt.Sprintf("✅ Done! Type @%s with the same link in any chat to share it.", username)
}

func statsMessage(s stats.Summary) string {
	var b strings.Builder
	b.WriteString("📊 Statistics\n")
	fmt.Fprintf(&b, "Last 24 hours: %d\n", s.Daily)
	fmt.Fprintf(&b, "Last 7 days: %d\n", s.Weekly)
	fmt.Fprintf(&b, "Last 30 days: %d\n", s.Monthly)
	fmt.Fprintf(&b, "Total: %d\n", s.Total)
	fmt.Fprintf(&b, "Traffic: %.1f MB\n", float64(s.Bytes)/clipbot.MiB)
	fmt.Fprintf(&b, "Average time: %.1fs", s.AvgDuration.Seconds())
	return b.String()
}

// errorMessage is the user-facing text for a failed resolution.
func errorMessage(err error) string {
	var oversize *clipbot.OversizeError
	var exhausted *clipbot.ChainExhaustedError
	switch {
	case errors.As(err, &oversize):
		return fmt.Sprintf("⚠️ The video is larger than %d MB, Telegram won't accept it.", oversize.Limit/clipbot.MiB)
	case errors.As(err, &exhausted):
		// A strategy that hit its own timeout is just a failed strategy
		return fmt.Sprintf("❌ Could not download: %v", err)
	case errors.Is(err, clipbot.ErrTimeout):
		return "⏱ That took too long, please try again later."
	default:
		return fmt.Sprintf("❌ Could not download: %v", err)
	}
}

func statusOf(err error) stats.Status {
	switch {
	case err == nil:
		return stats.StatusSuccess
	case errors.Is(err, clipbot.ErrOversize):
		return stats.StatusTooLarge
	case errors.Is(err, clipbot.ErrChainExhausted):
		return stats.StatusFailed
	case errors.Is(err, clipbot.ErrTimeout):
		return stats.StatusTimeout
	default:
		return stats.StatusFailed
	}
}
