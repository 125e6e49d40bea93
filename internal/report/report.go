// Package report delivers operational failures to the humans: a chat
// webhook for visibility and an append-only JSON log on disk for
// forensics. Reporting is strictly best-effort; a broken webhook or a
// full disk never propagates back into the calling path.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

// webhookBurst bounds how many notifications may go out back to back
// before the per-minute budget applies.
const webhookBurst = 5

// Config wires a Reporter.
type Config struct {
	// WebhookURL receives failure notifications. Empty disables the
	// webhook; file logging still happens.
	WebhookURL string

	// LogDir is where daily JSON error logs are written. Empty disables
	// file logging.
	LogDir string

	// Client is the HTTP client for webhook delivery. Defaults to one
	// with a 10s timeout.
	Client *http.Client

	Logger *slog.Logger
}

// Reporter fans failures out to the webhook and the log directory. The
// webhook is throttled to webhookBurst notifications per minute so an
// error storm cannot flood the channel; the file log is never throttled.
type Reporter struct {
	webhookURL string
	logDir     string
	client     *http.Client
	logger     *slog.Logger
	throttle   *rate.Limiter
	now        func() time.Time
}

func New(cfg Config) *Reporter {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reporter{
		webhookURL: cfg.WebhookURL,
		logDir:     cfg.LogDir,
		client:     client,
		logger:     logger,
		throttle:   rate.NewLimiter(rate.Every(time.Minute/webhookBurst), webhookBurst),
		now:        time.Now,
	}
}

type logEntry struct {
	Time   time.Time         `json:"time"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Report records the failure. Safe for concurrent use.
func (r *Reporter) Report(err error, fields map[string]string) {
	if err == nil {
		return
	}
	entry := logEntry{Time: r.now().UTC(), Error: err.Error(), Fields: fields}
	r.appendLog(entry)
	r.notify(entry)
}

// appendLog writes the entry as one JSON line to the current day's log
// file. O_APPEND keeps concurrent single-line writes intact.
func (r *Reporter) appendLog(entry logEntry) {
	if r.logDir == "" {
		return
	}
	if err := os.MkdirAll(r.logDir, 0o755); err != nil {
		r.logger.Error("creating error log directory failed", "dir", r.logDir, "error", err)
		return
	}
	name := fmt.Sprintf("errors-%s.log", entry.Time.Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(r.logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		r.logger.Error("opening error log failed", "file", name, "error", err)
		return
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		r.logger.Error("encoding error log entry failed", "error", err)
		return
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		r.logger.Error("writing error log failed", "file", name, "error", err)
	}
}

// notify posts the failure to the webhook, subject to the throttle.
func (r *Reporter) notify(entry logEntry) {
	if r.webhookURL == "" {
		return
	}
	if !r.throttle.Allow() {
		r.logger.Debug("webhook notification throttled", "error", entry.Error)
		return
	}

	body, err := json.Marshal(webhookPayload(entry))
	if err != nil {
		r.logger.Error("encoding webhook payload failed", "error", err)
		return
	}
	resp, err := r.client.Post(r.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		r.logger.Error("posting webhook failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		r.logger.Error("webhook rejected notification", "status", resp.StatusCode)
	}
}

// webhookPayload shapes the entry as a chat message with a fenced code
// block so long errors stay readable in the channel.
func webhookPayload(entry logEntry) map[string]string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "**Error** at %s\n```\n%s\n", entry.Time.Format(time.RFC3339), entry.Error)
	for k, v := range entry.Fields {
		fmt.Fprintf(&buf, "%s: %s\n", k, v)
	}
	buf.WriteString("```")
	return map[string]string{"content": buf.String()}
}
