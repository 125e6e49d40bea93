// Package dispatch owns the conversation job queue: a strict FIFO with
// exactly one worker, so at most one LLM call is in flight system-wide
// no matter how many users message concurrently. A slow reply for one
// user delays the next user's job.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/llegomark/neko/internal/config"
	"github.com/llegomark/neko/internal/convo"
	"github.com/llegomark/neko/internal/limiter"
	"github.com/llegomark/neko/internal/presence"
	"github.com/llegomark/neko/internal/provider"
	"github.com/llegomark/neko/internal/render"
)

// ErrUnknownModel indicates the user's model preference matches neither
// provider's naming convention.
var ErrUnknownModel = errors.New("unknown model")

// Event is one inbound chat event from the platform.
type Event struct {
	UserID      string
	ChannelID   string
	MessageID   string
	Content     string
	MentionsBot bool
}

// Job is an Event accepted into the queue. Owned exclusively by the
// queue between enqueue and completion.
type Job struct {
	ID         uuid.UUID
	EnqueuedAt time.Time
	Event
}

// Messenger is the outbound message surface the dispatcher needs: the
// renderer's sink plus posting a threaded reply for the placeholder.
type Messenger interface {
	render.Sink

	// Reply posts a new message in reply to an existing one and returns
	// the new message's handle.
	Reply(channelID, replyToID, content string) (messageID string, err error)
}

// Reporter forwards job failures to the error-reporting collaborator.
type Reporter interface {
	Report(err error, fields map[string]string)
}

// Config wires a Dispatcher. Providers may be nil when unconfigured, but
// at least one must be set.
type Config struct {
	Store     *convo.Store
	Presence  *presence.Tracker
	Renderer  *render.Renderer
	Messenger Messenger
	Reporter  Reporter

	Anthropic        provider.Client
	AnthropicLimiter *limiter.Limiter
	Gemini           provider.Client
	GeminiLimiter    *limiter.Limiter

	// GoogleModel is the streaming provider's model identifier; a
	// preference equal to it routes to Gemini.
	GoogleModel string

	// QueueSize bounds the job queue. Enqueue never blocks: events
	// beyond the bound are dropped and reported.
	QueueSize int

	Logger *slog.Logger
}

func (cfg Config) validate() error {
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if cfg.Presence == nil {
		return errors.New("presence tracker is required")
	}
	if cfg.Renderer == nil {
		return errors.New("renderer is required")
	}
	if cfg.Messenger == nil {
		return errors.New("messenger is required")
	}
	if cfg.Reporter == nil {
		return errors.New("reporter is required")
	}
	if cfg.Anthropic == nil && cfg.Gemini == nil {
		return errors.New("at least one provider is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Dispatcher drains the job queue with a single worker.
type Dispatcher struct {
	store     *convo.Store
	presence  *presence.Tracker
	renderer  *render.Renderer
	messenger Messenger
	reporter  Reporter

	anthropic        provider.Client
	anthropicLimiter *limiter.Limiter
	gemini           provider.Client
	geminiLimiter    *limiter.Limiter
	googleModel      string

	logger *slog.Logger

	jobs chan Job

	// pending counts queued plus in-flight jobs per user, so the
	// eviction sweeper can skip sessions with work outstanding.
	mu      sync.Mutex
	pending map[string]int
}

// New creates a Dispatcher. Call Run to start the worker.
func New(cfg Config) (*Dispatcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 128
	}
	return &Dispatcher{
		store:            cfg.Store,
		presence:         cfg.Presence,
		renderer:         cfg.Renderer,
		messenger:        cfg.Messenger,
		reporter:         cfg.Reporter,
		anthropic:        cfg.Anthropic,
		anthropicLimiter: cfg.AnthropicLimiter,
		gemini:           cfg.Gemini,
		geminiLimiter:    cfg.GeminiLimiter,
		googleModel:      cfg.GoogleModel,
		logger:           cfg.Logger,
		jobs:             make(chan Job, queueSize),
		pending:          make(map[string]int),
	}, nil
}

// Enqueue accepts an inbound event without blocking. It reports and
// drops the event if the queue is full, returning false.
func (d *Dispatcher) Enqueue(ev Event) bool {
	job := Job{
		ID:         uuid.New(),
		EnqueuedAt: time.Now(),
		Event:      ev,
	}

	d.mu.Lock()
	d.pending[ev.UserID]++
	d.mu.Unlock()

	select {
	case d.jobs <- job:
		return true
	default:
		d.release(ev.UserID)
		err := fmt.Errorf("job queue full, dropping event from user %s", ev.UserID)
		d.logger.Warn("dropping inbound event", "user_id", ev.UserID, "queue_cap", cap(d.jobs))
		d.reporter.Report(err, map[string]string{
			"user_id":    ev.UserID,
			"channel_id": ev.ChannelID,
		})
		return false
	}
}

// QueueLen returns the number of jobs waiting in the queue.
func (d *Dispatcher) QueueLen() int { return len(d.jobs) }

// QueueCap returns the queue's capacity.
func (d *Dispatcher) QueueCap() int { return cap(d.jobs) }

// Busy reports whether the user has a job queued or in flight.
func (d *Dispatcher) Busy(userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending[userID] > 0
}

func (d *Dispatcher) release(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[userID] <= 1 {
		delete(d.pending, userID)
	} else {
		d.pending[userID]--
	}
}

// Run drains the queue until ctx is canceled. Jobs run one at a time,
// end-to-end; a failing job never stalls or crashes the loop.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.jobs:
			d.runJob(ctx, job)
			d.release(job.UserID)
		}
	}
}

// runJob isolates one job: a panic is reported like any other failure.
func (d *Dispatcher) runJob(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("job panicked: %v", r)
			d.logger.Error("job panicked", "job_id", job.ID, "user_id", job.UserID, "panic", r)
			d.presence.StopTyping(job.UserID)
			d.reporter.Report(err, jobFields(job))
		}
	}()
	d.process(ctx, job)
}

// process runs the per-job algorithm: resolve preferences, call the
// matching provider under its limiter, post the placeholder, render,
// commit history, and send the new-conversation notice when warranted.
func (d *Dispatcher) process(ctx context.Context, job Job) {
	start := time.Now()
	d.store.Touch(job.UserID, job.ChannelID)

	// Typing starts the moment the job is picked up and spans the
	// provider round trip, not just the render phase.
	d.presence.StartTyping(job.UserID, job.ChannelID)
	defer d.presence.StopTyping(job.UserID)

	prefs := d.store.Preferences(job.UserID)
	client, lim, err := d.routeModel(prefs.Model)
	if err != nil {
		d.logger.Warn("unroutable model preference", "user_id", job.UserID, "model", prefs.Model)
		d.notifyFailure(job, "", err)
		return
	}

	req := provider.Request{
		Model:     prefs.Model,
		System:    config.Prompt(prefs.Prompt),
		History:   d.store.History(job.UserID),
		Content:   job.Content,
		MessageID: job.MessageID,
	}

	// The limiter gates the provider call start; for the streaming
	// provider this covers opening the session, and the increments are
	// consumed afterwards by the renderer.
	var reply provider.Reply
	err = lim.Do(ctx, func() error {
		var callErr error
		reply, callErr = client.Reply(ctx, req)
		return callErr
	})
	if err != nil {
		d.notifyFailure(job, "", err)
		return
	}

	placeholderID, err := d.messenger.Reply(job.ChannelID, job.MessageID, thinkingMessage())
	if err != nil {
		d.reporter.Report(fmt.Errorf("posting placeholder: %w", err), jobFields(job))
		return
	}

	finalText, err := d.renderer.Render(ctx, job.ChannelID, placeholderID, reply)
	if err != nil {
		d.notifyFailure(job, placeholderID, err)
		return
	}

	// Snapshot before committing: the exchange about to land is the
	// one that decides whether this conversation just started.
	firstExchange := d.store.IsNewConversation(job.UserID)
	d.store.AppendExchange(job.UserID, job.Content, finalText)

	if firstExchange || job.MentionsBot {
		if _, err := d.messenger.Send(job.ChannelID, config.NewConversationMessage); err != nil {
			d.logger.Debug("sending new-conversation notice failed", "error", err)
		}
	}

	d.logger.Info("job completed",
		"job_id", job.ID,
		"user_id", job.UserID,
		"model", prefs.Model,
		"queued", start.Sub(job.EnqueuedAt),
		"took", time.Since(start))
}

// routeModel maps a model preference to its provider and limiter.
func (d *Dispatcher) routeModel(model string) (provider.Client, *limiter.Limiter, error) {
	switch {
	case config.UsesAnthropic(model) && d.anthropic != nil:
		return d.anthropic, d.anthropicLimiter, nil
	case model == d.googleModel && d.gemini != nil:
		return d.gemini, d.geminiLimiter, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
}

// notifyFailure ends a failed job: exactly one user-visible failure
// notice (editing the placeholder when one exists, otherwise a fresh
// message), a report, and presence back to Idle.
func (d *Dispatcher) notifyFailure(job Job, placeholderID string, cause error) {
	d.presence.StopTyping(job.UserID)

	notice := config.FailureMessageForError(cause, job.UserID)
	var notifyErr error
	if placeholderID != "" {
		notifyErr = d.messenger.Edit(job.ChannelID, placeholderID, notice)
	} else {
		_, notifyErr = d.messenger.Send(job.ChannelID, notice)
	}
	if notifyErr != nil {
		d.logger.Error("delivering failure notice failed", "job_id", job.ID, "error", notifyErr)
	}

	d.logger.Error("job failed", "job_id", job.ID, "user_id", job.UserID, "error", cause)
	d.reporter.Report(cause, jobFields(job))
}

func jobFields(job Job) map[string]string {
	return map[string]string{
		"job_id":     job.ID.String(),
		"user_id":    job.UserID,
		"channel_id": job.ChannelID,
		"message_id": job.MessageID,
	}
}

// thinkingMessage picks a placeholder reply uniformly at random.
func thinkingMessage() string {
	return config.ThinkingMessages[rand.IntN(len(config.ThinkingMessages))]
}
