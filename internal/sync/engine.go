// Package sync orchestrates one full pipeline pass: fetch history,
// persist, sessionize, render, upsert. The engine owns no policy of its
// own; gap, pacing and retry behavior all arrive from configuration,
// and every collaborator failure is mapped to a per-chat outcome.
package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/eyalbz/wacal/internal/bus"
	"github.com/eyalbz/wacal/internal/calendar"
	"github.com/eyalbz/wacal/internal/registry"
	"github.com/eyalbz/wacal/internal/render"
	"github.com/eyalbz/wacal/internal/sessionize"
	"github.com/eyalbz/wacal/internal/source"
	"github.com/eyalbz/wacal/internal/status"
	"github.com/eyalbz/wacal/internal/store"
)

// ErrChatBusy is returned when a sync for the same chat is already running.
var ErrChatBusy = errors.New("chat sync already in progress")

// EventUpserter writes one rendered event to the external calendar.
type EventUpserter interface {
	Upsert(ctx context.Context, ev *store.LocalEvent) (created bool, externalID string, err error)
}

// Result is the outcome of syncing one chat.
type Result struct {
	ChatID        string `json:"chat_id"`
	MessagesSeen  int    `json:"messages_seen"`
	Sessions      int    `json:"sessions"`
	EventsCreated int    `json:"events_created"`
	FetchSkipped  bool   `json:"fetch_skipped"`
}

// RunResult aggregates a multi-chat run. Failed maps chat IDs to the
// error that stopped that chat; chats in Failed still have a Result
// entry with whatever progress was made.
type RunResult struct {
	ChatsTotal    int               `json:"chats_total"`
	ChatsDone     int               `json:"chats_done"`
	MessagesSeen  int               `json:"messages_seen"`
	EventsCreated int               `json:"events_created"`
	Results       []Result          `json:"results"`
	Failed        map[string]string `json:"failed,omitempty"`
}

// Params carries the engine's collaborators and tuning.
type Params struct {
	DB             *store.DB
	Registry       *registry.Registry
	Fetcher        source.HistoryFetcher
	Renderer       *render.Renderer
	Upserter       EventUpserter
	Bus            *bus.Bus
	Logger         *zap.Logger
	Runs           *status.Registry
	Gap            time.Duration
	InterChatDelay time.Duration
}

// Engine runs the sync pipeline for one chat or for every included chat.
type Engine struct {
	db             *store.DB
	registry       *registry.Registry
	fetcher        source.HistoryFetcher
	renderer       *render.Renderer
	upserter       EventUpserter
	bus            *bus.Bus
	logger         *zap.Logger
	runs           *status.Registry
	gap            time.Duration
	interChatDelay time.Duration

	mu     stdsync.Mutex
	active map[string]struct{}
}

// New creates an engine.
func New(p Params) *Engine {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:             p.DB,
		registry:       p.Registry,
		fetcher:        p.Fetcher,
		renderer:       p.Renderer,
		upserter:       p.Upserter,
		bus:            p.Bus,
		logger:         logger,
		runs:           p.Runs,
		gap:            p.Gap,
		interChatDelay: p.InterChatDelay,
	}
}

// SyncOne runs the full pipeline for a single chat over [startMs, endMs].
// A status row is written for the chat whatever the outcome, including
// unknown chats. Returns ErrChatBusy when the chat is already syncing.
func (e *Engine) SyncOne(ctx context.Context, chatID string, startMs, endMs int64) (*Result, error) {
	if !e.lockChat(chatID) {
		return nil, ErrChatBusy
	}
	defer e.unlockChat(chatID)

	res, err := e.syncChat(ctx, chatID, startMs, endMs)
	e.writeStatus(chatID, res, err)
	return res, err
}

func (e *Engine) syncChat(ctx context.Context, chatID string, startMs, endMs int64) (*Result, error) {
	res := &Result{ChatID: chatID}

	entity, err := e.registry.Get(chatID)
	if err != nil {
		return res, err
	}

	count, err := e.db.CountMessages(chatID, startMs, endMs)
	if err != nil {
		return res, fmt.Errorf("count messages: %w", err)
	}
	if count > 0 {
		res.FetchSkipped = true
		e.logger.Info("history already stored, skipping source fetch",
			zap.String("chat_id", chatID),
			zap.Int("stored", count))
	} else {
		fetched, err := e.fetcher.FetchHistory(ctx, chatID, startMs, endMs)
		if err != nil {
			return res, fmt.Errorf("fetch history: %w", err)
		}
		inserted, err := e.db.InsertMessages(chatID, fetched)
		if err != nil {
			return res, fmt.Errorf("persist history: %w", err)
		}
		e.logger.Info("history fetched",
			zap.String("chat_id", chatID),
			zap.Int("fetched", len(fetched)),
			zap.Int("inserted", inserted))
		e.publish("store.messages_inserted", map[string]string{
			"chat_id": chatID,
			"count":   fmt.Sprint(inserted),
		})
	}

	msgs, err := e.db.ListMessagesBetween(chatID, startMs, endMs)
	if err != nil {
		return res, fmt.Errorf("load messages: %w", err)
	}
	res.MessagesSeen = len(msgs)

	sessions := sessionize.Split(msgs, e.gap)
	res.Sessions = len(sessions)

	for _, s := range sessions {
		ev := e.renderer.Render(s, entity)
		created, _, err := e.upserter.Upsert(ctx, &ev)
		if err != nil {
			var invalid *calendar.ValidationError
			if errors.As(err, &invalid) {
				// Bad event, not a bad chat; skip it and keep going.
				e.logger.Error("event rejected",
					zap.String("chat_id", chatID),
					zap.String("title", ev.Title),
					zap.Error(err))
				continue
			}
			return res, fmt.Errorf("upsert event %q: %w", ev.Title, err)
		}
		if created {
			res.EventsCreated++
		}
	}
	return res, nil
}

// SyncAll syncs every included chat over [startMs, endMs]. Per-chat
// failures are recorded and the run continues; fatal errors (calendar
// rejection, source auth) abort the rest of the run.
func (e *Engine) SyncAll(ctx context.Context, startMs, endMs int64) (*RunResult, error) {
	ids, err := e.registry.ListIncluded()
	if err != nil {
		return nil, err
	}
	return e.syncMany(ctx, ids, startMs, endMs, nil, nil)
}

// syncMany is the shared loop behind SyncAll and async runs. onChat, if
// non-nil, is called after each chat; cancelled, if non-nil, is checked
// between chats for cooperative cancellation.
func (e *Engine) syncMany(ctx context.Context, ids []string, startMs, endMs int64,
	onChat func(Result, error), cancelled func() bool) (*RunResult, error) {

	run := &RunResult{
		ChatsTotal: len(ids),
		Failed:     make(map[string]string),
	}
	e.publish("sync.run_started", map[string]string{
		"chats": fmt.Sprint(len(ids)),
	})

	for i, id := range ids {
		if cancelled != nil && cancelled() {
			return run, context.Canceled
		}
		if i > 0 {
			if err := sleepCtx(ctx, e.interChatDelay); err != nil {
				return run, err
			}
		}

		res, err := e.SyncOne(ctx, id, startMs, endMs)
		if res != nil {
			run.Results = append(run.Results, *res)
			run.MessagesSeen += res.MessagesSeen
			run.EventsCreated += res.EventsCreated
		}
		if onChat != nil && res != nil {
			onChat(*res, err)
		}
		if err != nil {
			run.Failed[id] = err.Error()
			e.logger.Error("chat sync failed",
				zap.String("chat_id", id),
				zap.Error(err))
			if IsFatal(err) || errors.Is(err, context.Canceled) {
				e.publish("sync.run_finished", map[string]string{"outcome": "aborted"})
				return run, fmt.Errorf("run aborted at chat %s: %w", id, err)
			}
			continue
		}
		run.ChatsDone++
		e.publish("sync.chat_done", map[string]string{
			"chat_id": id,
			"events":  fmt.Sprint(res.EventsCreated),
		})
	}

	e.publish("sync.run_finished", map[string]string{
		"chats_done": fmt.Sprint(run.ChatsDone),
		"events":     fmt.Sprint(run.EventsCreated),
	})
	return run, nil
}

// SyncAsync starts a background run and returns its ID immediately.
// kind is "one" (target = chat ID) or "all". Progress is read through
// the runs registry; cancellation is cooperative between chats.
func (e *Engine) SyncAsync(kind, target string, startMs, endMs int64) (string, error) {
	switch kind {
	case "one":
		if target == "" {
			return "", errors.New("sync kind \"one\" requires a chat id")
		}
	case "all":
	default:
		return "", fmt.Errorf("unknown sync kind %q", kind)
	}

	id := e.runs.Create(kind, target)
	go e.runAsync(id, kind, target, startMs, endMs)
	return id, nil
}

func (e *Engine) runAsync(id, kind, target string, startMs, endMs int64) {
	// Detached from the request that started it; only the cancel flag
	// and daemon shutdown stop the run.
	ctx := context.Background()

	if err := e.runs.Transition(id, status.Running); err != nil {
		e.logger.Error("run transition failed", zap.String("run_id", id), zap.Error(err))
		return
	}

	ids := []string{target}
	if kind == "all" {
		var err error
		ids, err = e.registry.ListIncluded()
		if err != nil {
			e.finishRun(id, status.Failed, err)
			return
		}
	}
	e.runs.Update(id, func(r *status.Run) { r.ChatsTotal = len(ids) })

	onChat := func(res Result, chatErr error) {
		e.runs.Update(id, func(r *status.Run) {
			if chatErr == nil {
				r.ChatsDone++
			}
			r.MessagesSeen += res.MessagesSeen
			r.EventsCreated += res.EventsCreated
		})
	}
	cancelled := func() bool { return e.runs.CancelRequested(id) }

	_, err := e.syncMany(ctx, ids, startMs, endMs, onChat, cancelled)
	switch {
	case errors.Is(err, context.Canceled):
		e.finishRun(id, status.Cancelled, nil)
	case err != nil:
		e.finishRun(id, status.Failed, err)
	default:
		e.finishRun(id, status.Completed, nil)
	}
}

func (e *Engine) finishRun(id string, final status.State, err error) {
	if err != nil {
		e.runs.SetError(id, err)
	}
	if terr := e.runs.Transition(id, final); terr != nil {
		e.logger.Error("run transition failed", zap.String("run_id", id), zap.Error(terr))
	}
}

// IsFatal reports whether an error must abort a multi-chat run:
// calendar rejections and source auth failures cannot succeed on
// another chat either.
func IsFatal(err error) bool {
	var calFatal *calendar.FatalError
	var srcAuth *source.AuthError
	return errors.As(err, &calFatal) || errors.As(err, &srcAuth)
}

func (e *Engine) writeStatus(chatID string, res *Result, runErr error) {
	s := &store.SyncStatus{
		ChatID:    chatID,
		LastRunAt: time.Now().UnixMilli(),
		OK:        runErr == nil,
	}
	if res != nil {
		s.MessagesSeen = res.MessagesSeen
		s.EventsCreated = res.EventsCreated
	}
	if runErr != nil {
		s.Error = runErr.Error()
	}
	if err := e.db.PutSyncStatus(s); err != nil {
		e.logger.Error("status write failed", zap.String("chat_id", chatID), zap.Error(err))
	}
}

func (e *Engine) lockChat(chatID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		e.active = make(map[string]struct{})
	}
	if _, busy := e.active[chatID]; busy {
		return false
	}
	e.active[chatID] = struct{}{}
	return true
}

func (e *Engine) unlockChat(chatID string) {
	e.mu.Lock()
	delete(e.active, chatID)
	e.mu.Unlock()
}

func (e *Engine) publish(kind string, payload map[string]string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(bus.Event{
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
