package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/genricoloni/mprisbar/internal/display"
	"github.com/genricoloni/mprisbar/internal/domain"
	"github.com/genricoloni/mprisbar/internal/registry"
	"go.uber.org/zap"
)

// Engine is the single dispatcher of the daemon.
// It consumes session events, keeps the registry current and drives the
// renderer. The registry and renderer are only touched from the run loop.
type Engine struct {
	logger   *zap.Logger
	cfg      domain.Config
	monitor  domain.Monitor
	cache    domain.ArtworkCache
	executor domain.Executor

	registry *registry.Registry
	renderer *display.Renderer

	// Last values pushed to the renderer and the artwork cache
	lastTitle  string
	lastArtist string
	lastArtURL string

	loopCtx  context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	shutdown sync.Once
}

// NewEngine creates a new orchestration engine
func NewEngine(
	logger *zap.Logger,
	cfg domain.Config,
	mon domain.Monitor,
	emitter domain.Emitter,
	cache domain.ArtworkCache,
	exec domain.Executor,
) *Engine {
	e := &Engine{
		logger:   logger,
		cfg:      cfg,
		monitor:  mon,
		cache:    cache,
		executor: exec,
		renderer: display.NewRenderer(logger, emitter, cfg.GetMaxWidth()),
		loopCtx:  context.Background(),
	}
	e.registry = registry.New(e, e)
	return e
}

// Start starts the monitor and launches the event loop in a goroutine.
// It returns immediately (non-blocking). A monitor failure is returned and
// nothing is started.
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("Engine starting...")

	if err := e.monitor.Start(ctx); err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}

	// The loop outlives the start context
	loopCtx, cancel := context.WithCancel(context.Background())
	e.loopCtx = loopCtx
	e.cancel = cancel
	e.done = make(chan struct{})

	go e.runLoop(loopCtx)
	return nil
}

// runLoop serializes session events and scroll ticks
func (e *Engine) runLoop(ctx context.Context) {
	defer close(e.done)

	events := e.monitor.Events()
	ticker := time.NewTicker(e.cfg.GetScrollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine loop stopped")
			return

		case ev, ok := <-events:
			if !ok {
				e.logger.Info("Monitor events channel closed")
				return
			}
			e.handleEvent(ev)

		case <-ticker.C:
			e.renderer.Tick()
		}
	}
}

// handleEvent applies one session event to the registry. Protocol
// violations from the monitor are logged and ignored.
func (e *Engine) handleEvent(ev domain.SessionEvent) {
	e.logger.Debug("Session event",
		zap.String("kind", ev.Kind.String()),
		zap.String("session", ev.Identity.String()))

	var err error
	switch ev.Kind {
	case domain.EventSessionAppeared:
		_, err = e.registry.Add(ev.Identity, ev.State)

	case domain.EventSessionVanished:
		err = e.registry.Remove(ev.Identity)

	case domain.EventPropertyChanged:
		session, ok := e.registry.Get(ev.Identity)
		if !ok {
			err = fmt.Errorf("update %s: %w", ev.Identity, registry.ErrNotFound)
			break
		}
		state := session.State
		for _, c := range ev.Changes {
			var applied bool
			if state, applied = state.Apply(c); !applied {
				e.logger.Debug("Ignoring malformed property change",
					zap.String("property", c.Property.String()))
			}
		}
		err = e.registry.UpdateState(ev.Identity, state)
	}

	switch {
	case err == nil:
	case errors.Is(err, registry.ErrAlreadyExists), errors.Is(err, registry.ErrNotFound):
		e.logger.Warn("Inconsistent session event, ignoring", zap.Error(err))
	default:
		e.logger.Error("Failed to apply session event", zap.Error(err))
	}
}

// OnSelect renders the newly selected session from scratch
func (e *Engine) OnSelect(s domain.Session) {
	e.logger.Info("Session selected",
		zap.String("session", s.Identity.String()),
		zap.String("title", s.State.Metadata.Title),
		zap.String("artist", s.State.Metadata.Artist))

	meta := s.State.Metadata
	e.updateArtwork(meta.ArtURL)

	e.lastTitle = meta.Title
	e.lastArtist = meta.Artist
	e.renderer.Rebuild(meta.Title, meta.Artist)
	e.renderer.SetPlaying(s.State.Playing())
	e.renderer.Display()
}

// OnEmpty shows the empty display once the last session is gone
func (e *Engine) OnEmpty() {
	e.logger.Info("No sessions left")
	e.lastTitle = ""
	e.lastArtist = ""
	e.renderer.Clear()
}

// OnStateChanged applies the display policy to the selected session:
// artwork first, then a rebuild on title/artist changes, then a plain
// re-emit when only the playing flag flipped.
func (e *Engine) OnStateChanged(s domain.Session) {
	meta := s.State.Metadata
	changes := domain.Diff(domain.Metadata{
		Title:  e.lastTitle,
		Artist: e.lastArtist,
		ArtURL: e.lastArtURL,
	}, domain.Metadata{
		Title:  meta.Title,
		Artist: meta.Artist,
		ArtURL: meta.ArtURL,
	})

	e.logger.Debug("Selected session changed",
		zap.String("session", s.Identity.String()),
		zap.Stringer("fields", changes))

	if changes.Has(domain.ChangedArtURL) {
		e.updateArtwork(meta.ArtURL)
	}

	playingChanged := e.renderer.SetPlaying(s.State.Playing())

	switch {
	case changes.Has(domain.ChangedTitle) || changes.Has(domain.ChangedArtist):
		e.lastTitle = meta.Title
		e.lastArtist = meta.Artist
		e.renderer.Rebuild(meta.Title, meta.Artist)
		e.renderer.Display()
	case playingChanged:
		e.renderer.Display()
	}
}

// updateArtwork repoints the cover cache and asks the host to reload it.
// Failures are logged only.
func (e *Engine) updateArtwork(artURL string) {
	if artURL == e.lastArtURL {
		return
	}
	e.lastArtURL = artURL

	if err := e.cache.Update(artURL); err != nil {
		e.logger.Error("Failed to update artwork cache",
			zap.String("artUrl", artURL),
			zap.Error(err))
	}
	e.executor.SignalRefresh(e.loopCtx)
}

// Shutdown stops the event loop and emits the empty display. Only the first
// call has any effect.
func (e *Engine) Shutdown() {
	e.shutdown.Do(func() {
		e.logger.Info("Engine shutting down")
		if e.cancel != nil {
			e.cancel()
			<-e.done
		}
		e.renderer.Clear()
	})
}

// Stop shuts the engine down and then stops the monitor
func (e *Engine) Stop(ctx context.Context) error {
	e.logger.Info("Engine stopping...")
	e.Shutdown()
	return e.monitor.Stop(ctx)
}
