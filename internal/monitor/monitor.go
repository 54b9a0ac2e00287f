package monitor

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/mprisbar/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	mprisPrefix     = "org.mpris.MediaPlayer2."
	mprisPath       = "/org/mpris/MediaPlayer2"
	playerInterface = "org.mpris.MediaPlayer2.Player"

	propertiesChanged = "org.freedesktop.DBus.Properties.PropertiesChanged"
	nameOwnerChanged  = "org.freedesktop.DBus.NameOwnerChanged"

	eventBuffer = 32
)

// MprisMonitor monitors media players via the D-Bus MPRIS interface and
// turns bus traffic into ordered session events
type MprisMonitor struct {
	logger      *zap.Logger
	decoder     decoder
	events      chan domain.SessionEvent
	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	conn        DBusClient                 // Interface for testability
	dial        func() (DBusClient, error) // Connects to the session bus
	group       *errgroup.Group            // Tracks active producer goroutines
	slowWarning rate.Sometimes             // Rate limiting for "consumer slow" warnings
	players     map[string]string          // Maps well-known names (org.mpris.MediaPlayer2.spotify) to their owner (:1.45)
}

// NewMprisMonitor creates a new MPRIS monitor instance
func NewMprisMonitor(logger *zap.Logger) *MprisMonitor {
	return &MprisMonitor{
		logger:  logger,
		decoder: decoder{logger: logger},
		events:  make(chan domain.SessionEvent, eventBuffer),
		dial: func() (DBusClient, error) {
			return NewStdDBusClient()
		},
		group:       &errgroup.Group{},
		slowWarning: rate.Sometimes{Interval: 5 * time.Second},
		players:     make(map[string]string),
	}
}

// Start connects to the session bus, subscribes to player signals and starts
// the producer goroutine. It returns without waiting for events; a failure to
// reach the bus is returned as an error.
func (m *MprisMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true

	// The monitor outlives the start context
	monitorCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	fail := func(err error) error {
		cancel()
		m.mu.Lock()
		defer m.mu.Unlock()
		m.running = false
		m.cancel = nil
		if m.conn != nil {
			_ = m.conn.Close()
			m.conn = nil
		}
		return err
	}

	conn, err := m.dial()
	if err != nil {
		m.logger.Error("Failed to connect to session bus", zap.Error(err))
		return fail(fmt.Errorf("session bus connection failed: %w", err))
	}

	// Protect connection assignment with mutex to avoid race with Stop()
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	// Check if we were stopped while connecting to D-Bus
	if err := ctx.Err(); err != nil {
		m.logger.Info("Monitor start cancelled during D-Bus connection")
		return fail(err)
	}

	// Add match rule for PropertiesChanged signals on MPRIS interface
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(mprisPath),
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		m.logger.Error("Failed to add match signal", zap.Error(err))
		return fail(fmt.Errorf("failed to add match signal: %w", err))
	}

	// Add match rule for NameOwnerChanged to track new/removed players dynamically
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg0Namespace("org.mpris.MediaPlayer2"),
	); err != nil {
		m.logger.Warn("Failed to add NameOwnerChanged match signal", zap.Error(err))
		// Non-fatal, continue without dynamic tracking
	} else {
		m.logger.Info("Dynamic player tracking enabled via NameOwnerChanged")
	}

	// Subscribe before scanning so no appearance falls between the two
	signals := make(chan *dbus.Signal, eventBuffer)
	conn.Signal(signals)

	m.group.Go(func() error {
		if err := m.detectExistingPlayers(monitorCtx); err != nil {
			m.logger.Warn("Failed to detect existing players", zap.Error(err))
		}
		m.monitorSignals(monitorCtx, signals)
		return nil
	})

	m.logger.Info("MPRIS monitor started")
	return nil
}

// Stop gracefully stops the monitor and closes the Events channel
func (m *MprisMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.running = false
	conn := m.conn
	m.mu.Unlock()

	// Close D-Bus connection first so in-flight calls return.
	// The client stays assigned; calls on a closed connection just fail.
	if conn != nil {
		if err := conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
	}

	// Wait for all producer goroutines to terminate before closing channel
	// This prevents "send on closed channel" panic
	m.logger.Debug("Waiting for monitoring goroutines to finish")
	_ = m.group.Wait()
	close(m.events)

	m.logger.Info("MPRIS monitor shutdown complete")
	return nil
}

// Events returns a read-only channel of session events
func (m *MprisMonitor) Events() <-chan domain.SessionEvent {
	return m.events
}

// detectExistingPlayers queries D-Bus for currently running MPRIS players
func (m *MprisMonitor) detectExistingPlayers(ctx context.Context) error {
	names, err := m.client().ListNames()
	if err != nil {
		return fmt.Errorf("failed to list bus names: %w", err)
	}

	// Sorted so discovery order is stable across runs
	slices.Sort(names)

	playerCount := 0
	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}
		playerCount++
		m.logger.Info("Detected MPRIS player", zap.String("name", name))

		// Get the unique bus name for this well-known name
		uniqueName, err := m.client().GetNameOwner(name)
		if err != nil {
			m.logger.Warn("Failed to resolve player owner",
				zap.String("player", name),
				zap.Error(err))
			continue
		}

		m.playerAppeared(ctx, name, uniqueName)
	}

	m.logger.Info("Player detection complete", zap.Int("count", playerCount))
	return nil
}

// playerAppeared records the name mapping and emits SessionAppeared with the
// player's current state. Names that are already tracked only get their owner
// updated. One connection may own several player names.
func (m *MprisMonitor) playerAppeared(ctx context.Context, name, uniqueName string) {
	m.mu.Lock()
	if _, known := m.players[name]; known {
		m.players[name] = uniqueName
		m.mu.Unlock()
		m.logger.Debug("Player already tracked", zap.String("player", name))
		return
	}
	m.players[name] = uniqueName
	m.mu.Unlock()

	m.logger.Debug("Mapped player name",
		zap.String("unique", uniqueName),
		zap.String("wellKnown", name))

	state := m.fetchPlayerState(name)
	m.emit(ctx, domain.SessionAppeared(identityFor(name), state))
}

// fetchPlayerState retrieves the full player state. Transport errors are
// logged and yield the default state.
func (m *MprisMonitor) fetchPlayerState(playerName string) domain.State {
	props, err := m.client().GetAllProperties(playerName, mprisPath, playerInterface)
	if err != nil {
		m.logger.Warn("Failed to fetch player properties, using defaults",
			zap.String("player", playerName),
			zap.Error(err))
		props = nil
	}
	return m.decoder.decodeState(props)
}

// monitorSignals listens for D-Bus signals and processes them
func (m *MprisMonitor) monitorSignals(ctx context.Context, signals <-chan *dbus.Signal) {
	m.logger.Info("Signal monitoring goroutine started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Signal monitoring goroutine stopped")
			return
		case sig, ok := <-signals:
			if !ok {
				m.logger.Info("D-Bus signal channel closed")
				return
			}
			if sig == nil {
				continue
			}
			// Handle different signal types
			switch sig.Name {
			case nameOwnerChanged:
				m.handleNameOwnerChanged(ctx, sig)
			case propertiesChanged:
				m.handleSignal(ctx, sig)
			}
		}
	}
}

// handleNameOwnerChanged processes NameOwnerChanged signals to track player lifecycle
func (m *MprisMonitor) handleNameOwnerChanged(ctx context.Context, sig *dbus.Signal) {
	if len(sig.Body) < 3 {
		return
	}

	name, ok := sig.Body[0].(string)
	if !ok || !strings.HasPrefix(name, mprisPrefix) {
		return // Not an MPRIS player
	}

	oldOwner, _ := sig.Body[1].(string)
	newOwner, _ := sig.Body[2].(string)

	switch {
	case newOwner != "" && oldOwner == "":
		m.logger.Info("New MPRIS player detected",
			zap.String("player", name),
			zap.String("unique", newOwner))
		m.playerAppeared(ctx, name, newOwner)

	case newOwner == "" && oldOwner != "":
		m.mu.Lock()
		_, known := m.players[name]
		delete(m.players, name)
		m.mu.Unlock()

		m.logger.Info("MPRIS player removed",
			zap.String("player", name),
			zap.String("unique", oldOwner))

		if known {
			m.emit(ctx, domain.SessionVanished(identityFor(name)))
		}

	case newOwner != "" && oldOwner != "":
		// Ownership transfer (rare): same instance, new unique name
		m.mu.Lock()
		_, known := m.players[name]
		if known {
			m.players[name] = newOwner
		}
		m.mu.Unlock()

		if !known {
			m.logger.Info("Untracked MPRIS player changed owner, tracking it",
				zap.String("player", name),
				zap.String("unique", newOwner))
			m.playerAppeared(ctx, name, newOwner)
			return
		}

		m.logger.Debug("MPRIS player ownership changed",
			zap.String("player", name),
			zap.String("oldUnique", oldOwner),
			zap.String("newUnique", newOwner))
	}
}

// handleSignal processes a PropertiesChanged signal
func (m *MprisMonitor) handleSignal(ctx context.Context, sig *dbus.Signal) {
	// PropertiesChanged signal has 3 arguments:
	// 1. Interface name (string)
	// 2. Changed properties (map[string]Variant)
	// 3. Invalidated properties ([]string)

	if sig.Name != propertiesChanged {
		return
	}

	if len(sig.Body) < 2 {
		return
	}

	interfaceName, ok := sig.Body[0].(string)
	if !ok || interfaceName != playerInterface {
		return
	}

	changedProps, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	playerNames := m.playersOwnedBy(sig.Sender)
	if len(playerNames) == 0 {
		m.logger.Debug("PropertiesChanged from untracked sender, ignoring",
			zap.String("sender", sig.Sender))
		return
	}

	changes := m.decoder.decodeChanges(changedProps)

	// Players may invalidate a property instead of sending its value
	if len(sig.Body) >= 3 {
		if invalidated, ok := sig.Body[2].([]string); ok && len(invalidated) > 0 {
			m.logger.Debug("Properties invalidated, refetching",
				zap.Strings("players", playerNames),
				zap.Strings("properties", invalidated))
			props, err := m.client().GetAllProperties(sig.Sender, mprisPath, playerInterface)
			if err != nil {
				m.logger.Warn("Failed to refetch invalidated properties",
					zap.Strings("players", playerNames),
					zap.Error(err))
			} else {
				refetched := make(map[string]dbus.Variant, len(invalidated))
				for _, p := range invalidated {
					if v, ok := props[p]; ok {
						refetched[p] = v
					}
				}
				changes = append(changes, m.decoder.decodeChanges(refetched)...)
			}
		}
	}

	if len(changes) == 0 {
		return
	}

	m.logger.Debug("Received PropertiesChanged signal",
		zap.String("sender", sig.Sender),
		zap.Strings("players", playerNames),
		zap.Int("changes", len(changes)))

	// The signal only names the connection, so every player it owns gets the change
	for _, name := range playerNames {
		if !m.emit(ctx, domain.PropertyChanged(identityFor(name), changes...)) {
			return
		}
	}
}

// emit delivers an event without dropping it. When the buffer is full it
// logs a rate-limited warning and blocks until the consumer catches up or
// the monitor stops.
func (m *MprisMonitor) emit(ctx context.Context, ev domain.SessionEvent) bool {
	select {
	case m.events <- ev:
		return true
	default:
	}

	m.slowWarning.Do(func() {
		m.logger.Warn("Events channel full, waiting for consumer",
			zap.String("event", ev.Kind.String()),
			zap.String("player", ev.Identity.Name))
	})

	select {
	case m.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// playersOwnedBy returns the tracked player names owned by a unique bus name, sorted
func (m *MprisMonitor) playersOwnedBy(uniqueName string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for wellKnown, owner := range m.players {
		if owner == uniqueName {
			names = append(names, wellKnown)
		}
	}
	slices.Sort(names)
	return names
}

func (m *MprisMonitor) client() DBusClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn
}

// identityFor maps a well-known MPRIS bus name to a session identity
func identityFor(busName string) domain.SessionIdentity {
	return domain.SessionIdentity{
		Name:   strings.TrimPrefix(busName, mprisPrefix),
		Source: domain.SourceSessionBus,
	}
}
