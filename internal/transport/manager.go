package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Manager owns the adapter set. It detects the platform once, ranks
// adapters for it, probes availability and memoizes the selected
// adapter until told otherwise.
type Manager struct {
	logger       *slog.Logger
	platform     Platform
	probeTimeout time.Duration

	mu       sync.RWMutex
	adapters map[Type]Adapter
	order    []Type
	active   Adapter
}

func NewManager(logger *slog.Logger, adapters ...Adapter) *Manager {
	return NewManagerForPlatform(DetectPlatform(), logger, adapters...)
}

// NewManagerForPlatform builds a manager for an explicit platform,
// bypassing detection. Configuration can pin the platform this way
// when detection gets an exotic host wrong.
func NewManagerForPlatform(platform Platform, logger *slog.Logger, adapters ...Adapter) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		logger:       logger,
		platform:     platform,
		probeTimeout: 3 * time.Second,
		adapters:     make(map[Type]Adapter),
	}
	for _, a := range adapters {
		m.Register(a)
	}
	return m
}

// Register adds an adapter. Registering a type twice replaces the
// earlier adapter but keeps its ranking position.
func (m *Manager) Register(a Adapter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := m.adapters[a.Type()]; !seen {
		m.order = append(m.order, a.Type())
	}
	m.adapters[a.Type()] = a
}

// Platform returns the environment detected at construction.
func (m *Manager) Platform() Platform { return m.platform }

// Adapter looks up a registered adapter by type.
func (m *Manager) Adapter(t Type) (Adapter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.adapters[t]
	return a, ok
}

// ranking orders adapter types from most to least preferred for the
// detected platform. The document fallback closes every list.
func (m *Manager) ranking() []Type {
	switch {
	case m.platform.Mobile:
		return []Type{TypeDeepLink, TypeBluetooth, TypeDocument}
	case m.platform.Headless:
		return []Type{TypeNetwork, TypeUSB, TypeSerial, TypeBluetooth, TypeDocument}
	default:
		return []Type{TypeSerial, TypeUSB, TypeNetwork, TypeBluetooth, TypeDeepLink, TypeDocument}
	}
}

func (m *Manager) probe(ctx context.Context, a Adapter) bool {
	ctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()
	return a.Available(ctx)
}

// ActiveAdapter returns the memoized selection, resolving it on first
// use by probing adapters in ranking order.
func (m *Manager) ActiveAdapter(ctx context.Context) (Adapter, error) {
	m.mu.RLock()
	active := m.active
	m.mu.RUnlock()
	if active != nil {
		return active, nil
	}

	for _, t := range m.ranking() {
		a, ok := m.Adapter(t)
		if !ok {
			continue
		}
		if !m.probe(ctx, a) {
			continue
		}
		m.mu.Lock()
		if m.active == nil {
			m.active = a
			m.logger.Info("print adapter selected", "type", t, "name", a.Name())
		}
		active = m.active
		m.mu.Unlock()
		return active, nil
	}
	return nil, fmt.Errorf("%w: no adapter available on %s", ErrAdapterUnavailable, m.platform.OS)
}

// SetActiveAdapter overrides the selection explicitly. The adapter
// must be registered and currently available.
func (m *Manager) SetActiveAdapter(ctx context.Context, t Type) error {
	a, ok := m.Adapter(t)
	if !ok {
		return fmt.Errorf("%w: unknown adapter type %q", ErrAdapterUnavailable, t)
	}
	if !m.probe(ctx, a) {
		return fmt.Errorf("%w: adapter %q not available", ErrAdapterUnavailable, t)
	}
	m.mu.Lock()
	m.active = a
	m.mu.Unlock()
	m.logger.Info("print adapter overridden", "type", t)
	return nil
}

// InvalidateActive drops the memoized selection so the next call
// re-probes. Used after a transport goes away mid-session.
func (m *Manager) InvalidateActive() {
	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()
}

// ActiveType returns the memoized selection's type, or empty when none
// is resolved yet.
func (m *Manager) ActiveType() Type {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return ""
	}
	return m.active.Type()
}

// AvailableAdapters probes every registered adapter and reports it
// with a live available flag. Recommended marks the first available
// adapter in ranking order.
func (m *Manager) AvailableAdapters(ctx context.Context) []Info {
	m.mu.RLock()
	order := append([]Type{}, m.order...)
	m.mu.RUnlock()

	avail := make(map[Type]bool, len(order))
	infos := make([]Info, 0, len(order))
	for _, t := range order {
		a, _ := m.Adapter(t)
		ok := m.probe(ctx, a)
		avail[t] = ok
		infos = append(infos, Info{
			Type:         t,
			Name:         a.Name(),
			Available:    ok,
			Capabilities: a.Capabilities(),
		})
	}

	var recommended Type
	for _, t := range m.ranking() {
		if avail[t] {
			recommended = t
			break
		}
	}
	for i := range infos {
		infos[i].Recommended = infos[i].Type == recommended
	}
	return infos
}

// Recommendations is the platform guidance surfaced to presentation
// layers.
type Recommendations struct {
	Platform    Platform `json:"platform"`
	Preferred   Type     `json:"preferred"`
	Message     string   `json:"message"`
	AppStoreURL string   `json:"appStoreUrl,omitempty"`
}

// Recommendations returns platform guidance without probing hardware.
func (m *Manager) Recommendations() Recommendations {
	r := Recommendations{Platform: m.platform}
	switch {
	case m.platform.Mobile:
		r.Preferred = TypeDeepLink
		r.Message = "Install the companion app and print over the phone's hardware link."
		if a, ok := m.Adapter(TypeDeepLink); ok {
			if dl, ok := a.(*DeepLinkAdapter); ok {
				r.AppStoreURL = dl.AppStoreURL()
			}
		}
	case m.platform.Headless:
		r.Preferred = TypeNetwork
		r.Message = "Configure the printer's network address; headless hosts cannot open dialogs."
	default:
		r.Preferred = TypeSerial
		r.Message = "Plug the printer in over USB serial for the most reliable channel."
	}
	return r
}
