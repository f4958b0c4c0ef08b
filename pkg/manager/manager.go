// Package manager implements the top-level device manager (C7): it loads
// device configurations and capability maps at startup, watches the kernel
// device tree for input nodes appearing and disappearing, matches them
// against configurations in priority order, and drives the composite
// devices (pkg/composite) those matches create, grow, shrink, and destroy.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	udev "github.com/jochenvg/go-udev"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/inputmux/inputmuxd/internal/configpaths"
	ilog "github.com/inputmux/inputmuxd/internal/log"
	"github.com/inputmux/inputmuxd/pkg/capmap"
	"github.com/inputmux/inputmuxd/pkg/composite"
	"github.com/inputmux/inputmuxd/pkg/config"
	"github.com/inputmux/inputmuxd/pkg/dmi"
	"github.com/inputmux/inputmuxd/pkg/intercept"
	"github.com/inputmux/inputmuxd/pkg/match"
	"github.com/inputmux/inputmuxd/pkg/profile"
	"github.com/inputmux/inputmuxd/pkg/scripting"
	"github.com/inputmux/inputmuxd/pkg/source"
	"github.com/inputmux/inputmuxd/pkg/target"
	"github.com/inputmux/inputmuxd/pkg/target/bustarget"
)

// hotplugSubsystems are the udev subsystems the netlink monitor watches.
// IIO sensors enumerate under the "iio" subsystem; evdev and hidraw nodes
// both enumerate under the kernel's generic "input" and "hidraw"
// subsystems respectively.
var hotplugSubsystems = []string{"input", "hidraw", "iio"}

// nodeGlobs are the static device-node globs scanned once at startup,
// matching spec's enumeration of /dev/input/event*, /dev/hidraw*, and
// /sys/bus/iio/devices/*.
var nodeGlobs = []string{
	"/dev/input/event*",
	"/dev/hidraw*",
	"/sys/bus/iio/devices/iio:device*",
}

// familyFor maps a device node path to the pkg/source family that decodes
// it.
func familyFor(path string) string {
	base := filepath.Base(path)
	switch {
	case len(base) >= 5 && base[:5] == "event":
		return "evdev"
	case len(base) >= 6 && base[:6] == "hidraw":
		return "hidraw"
	case len(base) >= 3 && base[:3] == "iio":
		return "iio"
	default:
		return ""
	}
}

// group is one running or pending composite's bookkeeping: its
// configuration, the composite instance once started, and which required
// matcher groups currently have a live source.
type group struct {
	cfg       config.DeviceConfig
	inst      *composite.Composite
	started   bool
	satisfied map[string]bool // matcher index (as string) -> has a live source
	nodeToSrc map[string]string
	targets   map[string]target.Target
}

// Manager is the running C7 manager.
type Manager struct {
	logger *slog.Logger

	mu      sync.Mutex
	configs []config.DeviceConfig
	// groups is keyed by config.Name, and iterates in declaration order:
	// handleAdd's priority sort is stable, so configs tied on Priority keep
	// the order they were declared in, across every config layer.
	groups        *orderedmap.OrderedMap[string, *group]
	ignored       map[string]bool // nodes matched by an "ignore"-only entry
	interceptMode intercept.Mode
	tracer        ilog.EventTracer

	udev *udev.Udev
}

// SetTracer installs the trace-level native/capability event logger applied
// to every composite device this Manager builds from here on.
func (m *Manager) SetTracer(t ilog.EventTracer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracer = t
}

// New loads every layered configuration (device configs, capability maps,
// profiles) and returns a Manager ready to Run.
func New(logger *slog.Logger) (*Manager, error) {
	configs, err := config.LoadDeviceConfigs(configpaths.Layers(configpaths.KindDevices))
	if err != nil {
		return nil, fmt.Errorf("manager: load device configs: %w", err)
	}
	m := &Manager{
		logger:  logger,
		configs: configs,
		groups:  orderedmap.New[string, *group](),
		ignored: map[string]bool{},
		tracer:  ilog.NewEventTracer(ilog.NewRaw(nil)),
		udev:    &udev.Udev{},
	}
	for _, cfg := range configs {
		m.groups.Set(cfg.Name, &group{cfg: cfg, satisfied: map[string]bool{}, nodeToSrc: map[string]string{}})
	}
	return m, nil
}

// Run performs the initial device scan, then blocks processing netlink
// hotplug events until ctx is canceled. It never returns a non-nil error on
// a clean shutdown.
func (m *Manager) Run(ctx context.Context) error {
	facts, err := dmi.Read()
	if err != nil {
		m.logger.Warn("dmi read failed, DMI-gated configs will never match", "error", err)
	}

	mon := m.udev.NewMonitorFromNetlink("udev")
	for _, sub := range hotplugSubsystems {
		mon.FilterAddMatchSubsystem(sub)
	}
	devCh, err := mon.DeviceChan(ctx)
	if err != nil {
		return fmt.Errorf("manager: starting udev monitor: %w", err)
	}

	for _, g := range nodeGlobs {
		paths, _ := filepath.Glob(g)
		for _, p := range paths {
			m.handleAdd(ctx, p, facts)
		}
	}

	for {
		select {
		case <-ctx.Done():
			m.teardownAll()
			return nil
		case d, ok := <-devCh:
			if !ok {
				m.teardownAll()
				return nil
			}
			node := d.Devnode()
			if node == "" {
				continue
			}
			switch d.Action() {
			case "add", "bind":
				m.handleAdd(ctx, node, facts)
			case "remove", "unbind":
				m.handleRemove(node)
			}
		}
	}
}

// handleAdd evaluates one device node against every configuration in
// priority order (manager responsibility 2), attaching it to an existing
// composite or spawning a new one on first match.
func (m *Manager) handleAdd(ctx context.Context, node string, facts dmi.Facts) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ignored[node] {
		return
	}

	family := familyFor(node)
	if family == "" {
		return
	}

	names := make([]string, 0, m.groups.Len())
	for pair := m.groups.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	sort.SliceStable(names, func(i, j int) bool {
		gi, _ := m.groups.Get(names[i])
		gj, _ := m.groups.Get(names[j])
		return gi.cfg.Priority > gj.cfg.Priority
	})

	for _, name := range names {
		g, _ := m.groups.Get(name)
		if g.cfg.DMI != nil && !facts.Matches(g.cfg.DMI.SysVendor, g.cfg.DMI.ProductName) {
			continue
		}
		idx, matcher, ok := matchSource(g.cfg.Sources, node)
		if !ok {
			continue
		}
		src, err := source.New(family, node)
		if err != nil {
			m.logger.Debug("source construction failed, skipping node", "node", node, "error", err)
			return
		}

		if err := m.attach(ctx, g, idx, matcher, src); err != nil {
			m.logger.Warn("attach failed", "config", name, "node", node, "error", err)
			_ = src.Close()
			return
		}
		return
	}
}

// matchSource evaluates a node's descriptor-free path against each
// SourceMatcher entry in order; the first entry whose Name glob matches the
// node's base name wins, and an entry with an empty Name matches any node.
// No other udev attribute is matched. Returns the matched entry's index for
// grouping by Required.
func matchSource(entries []config.SourceMatcher, node string) (int, config.SourceMatcher, bool) {
	for i, e := range entries {
		if e.Name != "" && !match.Glob(e.Name, filepath.Base(node)) {
			continue
		}
		return i, e, true
	}
	if len(entries) == 0 {
		return 0, config.SourceMatcher{}, true
	}
	return 0, config.SourceMatcher{}, false
}

// attach binds src to g's composite, creating the composite on first use,
// then starts it once every required matcher group has at least one live
// source (manager responsibility 3).
func (m *Manager) attach(ctx context.Context, g *group, matcherIdx int, matcher config.SourceMatcher, src source.Source) error {
	if g.inst == nil {
		inst, targets, err := m.buildComposite(ctx, g.cfg)
		if err != nil {
			return err
		}
		g.inst = inst
		g.targets = targets
	}

	g.inst.Add(src)
	g.nodeToSrc[src.Descriptor().ID] = fmt.Sprintf("%d", matcherIdx)
	if matcher.Required {
		g.satisfied[fmt.Sprintf("%d", matcherIdx)] = true
	}

	if !g.started && m.requiredSatisfied(g) {
		g.started = true
		go func() {
			g.inst.Run(ctx)
		}()
		go m.watchFatal(g)
	}
	return nil
}

func (m *Manager) requiredSatisfied(g *group) bool {
	for i, e := range g.cfg.Sources {
		if e.Required && !g.satisfied[fmt.Sprintf("%d", i)] {
			return false
		}
	}
	return true
}

// releaseMatcher clears matcher idx's satisfied mark once no node still
// bound in g belongs to it.
func (m *Manager) releaseMatcher(g *group, idx string) {
	for _, other := range g.nodeToSrc {
		if other == idx {
			return
		}
	}
	delete(g.satisfied, idx)
}

// watchFatal tears a composite device down if its supervisor reports a
// source loss that leaves a required matcher group empty, per manager
// responsibility 4.
func (m *Manager) watchFatal(g *group) {
	for e := range g.inst.Errors() {
		m.mu.Lock()
		if idx, ok := g.nodeToSrc[e.Source]; ok {
			delete(g.nodeToSrc, e.Source)
			m.releaseMatcher(g, idx)
		}
		if !m.requiredSatisfied(g) {
			m.logger.Warn("required source group empty, tearing down composite", "config", g.cfg.Name)
			_ = g.inst.Close()
			g.started = false
			g.inst = nil
			g.satisfied = map[string]bool{}
			g.nodeToSrc = map[string]string{}
			g.targets = nil
		}
		m.mu.Unlock()
	}
}

// handleRemove releases the source bound to node, if any, and tears its
// composite down when that was the last source satisfying a required
// matcher group.
func (m *Manager) handleRemove(node string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for pair := m.groups.Oldest(); pair != nil; pair = pair.Next() {
		g := pair.Value
		if g.inst == nil {
			continue
		}
		idx, ok := g.nodeToSrc[node]
		if !ok {
			continue
		}
		g.inst.Remove(node)
		delete(g.nodeToSrc, node)
		m.releaseMatcher(g, idx)
		if g.inst.SourceCount() == 0 || !m.requiredSatisfied(g) {
			m.logger.Info("tearing down composite, required source gone", "config", g.cfg.Name)
			_ = g.inst.Close()
			g.started = false
			g.inst = nil
			g.satisfied = map[string]bool{}
			g.nodeToSrc = map[string]string{}
			g.targets = nil
		}
		return
	}
}

func (m *Manager) teardownAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for pair := m.groups.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.inst != nil {
			_ = pair.Value.inst.Close()
		}
	}
}

// buildComposite loads a configuration's capability map and profile and
// instantiates its target devices, then wraps them in a new
// pkg/composite.Composite.
func (m *Manager) buildComposite(ctx context.Context, cfg config.DeviceConfig) (*composite.Composite, map[string]target.Target, error) {
	var mappings []config.MappingEntry
	if cfg.CapabilityMap != "" {
		mm, err := config.LoadCapabilityMap(configpaths.Layers(configpaths.KindCapabilityMaps), cfg.CapabilityMap)
		if err != nil {
			return nil, nil, err
		}
		mappings = mm
	}
	translator := capmap.New(mappings)

	var prof *profile.Profile
	if cfg.Profile != "" {
		pf, err := config.LoadProfile(configpaths.Layers(configpaths.KindProfiles), cfg.Profile)
		if err != nil {
			return nil, nil, err
		}
		prof = profile.New(pf)
	} else {
		prof = profile.New(&config.ProfileFile{Name: cfg.Name})
	}

	hook, err := scripting.Load(cfg.Script)
	if err != nil {
		m.logger.Warn("script load failed, continuing without it", "config", cfg.Name, "error", err)
		hook = scripting.NoOp{}
	}

	targets := map[string]target.Target{}
	busNames := map[string]bool{}
	for i, ts := range cfg.Targets {
		name := fmt.Sprintf("%s/%d:%s", cfg.Name, i, ts.Kind)
		t, err := target.New(ts.Kind, name, ts.Opts)
		if err != nil {
			for _, existing := range targets {
				_ = existing.Close()
			}
			return nil, nil, fmt.Errorf("target %s: %w", name, err)
		}
		targets[name] = t
		busNames[name] = ts.Kind == "bus"
	}

	inst, err := composite.New(cfg.Name, cfg.Name, m.logger, translator, prof, hook, targets, busNames)
	if err != nil {
		return nil, nil, err
	}
	inst.Gate().SetMode(modeFor(cfg.InterceptMode))
	inst.SetTracer(m.tracer)
	return inst, targets, nil
}

func modeFor(s string) intercept.Mode {
	switch s {
	case "pass":
		return intercept.ModePass
	case "all":
		return intercept.ModeAll
	case "gamepad_only":
		return intercept.ModeGamepadOnly
	default:
		return intercept.ModeNone
	}
}

// SetInterceptMode changes the global intercept mode, applied to every
// running composite device (manager responsibility 5).
func (m *Manager) SetInterceptMode(mode intercept.Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interceptMode = mode
	for pair := m.groups.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.inst != nil {
			pair.Value.inst.Gate().SetMode(mode)
		}
	}
}

// InterceptMode returns the last mode SetInterceptMode set.
func (m *Manager) InterceptMode() intercept.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interceptMode
}

// SetCompositeInterceptMode changes the intercept mode of one running
// composite device, independent of the global default, for the control
// bus's per-CompositeDevice InterceptMode property.
func (m *Manager) SetCompositeInterceptMode(name string, mode intercept.Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups.Get(name)
	if !ok {
		return fmt.Errorf("manager: no such composite %q", name)
	}
	if g.inst == nil {
		return fmt.Errorf("manager: composite %q is not running", name)
	}
	g.inst.Gate().SetMode(mode)
	return nil
}

// CompositeCapabilities reports the union of every target device's declared
// capabilities for one composite, for the control bus's
// CompositeDevice.Capabilities property.
func (m *Manager) CompositeCapabilities(name string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups.Get(name)
	if !ok {
		return nil, fmt.Errorf("manager: no such composite %q", name)
	}
	seen := map[string]struct{}{}
	for _, t := range g.targets {
		for _, c := range t.Capabilities() {
			seen[string(c)] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// TargetNames reports the names of every target device configured for a
// composite, for the control bus's CompositeDevice.TargetDevices property.
func (m *Manager) TargetNames(name string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups.Get(name)
	if !ok {
		return nil, fmt.Errorf("manager: no such composite %q", name)
	}
	out := make([]string, 0, len(g.targets))
	for tname := range g.targets {
		out = append(out, tname)
	}
	sort.Strings(out)
	return out, nil
}

// Target returns one of a composite's target device instances by name, for
// the control bus's injection route (target/{id} accepts a synthetic
// capability event the way a real source device would).
func (m *Manager) Target(compositeName, targetName string) (target.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups.Get(compositeName)
	if !ok {
		return nil, fmt.Errorf("manager: no such composite %q", compositeName)
	}
	t, ok := g.targets[targetName]
	if !ok {
		return nil, fmt.Errorf("manager: composite %q has no target %q", compositeName, targetName)
	}
	return t, nil
}

// BusTarget returns the bustarget.Bus instance backing a composite's "bus"
// target device, if it has one, for the control bus's streaming route
// (target/{id}/events).
func (m *Manager) BusTarget(name string) (*bustarget.Bus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups.Get(name)
	if !ok {
		return nil, fmt.Errorf("manager: no such composite %q", name)
	}
	for _, t := range g.targets {
		if b, ok := t.(*bustarget.Bus); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("manager: composite %q has no bus target", name)
}

// CompositeProfile reports the profile and capability map names a composite
// was configured with, for the control bus's composite/{id}/profile route.
func (m *Manager) CompositeProfile(name string) (profile string, capabilityMap string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups.Get(name)
	if !ok {
		return "", "", fmt.Errorf("manager: no such composite %q", name)
	}
	return g.cfg.Profile, g.cfg.CapabilityMap, nil
}

// SourceOwner reports which composite device a device node is currently
// feeding, for the control bus's source/{id} route.
func (m *Manager) SourceOwner(node string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for pair := m.groups.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := pair.Value.nodeToSrc[node]; ok {
			return pair.Key, true
		}
	}
	return "", false
}

// ListComposites reports the name and running state of every configured
// composite device, for the control-bus manager route.
func (m *Manager) ListComposites() []CompositeStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompositeStatus, 0, m.groups.Len())
	for pair := m.groups.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, CompositeStatus{
			Name:    pair.Key,
			Running: pair.Value.started,
			Sources: len(pair.Value.nodeToSrc),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CompositeStatus is the control-bus-facing summary of one composite device.
type CompositeStatus struct {
	Name    string
	Running bool
	Sources int
}

// Unmanage forcibly tears a composite device down and prevents further
// hot-add attachment to it until the manager is restarted.
func (m *Manager) Unmanage(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups.Get(name)
	if !ok {
		return fmt.Errorf("manager: no such composite %q", name)
	}
	if g.inst != nil {
		_ = g.inst.Close()
	}
	m.groups.Delete(name)
	return nil
}

// CreateFromPath loads a single device configuration file outside the
// normal layered directories and registers it for matching, the control-bus
// equivalent of Manager.CreateCompositeDevice (spec §6).
func (m *Manager) CreateFromPath(path string) (string, error) {
	cfgs, err := config.LoadDeviceConfigs([]string{filepath.Dir(path)})
	if err != nil {
		return "", err
	}
	var target *config.DeviceConfig
	base := filepath.Base(path)
	for i := range cfgs {
		if filepath.Base(cfgs[i].Name)+".yaml" == base || cfgs[i].Name == base {
			target = &cfgs[i]
			break
		}
	}
	if target == nil && len(cfgs) == 1 {
		target = &cfgs[0]
	}
	if target == nil {
		return "", fmt.Errorf("manager: %s did not resolve to exactly one device config", path)
	}
	m.mu.Lock()
	m.groups.Set(target.Name, &group{cfg: *target, satisfied: map[string]bool{}, nodeToSrc: map[string]string{}})
	m.mu.Unlock()
	return target.Name, nil
}
