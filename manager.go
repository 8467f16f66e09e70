package c5store

import (
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/normano/c5store/internal/datastore"
	"github.com/normano/c5store/pkg/provider"
	"github.com/normano/c5store/pkg/source"
	"github.com/normano/c5store/pkg/telemetry"
	"github.com/normano/c5store/pkg/value"
)

// setDataFunc is the internal writer: the store's full write protocol plus
// change notification, parameterized by origin.
type setDataFunc func(keyPath string, val value.Value, src source.Source)

// C5StoreMgr owns provider lifecycles: it registers buffered descriptors
// with implementations, runs the initial hydration, and drives periodic
// refreshes on background goroutines until Stop.
type C5StoreMgr struct {
	clk     clock.Clock
	logger  telemetry.Logger
	stats   telemetry.StatsRecorder
	setData setDataFunc

	mu           sync.Mutex
	providers    map[string]provider.ValueProvider
	providedData map[string][]value.Value
	stopped      bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newC5StoreMgr(
	clk clock.Clock,
	logger telemetry.Logger,
	stats telemetry.StatsRecorder,
	setData setDataFunc,
	providedData map[string][]value.Value,
) *C5StoreMgr {
	return &C5StoreMgr{
		clk:          clk,
		logger:       logger,
		stats:        stats,
		setData:      setData,
		providers:    make(map[string]provider.ValueProvider),
		providedData: providedData,
		stopCh:       make(chan struct{}),
	}
}

// SetValueProvider hands the descriptors buffered under name to impl, runs
// one synchronous hydration, and, when refreshPeriod is positive, schedules
// periodic refreshes at that interval. A zero refreshPeriod means one-shot.
func (m *C5StoreMgr) SetValueProvider(name string, impl provider.ValueProvider, refreshPeriod time.Duration) {
	m.mu.Lock()
	descriptors := m.providedData[name]
	if len(descriptors) == 0 {
		m.mu.Unlock()
		m.logger.Warn(fmt.Sprintf("%s value provider has no data to provide; either remove this value provider or add configuration it must provide", name))
		return
	}
	m.providers[name] = impl
	m.mu.Unlock()

	for _, descriptor := range descriptors {
		if err := impl.Register(descriptor); err != nil {
			m.logger.Error(fmt.Sprintf("failed registering descriptor with provider %q", name), err)
		}
	}

	ctx := &provider.HydrateContext{Logger: m.logger}
	set := m.providerWriter(name)

	m.hydrate(name, impl, set, ctx)

	if refreshPeriod <= 0 {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		timer := m.clk.NewTimer(refreshPeriod)
		defer timer.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-timer.Chan():
				m.hydrate(name, impl, set, ctx)
				timer.Reset(refreshPeriod)
			}
		}
	}()
}

func (m *C5StoreMgr) hydrate(name string, impl provider.ValueProvider, set provider.SetDataFunc, ctx *provider.HydrateContext) {
	start := m.clk.Now()
	impl.Hydrate(set, true, ctx)
	m.stats.RecordTimer(map[string]string{"provider": name}, "c5store.provider_hydrate", m.clk.Now().Sub(start))
}

// providerWriter tags every write from the named provider with its source.
func (m *C5StoreMgr) providerWriter(name string) provider.SetDataFunc {
	return func(keyPath string, val value.Value) {
		m.setData(keyPath, val, source.FromProvider(name))
	}
}

// SetData writes a value through the store's full write protocol with
// source SetProgrammatically.
func (m *C5StoreMgr) SetData(keyPath string, val value.Value) {
	m.setData(keyPath, val, source.Programmatic())
}

// Stop cancels all refresh schedules and waits for in-flight hydrations to
// drain. Idempotent.
func (m *C5StoreMgr) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	m.logger.Info("stopping c5store manager")
	close(m.stopCh)
	m.wg.Wait()
	m.logger.Info("stopped c5store manager")
}

// newSetDataFunc builds the shared writer: run the store write, then notify
// when the observable value actually changed. Identical re-writes update the
// source tag but emit no notification.
func newSetDataFunc(ds *datastore.Store, notifier *changeNotifier) setDataFunc {
	return func(keyPath string, val value.Value, src source.Source) {
		res, err := ds.SetData(keyPath, val, src)
		if err != nil {
			// Already logged and counted by the store; the failed write
			// must not disturb siblings.
			return
		}
		if !res.Wrote {
			return
		}
		if res.Old != nil && res.Old.Equal(res.New) {
			return
		}
		notifier.notifyChanged(res.EffectiveKey, res.Old)
	}
}
