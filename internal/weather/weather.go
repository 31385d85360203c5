// Package weather maintains the TTL cache of per-station METAR
// observations, with an exponential back-off blacklist for stations
// that keep returning nothing, and a background sweep that refreshes
// expired entries in batches.
package weather

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/curbz/skytrace/internal/fixed"
	"github.com/sirupsen/logrus"
)

// initialBlacklistDuration is a fresh blacklist entry's lifetime; every
// further failure doubles the previous duration.
const initialBlacklistDuration = 3600 * time.Second

// Fetcher performs the upstream METAR call for a batch of station ids.
type Fetcher interface {
	FetchMetars(ids []string) ([]Metar, error)
}

type blacklistEntry struct {
	setAt    time.Time
	duration time.Duration
}

func (b blacklistEntry) expired(now time.Time) bool {
	return now.After(b.setAt.Add(b.duration))
}

// Manager is the station-keyed weather cache. The cache and blacklist
// carry independent locks; Preload and Get may run concurrently.
type Manager struct {
	ttl     time.Duration
	fetcher Fetcher
	log     *logrus.Logger
	now     func() time.Time

	mu    sync.RWMutex
	cache map[string]fixed.Weather

	blmu      sync.RWMutex
	blacklist map[string]blacklistEntry

	apiRequests atomic.Int64
}

// NewManager builds a cache with the given per-station TTL.
func NewManager(ttl time.Duration, fetcher Fetcher, log *logrus.Logger) *Manager {
	return &Manager{
		ttl:       ttl,
		fetcher:   fetcher,
		log:       log,
		now:       time.Now,
		cache:     make(map[string]fixed.Weather),
		blacklist: make(map[string]blacklistEntry),
	}
}

// RequestCount returns the number of upstream API calls made so far.
func (m *Manager) RequestCount() int64 {
	return m.apiRequests.Load()
}

func (m *Manager) isBlacklisted(station string) bool {
	m.blmu.RLock()
	defer m.blmu.RUnlock()
	entry, ok := m.blacklist[station]
	return ok && !entry.expired(m.now())
}

// markFailed creates or doubles the blacklist entry for station.
func (m *Manager) markFailed(station string) {
	m.blmu.Lock()
	defer m.blmu.Unlock()
	entry, ok := m.blacklist[station]
	if ok {
		entry = blacklistEntry{setAt: m.now(), duration: entry.duration * 2}
	} else {
		entry = blacklistEntry{setAt: m.now(), duration: initialBlacklistDuration}
	}
	m.log.WithFields(logrus.Fields{"station": station, "duration": entry.duration}).
		Debug("weather: blacklisting station")
	m.blacklist[station] = entry
}

func (m *Manager) cachedFresh(station string) (fixed.Weather, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wx, ok := m.cache[station]
	if !ok {
		return fixed.Weather{}, false
	}
	age := m.now().Sub(time.UnixMilli(wx.ObservedAt))
	if age > m.ttl {
		return fixed.Weather{}, false
	}
	return wx, true
}

// Preload removes stations that are blacklisted or currently fresh,
// then fetches the remainder in a single upstream call. Failures are
// logged and swallowed; Get's single-station path owns blacklisting.
func (m *Manager) Preload(stations []string) {
	var pending []string
	for _, station := range stations {
		if m.isBlacklisted(station) {
			continue
		}
		if _, fresh := m.cachedFresh(station); fresh {
			continue
		}
		pending = append(pending, station)
	}
	if len(pending) == 0 {
		return
	}

	m.log.WithField("stations", len(pending)).Info("weather: preloading")
	m.apiRequests.Add(1)
	metars, err := m.fetcher.FetchMetars(pending)
	if err != nil {
		m.log.WithError(err).Error("weather: preload fetch failed")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, metar := range metars {
		m.cache[metar.ICAOID] = metar.ToWeather()
	}
}

// Get returns the cached observation if fresh, otherwise performs a
// single-station fetch. An empty result or API failure creates or
// doubles the station's blacklist entry.
func (m *Manager) Get(station string) (fixed.Weather, bool) {
	if wx, ok := m.cachedFresh(station); ok {
		return wx, true
	}
	if m.isBlacklisted(station) {
		return fixed.Weather{}, false
	}

	m.log.WithField("station", station).Debug("weather: fetching from remote api")
	m.apiRequests.Add(1)
	metars, err := m.fetcher.FetchMetars([]string{station})
	if err != nil {
		m.log.WithError(err).WithField("station", station).Error("weather: fetch failed")
		m.markFailed(station)
		return fixed.Weather{}, false
	}
	if len(metars) == 0 {
		m.log.WithField("station", station).Debug("weather: empty result")
		m.markFailed(station)
		return fixed.Weather{}, false
	}

	wx := metars[0].ToWeather()
	m.mu.Lock()
	m.cache[station] = wx
	m.mu.Unlock()
	return wx, true
}

// Run sweeps the cache on the given period, preloading every entry
// whose TTL has elapsed, until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, sweepPeriod time.Duration) {
	m.log.Info("weather: starting update loop")
	ticker := time.NewTicker(sweepPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired := m.expiredStations()
			if len(expired) > 0 {
				m.log.WithField("stations", len(expired)).Debug("weather: renewing expired entries")
				m.Preload(expired)
			}
		}
	}
}

func (m *Manager) expiredStations() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var expired []string
	now := m.now()
	for station, wx := range m.cache {
		if now.Sub(time.UnixMilli(wx.ObservedAt)) >= m.ttl {
			expired = append(expired, station)
		}
	}
	return expired
}
