package transit

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"go.uber.org/zap"

	"buscom.dev/transit/congestion"
	"buscom.dev/transit/fetch"
	"buscom.dev/transit/model"
	"buscom.dev/transit/operator"
	"buscom.dev/transit/parse"
	"buscom.dev/transit/runner"
	"buscom.dev/transit/snapshot"
)

// NoCongestionData marks a board entry with no usable crowding
// history. Kept distinct from any real average, which is always >= 0.
const NoCongestionData = -2

// OperatorResources bundles one operator's configuration with the
// stores backing it. The caller owns store construction so tests and
// single-node deployments can use the in-memory variants.
type OperatorResources struct {
	Config     operator.Config
	Snapshots  snapshot.Store
	Congestion congestion.Store
}

type operatorState struct {
	cfg       operator.Config
	snapshots snapshot.Store
	recorder  *congestion.Recorder
	loc       *time.Location
}

// Manager owns all per-operator state and implements the feed tasks
// and query operations on top of it. All methods are safe for
// concurrent use; mutation happens through the snapshot and
// congestion stores, which synchronize internally.
type Manager struct {
	operators  map[string]*operatorState
	downloader fetch.Downloader
	logger     *zap.Logger

	TimeNow func() time.Time
}

func NewManager(resources []OperatorResources, dl fetch.Downloader, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		operators:  map[string]*operatorState{},
		downloader: dl,
		logger:     logger,
		TimeNow:    time.Now,
	}

	for _, res := range resources {
		if _, exists := m.operators[res.Config.Name]; exists {
			return nil, fmt.Errorf("duplicate operator %q", res.Config.Name)
		}

		loc, err := time.LoadLocation(res.Config.Timezone)
		if err != nil {
			return nil, fmt.Errorf("operator %s: loading timezone: %w", res.Config.Name, err)
		}

		m.operators[res.Config.Name] = &operatorState{
			cfg:       res.Config,
			snapshots: res.Snapshots,
			recorder: &congestion.Recorder{
				Store:  res.Congestion,
				Dedupe: congestion.NewDedupeSet(),
			},
			loc: loc,
		}
	}

	return m, nil
}

// Operators returns the configured operator names, sorted.
func (m *Manager) Operators() []string {
	names := make([]string, 0, len(m.operators))
	for name := range m.operators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownOperatorError is returned by query and task methods when the
// named operator is not configured.
type UnknownOperatorError struct {
	Name string
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("unknown operator %q", e.Name)
}

func (m *Manager) state(name string) (*operatorState, error) {
	st, ok := m.operators[name]
	if !ok {
		return nil, &UnknownOperatorError{Name: name}
	}
	return st, nil
}

// Init fetches and rebuilds an operator's schedule snapshot for the
// current service day, then clears the crowding dedupe set so the new
// day's observations can be recorded. On any failure the previous
// snapshot stays in place and the dedupe set is left untouched.
func (m *Manager) Init(ctx context.Context, name string) error {
	st, err := m.state(name)
	if err != nil {
		return err
	}

	day := m.TimeNow().In(st.loc)
	feedURL, err := scheduleURL(st.cfg, day)
	if err != nil {
		return fmt.Errorf("building schedule url: %w", err)
	}

	buf, err := m.downloader.Get(ctx, feedURL, nil, fetch.GetOptions{
		MaxSize:  fetch.StaticMaxSize,
		Cache:    true,
		CacheTTL: 20 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("downloading schedule: %w", err)
	}

	data, err := parse.ParseStatic(buf)
	if err != nil {
		return fmt.Errorf("parsing schedule: %w", err)
	}

	snap := &snapshot.Snapshot{
		Static:       data,
		Index:        BuildIndex(data, st.cfg.Language),
		TripEndTimes: BuildTripEndTimes(data.StopTimes),
		BuiltAt:      m.TimeNow(),
	}

	if err := st.snapshots.Replace(snap); err != nil {
		return fmt.Errorf("storing snapshot: %w", err)
	}

	st.recorder.Dedupe.Reset()

	m.logger.Info("schedule snapshot rebuilt",
		zap.String("operator", name),
		zap.String("service_date", day.Format("2006-01-02")),
		zap.Int("stops", len(data.Stops)),
		zap.Int("trips", len(data.Trips)),
	)

	return nil
}

// Poll fetches the operator's realtime feeds, retains the raw bytes
// for query-time fusion, and folds fresh occupancy observations into
// the crowding accumulator. Trip updates are optional; vehicles are
// not.
func (m *Manager) Poll(ctx context.Context, name string) error {
	st, err := m.state(name)
	if err != nil {
		return err
	}

	blob, err := m.downloader.Get(ctx, fetch.WithToken(st.cfg.VehiclePositionsURL, st.cfg.AccessToken), nil, fetch.GetOptions{
		MaxSize: fetch.RealtimeMaxSize,
	})
	if err != nil {
		return fmt.Errorf("downloading vehicle positions: %w", err)
	}

	positions, err := parse.ParseVehiclePositions(blob)
	if err != nil {
		return err
	}

	// Queries always see the newest feed, even when the snapshot
	// below is missing and no recording happens.
	if err := st.snapshots.SetVehiclePositions(blob); err != nil {
		return fmt.Errorf("storing vehicle positions: %w", err)
	}

	if snap, err := st.snapshots.Latest(); err == nil {
		m.recordOccupancies(name, st, snap, positions)
	}

	if st.cfg.TripUpdatesURL != "" {
		blob, err := m.downloader.Get(ctx, fetch.WithToken(st.cfg.TripUpdatesURL, st.cfg.AccessToken), nil, fetch.GetOptions{
			MaxSize: fetch.RealtimeMaxSize,
		})
		if err != nil {
			return fmt.Errorf("downloading trip updates: %w", err)
		}
		// Validate before storing so queries keep fusing the
		// last good bytes when a poll brings back garbage.
		if _, err := parse.ParseTripUpdates(blob); err != nil {
			return err
		}
		if err := st.snapshots.SetTripUpdates(blob); err != nil {
			return fmt.Errorf("storing trip updates: %w", err)
		}
	}

	return nil
}

func (m *Manager) recordOccupancies(name string, st *operatorState, snap *snapshot.Snapshot, positions []parse.VehiclePosition) {
	nowSvc := serviceDaySeconds(m.TimeNow().In(st.loc))

	recorded := 0
	for _, pos := range positions {
		// A vehicle dwelling at a stop reports the load of the
		// previous hop, not the hop it is about to serve.
		if pos.StoppedAt || !pos.OccupancySet {
			continue
		}

		// The averages assume the standard ordinal scale; an
		// out-of-range value would poison them.
		if pos.Occupancy < model.OccupancyEmpty || pos.Occupancy > model.OccupancyNotAccepting {
			continue
		}

		end, known := snap.TripEndTimes[pos.TripID]
		if !known || nowSvc > end {
			continue
		}

		key := congestion.Key{TripID: pos.TripID, StopSequence: pos.StopSequence}
		if err := st.recorder.Record(key, pos.Occupancy); err != nil {
			m.logger.Warn("recording occupancy",
				zap.String("operator", name),
				zap.String("trip_id", pos.TripID),
				zap.Error(err),
			)
			continue
		}
		recorded++
	}

	if recorded > 0 {
		m.logger.Debug("occupancy observations recorded",
			zap.String("operator", name),
			zap.Int("count", recorded),
		)
	}
}

// Search resolves a free-text stop query against the operator's
// current snapshot.
func (m *Manager) Search(name string, query string) ([]StopResult, error) {
	st, err := m.state(name)
	if err != nil {
		return nil, err
	}
	snap, err := st.snapshots.Latest()
	if err != nil {
		return nil, err
	}
	return Search(snap.Index, query), nil
}

// BoardEntry is one departure-board row with its historical crowding
// average attached. Congestion is NoCongestionData when the
// accumulator has nothing for the row.
type BoardEntry struct {
	Departure
	Congestion float64
}

// DepartureBoard computes today's remaining-and-past departure list
// for a stop and annotates each row with the stored crowding average.
func (m *Manager) DepartureBoard(name string, stopID string) ([]BoardEntry, error) {
	st, err := m.state(name)
	if err != nil {
		return nil, err
	}
	snap, err := st.snapshots.Latest()
	if err != nil {
		return nil, err
	}

	departures := Departures(snap.Static, stopID, m.TimeNow().In(st.loc))

	keys := make([]congestion.Key, len(departures))
	for i, dep := range departures {
		keys[i] = congestion.Key{TripID: dep.TripID, StopSequence: dep.StopSequence}
	}

	averages, err := st.recorder.Store.BatchAverages(keys)
	if err != nil {
		return nil, fmt.Errorf("reading congestion averages: %w", err)
	}

	board := make([]BoardEntry, len(departures))
	for i, dep := range departures {
		entry := BoardEntry{Departure: dep, Congestion: NoCongestionData}
		if avg, ok := averages[keys[i]]; ok {
			entry.Congestion = avg
		}
		board[i] = entry
	}

	return board, nil
}

// RealtimeStatus fuses the operator's retained realtime feeds into
// per-trip live statuses for the requested trips, as seen from stopID.
func (m *Manager) RealtimeStatus(name string, tripIDs []string, stopID string) (map[string]TripStatus, error) {
	st, err := m.state(name)
	if err != nil {
		return nil, err
	}
	snap, err := st.snapshots.Latest()
	if err != nil {
		return nil, err
	}
	feeds, err := st.snapshots.Feeds()
	if err != nil {
		return nil, err
	}
	return Fuse(tripIDs, stopID, feeds, snap.Index, st.loc)
}

// DailyTasks returns one snapshot-rebuild task per operator.
func (m *Manager) DailyTasks() []runner.Task {
	return m.tasks("refresh", m.Init)
}

// RealtimeTasks returns one feed-poll task per operator.
func (m *Manager) RealtimeTasks() []runner.Task {
	return m.tasks("poll", m.Poll)
}

func (m *Manager) tasks(kind string, run func(context.Context, string) error) []runner.Task {
	tasks := make([]runner.Task, 0, len(m.operators))
	for _, name := range m.Operators() {
		name := name
		tasks = append(tasks, runner.Task{
			Name: name + "/" + kind,
			Run: func(ctx context.Context) error {
				return run(ctx, name)
			},
		})
	}
	return tasks
}

func scheduleURL(cfg operator.Config, day time.Time) (string, error) {
	u, err := url.Parse(cfg.StaticURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("date", day.Format("20060102"))
	u.RawQuery = q.Encode()
	return fetch.WithToken(u.String(), cfg.AccessToken), nil
}

// serviceDaySeconds maps a wall-clock instant to seconds on the GTFS
// service-day clock, where times past midnight run beyond 24:00.
// Polls before 04:00 count toward the previous service day.
func serviceDaySeconds(t time.Time) int {
	secs := t.Hour()*3600 + t.Minute()*60 + t.Second()
	if t.Hour() < 4 {
		secs += 24 * 3600
	}
	return secs
}
