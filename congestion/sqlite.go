package congestion

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

// SQLite-backed Store. One row per (trip_id, stop_sequence).
type SQLiteStore struct {
	db *sql.DB

	TimeNow func() time.Time
}

func NewSQLiteStore(cfg ...SQLiteConfig) (*SQLiteStore, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		sourceName = directory + "/congestion.db"
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS congestion (
    trip_id TEXT NOT NULL,
    stop_sequence INTEGER NOT NULL,
    congestion_sum INTEGER NOT NULL,
    observation_count INTEGER NOT NULL,
    last_updated TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL,
PRIMARY KEY (trip_id, stop_sequence)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating congestion table: %w", err)
	}

	return &SQLiteStore{db: db, TimeNow: time.Now}, nil
}

func (s *SQLiteStore) Record(key Key, occupancy int) error {
	now := s.TimeNow().UTC()

	// Read-modify-write. Eventual-consistency drift against other
	// processes is accepted.
	var sum, count int64
	var expiresAt time.Time
	err := s.db.QueryRow(`
SELECT congestion_sum, observation_count, expires_at
FROM congestion
WHERE trip_id = ? AND stop_sequence = ?`,
		key.TripID, key.StopSequence,
	).Scan(&sum, &count, &expiresAt)
	if err == sql.ErrNoRows || (err == nil && now.After(expiresAt)) {
		sum, count = 0, 0
	} else if err != nil {
		return fmt.Errorf("reading record: %w", err)
	}

	sum += int64(occupancy)
	count++

	_, err = s.db.Exec(`
INSERT INTO congestion (trip_id, stop_sequence, congestion_sum, observation_count, last_updated, expires_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (trip_id, stop_sequence) DO UPDATE SET
    congestion_sum = excluded.congestion_sum,
    observation_count = excluded.observation_count,
    last_updated = excluded.last_updated,
    expires_at = excluded.expires_at`,
		key.TripID, key.StopSequence, sum, count, now, now.Add(RecordTTL),
	)
	if err != nil {
		return fmt.Errorf("writing record: %w", err)
	}

	return nil
}

func (s *SQLiteStore) AverageFor(key Key) (float64, bool, error) {
	averages, err := s.BatchAverages([]Key{key})
	if err != nil {
		return 0, false, err
	}
	avg, ok := averages[key]
	return avg, ok, nil
}

func (s *SQLiteStore) BatchAverages(keys []Key) (map[Key]float64, error) {
	averages := map[Key]float64{}
	now := s.TimeNow().UTC()

	for _, chunk := range chunkKeys(keys) {
		conditions := make([]string, 0, len(chunk))
		params := []interface{}{}
		for _, key := range chunk {
			conditions = append(conditions, "(trip_id = ? AND stop_sequence = ?)")
			params = append(params, key.TripID, key.StopSequence)
		}
		params = append(params, now)

		rows, err := s.db.Query(fmt.Sprintf(`
SELECT trip_id, stop_sequence, congestion_sum, observation_count
FROM congestion
WHERE (%s) AND expires_at > ? AND observation_count > 0`,
			strings.Join(conditions, " OR ")), params...)
		if err != nil {
			return nil, fmt.Errorf("querying records: %w", err)
		}

		for rows.Next() {
			var key Key
			var sum, count int64
			if err := rows.Scan(&key.TripID, &key.StopSequence, &sum, &count); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning record: %w", err)
			}
			averages[key] = round2(sum, count)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("reading records: %w", err)
		}
		rows.Close()
	}

	return averages, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
