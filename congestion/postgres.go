package congestion

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Postgres-backed Store for multi-node deployments. The table name is
// configurable so operators can share a database while keeping
// separate accumulators.
type PSQLStore struct {
	db    *sql.DB
	table string

	TimeNow func() time.Time
}

func NewPSQLStore(connStr string, table string, clearDB bool) (*PSQLStore, error) {
	if table == "" {
		table = "congestion"
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if clearDB {
		_, err = db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, table))
		if err != nil {
			return nil, fmt.Errorf("clearing db: %w", err)
		}
	}

	_, err = db.Exec(fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    trip_id TEXT NOT NULL,
    stop_sequence INTEGER NOT NULL,
    congestion_sum BIGINT NOT NULL,
    observation_count BIGINT NOT NULL,
    last_updated TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
PRIMARY KEY (trip_id, stop_sequence)
);`, table))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating congestion table: %w", err)
	}

	return &PSQLStore{db: db, table: table, TimeNow: time.Now}, nil
}

func (s *PSQLStore) Record(key Key, occupancy int) error {
	now := s.TimeNow().UTC()

	var sum, count int64
	var expiresAt time.Time
	err := s.db.QueryRow(fmt.Sprintf(`
SELECT congestion_sum, observation_count, expires_at
FROM %s
WHERE trip_id = $1 AND stop_sequence = $2`, s.table),
		key.TripID, key.StopSequence,
	).Scan(&sum, &count, &expiresAt)
	if err == sql.ErrNoRows || (err == nil && now.After(expiresAt)) {
		sum, count = 0, 0
	} else if err != nil {
		return fmt.Errorf("reading record: %w", err)
	}

	sum += int64(occupancy)
	count++

	_, err = s.db.Exec(fmt.Sprintf(`
INSERT INTO %s (trip_id, stop_sequence, congestion_sum, observation_count, last_updated, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (trip_id, stop_sequence) DO UPDATE SET
    congestion_sum = EXCLUDED.congestion_sum,
    observation_count = EXCLUDED.observation_count,
    last_updated = EXCLUDED.last_updated,
    expires_at = EXCLUDED.expires_at`, s.table),
		key.TripID, key.StopSequence, sum, count, now, now.Add(RecordTTL),
	)
	if err != nil {
		return fmt.Errorf("writing record: %w", err)
	}

	return nil
}

func (s *PSQLStore) AverageFor(key Key) (float64, bool, error) {
	averages, err := s.BatchAverages([]Key{key})
	if err != nil {
		return 0, false, err
	}
	avg, ok := averages[key]
	return avg, ok, nil
}

func (s *PSQLStore) BatchAverages(keys []Key) (map[Key]float64, error) {
	averages := map[Key]float64{}
	now := s.TimeNow().UTC()

	for _, chunk := range chunkKeys(keys) {
		conditions := make([]string, 0, len(chunk))
		params := []interface{}{}
		for _, key := range chunk {
			conditions = append(conditions, fmt.Sprintf("(trip_id = $%d AND stop_sequence = $%d)", len(params)+1, len(params)+2))
			params = append(params, key.TripID, key.StopSequence)
		}
		params = append(params, now)

		rows, err := s.db.Query(fmt.Sprintf(`
SELECT trip_id, stop_sequence, congestion_sum, observation_count
FROM %s
WHERE (%s) AND expires_at > $%d AND observation_count > 0`,
			s.table, strings.Join(conditions, " OR "), len(params)), params...)
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

func (s *PSQLStore) Close() error {
	return s.db.Close()
}
