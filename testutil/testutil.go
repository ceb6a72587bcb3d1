package testutil

// Helpers and fixture data for tests.

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"buscom.dev/transit/model"
	"buscom.dev/transit/parse"
)

// BuildZip packs files (name -> lines) into an in-memory zip.
func BuildZip(
	t testing.TB,
	files map[string][]string,
) []byte {

	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for filename, content := range files {
		f, err := w.Create(filename)
		require.NoError(t, err)
		_, err = f.Write([]byte(strings.Join(content, "\n")))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

// BuildStaticZip fills in blank-but-valid versions of any required
// file the caller omitted, then packs the lot.
func BuildStaticZip(
	t testing.TB,
	files map[string][]string,
) []byte {

	if files["stops.txt"] == nil {
		files["stops.txt"] = []string{"stop_id,stop_name,stop_lat,stop_lon"}
	}
	if files["stop_times.txt"] == nil {
		files["stop_times.txt"] = []string{"trip_id,stop_id,stop_sequence,departure_time"}
	}
	if files["trips.txt"] == nil {
		files["trips.txt"] = []string{"trip_id,route_id,service_id"}
	}
	if files["routes.txt"] == nil {
		files["routes.txt"] = []string{"route_id"}
	}
	if files["calendar.txt"] == nil {
		files["calendar.txt"] = []string{"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date"}
	}

	return BuildZip(t, files)
}

// LoadStatic parses a fixture zip, failing the test on error.
func LoadStatic(t testing.TB, files map[string][]string) *model.StaticData {
	data, err := parse.ParseStatic(BuildStaticZip(t, files))
	require.NoError(t, err)
	return data
}

// SimpleStatic is a small two-route network used across tests:
//
//	t1 (route r1, service wk): s1 07:55 -> s2 08:05 -> s3 08:15
//	t2 (route r1, service wk): s1 08:05 -> s2 08:15 -> s3 08:25
//	t3 (route r2, service wk): s2 24:10 -> s3 24:20
//
// Service wk runs every day of 2026.
func SimpleStatic(t testing.TB) *model.StaticData {
	return LoadStatic(t, map[string][]string{
		"stops.txt": {
			"stop_id,stop_name,stop_lat,stop_lon",
			"s1,市役所前,35.44,139.63",
			"s2,中央駅,35.45,139.64",
			"s3,港町,35.46,139.65",
		},
		"routes.txt": {
			"route_id,route_short_name,route_long_name",
			"r1,01,本町線",
			"r2,02,",
		},
		"trips.txt": {
			"trip_id,route_id,service_id,trip_headsign",
			"t1,r1,wk,港町行",
			"t2,r1,wk,港町行",
			"t3,r2,wk,港町行",
		},
		"stop_times.txt": {
			"trip_id,stop_id,stop_sequence,departure_time,pickup_type",
			"t1,s1,1,07:55:00,0",
			"t1,s2,2,08:05:00,0",
			"t1,s3,3,08:15:00,1",
			"t2,s1,1,08:05:00,0",
			"t2,s2,2,08:15:00,0",
			"t2,s3,3,08:25:00,1",
			"t3,s2,1,24:10:00,0",
			"t3,s3,2,24:20:00,1",
		},
		"calendar.txt": {
			"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date",
			"wk,1,1,1,1,1,1,1,20260101,20261231",
		},
		"translations.txt": {
			"language,field_value,translation",
			"ja-Hrkt,市役所前,シヤクショマエ",
			"ja-Hrkt,中央駅,チュウオウエキ",
			"ja-Hrkt,港町,ミナトチョウ",
		},
	})
}
