package transit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buscom.dev/transit"
	"buscom.dev/transit/testutil"
)

func TestSearchByName(t *testing.T) {
	data := testutil.SimpleStatic(t)
	idx := transit.BuildIndex(data, transit.PhoneticLanguage)

	results := transit.Search(idx, "市役所")
	require.Len(t, results, 1)
	assert.Equal(t, "s1", results[0].StopID)
	assert.Equal(t, "市役所前", results[0].Name)
	assert.Equal(t, 35.44, results[0].Lat)

	require.Len(t, results[0].Routes, 1)
	assert.Equal(t, "本町線", results[0].Routes[0].RouteName)
	assert.Equal(t, "港町行", results[0].Routes[0].Headsign)
}

func TestSearchPhonetic(t *testing.T) {
	data := testutil.SimpleStatic(t)
	idx := transit.BuildIndex(data, transit.PhoneticLanguage)

	// Hiragana input matches the katakana reading.
	results := transit.Search(idx, "しやくしょまえ")
	require.Len(t, results, 1)
	assert.Equal(t, "s1", results[0].StopID)

	// Half-width katakana folds to the same reading.
	results = transit.Search(idx, "ｼﾔｸｼｮﾏｴ")
	require.Len(t, results, 1)
	assert.Equal(t, "s1", results[0].StopID)
}

func TestSearchSubstring(t *testing.T) {
	data := testutil.SimpleStatic(t)
	idx := transit.BuildIndex(data, transit.PhoneticLanguage)

	results := transit.Search(idx, "駅")
	require.Len(t, results, 1)
	assert.Equal(t, "s2", results[0].StopID)
}

func TestSearchTerminalOnlyStopOmitted(t *testing.T) {
	data := testutil.SimpleStatic(t)
	idx := transit.BuildIndex(data, transit.PhoneticLanguage)

	// s3 matches by name but no trip is boardable there.
	assert.Empty(t, transit.Search(idx, "港町"))
}

func TestSearchNoMatch(t *testing.T) {
	data := testutil.SimpleStatic(t)
	idx := transit.BuildIndex(data, transit.PhoneticLanguage)

	assert.Empty(t, transit.Search(idx, "存在しない"))
	assert.Empty(t, transit.Search(idx, ""))
}

func TestSearchDeterministicOrder(t *testing.T) {
	data := testutil.LoadStatic(t, map[string][]string{
		"stops.txt": {
			"stop_id,stop_name,stop_lat,stop_lon",
			"b,公園前,1,1",
			"a,公園北,2,2",
			"c,公園南,3,3",
			"z,公園東,4,4",
		},
		"trips.txt": {
			"trip_id,route_id,service_id",
			"t1,r1,wk",
		},
		"routes.txt": {
			"route_id,route_short_name",
			"r1,01",
		},
		"stop_times.txt": {
			"trip_id,stop_id,stop_sequence,departure_time,pickup_type",
			"t1,b,1,09:00:00,0",
			"t1,a,2,09:05:00,0",
			"t1,c,3,09:10:00,0",
			"t1,z,4,09:15:00,0",
		},
		"calendar.txt": {
			"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date",
			"wk,1,1,1,1,1,1,1,20260101,20261231",
		},
	})
	idx := transit.BuildIndex(data, transit.PhoneticLanguage)

	for i := 0; i < 5; i++ {
		results := transit.Search(idx, "公園")
		// z is the terminal, so three matches, sorted by stop id.
		require.Len(t, results, 3)
		assert.Equal(t, "a", results[0].StopID)
		assert.Equal(t, "b", results[1].StopID)
		assert.Equal(t, "c", results[2].StopID)
	}
}
