package operator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
operators:
  - name: yokohama
    staticURL: https://api.example.com/static
    vehiclePositionsURL: https://api.example.com/vp
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Congestion.Driver)
	assert.Equal(t, 4, cfg.Schedule.InitHour)
	assert.Equal(t, 30, cfg.Schedule.InitMinute)
	assert.Equal(t, 15, cfg.Schedule.RealtimeSeconds)
	assert.Equal(t, 25, cfg.Schedule.RealtimeTimeoutS)
	assert.Equal(t, 300, cfg.Schedule.DailyTimeoutS)

	require.Len(t, cfg.Operators, 1)
	op := cfg.Operators[0]
	assert.Equal(t, "Asia/Tokyo", op.Timezone)
	assert.Equal(t, "ja-Hrkt", op.Language)
	assert.Equal(t, "congestion_yokohama", op.CongestionTable)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_BUS_TOKEN", "sekrit")

	path := writeConfig(t, `
operators:
  - name: yokohama
    staticURL: https://api.example.com/static
    vehiclePositionsURL: https://api.example.com/vp
    accessToken: ${TEST_BUS_TOKEN}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sekrit", cfg.Operators[0].AccessToken)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  allowedOrigins:
    - https://app.example.com
congestion:
  driver: postgres
  dsn: postgres://localhost/bus
schedule:
  initHour: 3
  initMinute: 45
operators:
  - name: yokohama
    staticURL: https://api.example.com/yk/static
    vehiclePositionsURL: https://api.example.com/yk/vp
    tripUpdatesURL: https://api.example.com/yk/tu
    congestionTable: yk_congestion
  - name: kawasaki
    staticURL: https://api.example.com/kw/static
    vehiclePositionsURL: https://api.example.com/kw/vp
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Congestion.Driver)
	assert.Equal(t, 3, cfg.Schedule.InitHour)
	assert.Equal(t, 45, cfg.Schedule.InitMinute)

	require.Len(t, cfg.Operators, 2)
	assert.Equal(t, "yk_congestion", cfg.Operators[0].CongestionTable)
	assert.Equal(t, "congestion_kawasaki", cfg.Operators[1].CongestionTable)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	for name, content := range map[string]string{
		"no_operators": `
server:
  port: 8080
`,
		"missing_name": `
operators:
  - staticURL: https://api.example.com/static
    vehiclePositionsURL: https://api.example.com/vp
`,
		"bad_url": `
operators:
  - name: yokohama
    staticURL: not a url
    vehiclePositionsURL: https://api.example.com/vp
`,
		"bad_driver": `
congestion:
  driver: cassandra
operators:
  - name: yokohama
    staticURL: https://api.example.com/static
    vehiclePositionsURL: https://api.example.com/vp
`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
