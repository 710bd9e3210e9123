package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waterwatch/lifedrop/internal/config"
	"github.com/waterwatch/lifedrop/pkg/core/model"
)

func TestParseCommandLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected []string
		wantErr  bool
	}{
		{"plain", "vote abc up", []string{"vote", "abc", "up"}, false},
		{"double quotes", `createAlert "Park St" "123 Park St" --ttl 5`, []string{"createAlert", "Park St", "123 Park St", "--ttl", "5"}, false},
		{"single quotes", `comment abc 'still open'`, []string{"comment", "abc", "still open"}, false},
		{"empty quoted arg", `comment abc ""`, []string{"comment", "abc", ""}, false},
		{"extra spaces", "  listAlerts   --type  Shower ", []string{"listAlerts", "--type", "Shower"}, false},
		{"unclosed", `geocode "1 Main St`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := parseCommandLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, args)
		})
	}
}

func TestRemainingColor(t *testing.T) {
	tests := []struct {
		remaining time.Duration
		expected  string
	}{
		{2 * time.Hour, colorGreen},
		{31 * time.Minute, colorGreen},
		{30 * time.Minute, colorYellow},
		{6 * time.Minute, colorYellow},
		{5 * time.Minute, colorRed},
		{0, colorRed},
	}

	for _, tt := range tests {
		t.Run(tt.remaining.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, remainingColor(tt.remaining))
		})
	}
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "4m59s", formatRemaining(4*time.Minute+59*time.Second+500*time.Millisecond))
	assert.Equal(t, "2h05m", formatRemaining(2*time.Hour+5*time.Minute))
	assert.Equal(t, "0m00s", formatRemaining(0))
}

func TestExportFormat(t *testing.T) {
	format, err := exportFormat("reports.CSV")
	require.NoError(t, err)
	assert.Equal(t, "csv", format)

	format, err = exportFormat("out/reports.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", format)

	_, err = exportFormat("reports.pdf")
	assert.Error(t, err)
}

func TestResetFlags(t *testing.T) {
	cmd := SubmitReportCmd(&AppContext{})
	require.NoError(t, cmd.ParseFlags([]string{"--concern", "Foam on surface", "--concern", "Other", "--zipcode", "95112", "--used"}))

	concerns, _ := cmd.Flags().GetStringArray("concern")
	assert.Equal(t, []string{"Foam on surface", "Other"}, concerns)

	resetFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--concern", "Trash nearby"}))

	concerns, _ = cmd.Flags().GetStringArray("concern")
	assert.Equal(t, []string{"Trash nearby"}, concerns)
	zipcode, _ := cmd.Flags().GetString("zipcode")
	assert.Equal(t, "", zipcode)
	assert.False(t, cmd.Flags().Changed("used"))
}

func TestGeneratorNotConfigured(t *testing.T) {
	app := &AppContext{}
	_, err := app.generator()
	assert.ErrorIs(t, err, errNoGenerator)

	cmd := GeocodeCmd(app)
	err = cmd.RunE(cmd, []string{"1 Main St"})
	assert.ErrorIs(t, err, errNoGeocoder)
}

func TestWaterCommandsRejectBadInput(t *testing.T) {
	app := &AppContext{Cfg: &config.Config{}}

	cmd := WaterTipCmd(app)
	require.NoError(t, cmd.ParseFlags([]string{"--clarity", "muddy"}))
	var verr *model.ValidationError
	require.ErrorAs(t, cmd.RunE(cmd, nil), &verr)
	assert.Equal(t, []string{"clarity"}, verr.Fields)

	cmd = WaterSourcesCmd(app)
	require.NoError(t, cmd.ParseFlags([]string{"--lat", "37.3"}))
	assert.EqualError(t, cmd.RunE(cmd, nil), "--lat and --lng must be given together")

	cmd = WaterSourcesCmd(app)
	require.NoError(t, cmd.ParseFlags([]string{"--address", "1 Main St"}))
	assert.ErrorIs(t, cmd.RunE(cmd, nil), errNoGeocoder)

	cmd = AskTipCmd(app)
	assert.ErrorIs(t, cmd.RunE(cmd, []string{"is", "rain", "safe?"}), errNoGenerator)
}
