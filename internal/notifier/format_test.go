package notifier_test

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/feral-file/ff-transfer-alert/internal/adapter"
	"github.com/feral-file/ff-transfer-alert/internal/mocks"
	"github.com/feral-file/ff-transfer-alert/internal/notifier"
)

func TestFormatter_FormatAlert(t *testing.T) {
	tests := []struct {
		name       string
		term       string
		channelRef string
		timezone   string
		token      string
		ts         int64
		expected   string
	}{
		{
			name:     "defaults render Kyiv time",
			token:    "SuperKey",
			ts:       1700000000,
			expected: "New KEY detected! Name: SuperKey Date: 15.11.2023, 00:13:20 Link: @cryptohornettg",
		},
		{
			name:       "summer time offset",
			term:       "KEY",
			channelRef: "@cryptohornettg",
			timezone:   "Europe/Kyiv",
			token:      "MONKEY",
			ts:         1720000000, // 2024-07-03 09:46:40 UTC
			expected:   "New KEY detected! Name: MONKEY Date: 03.07.2024, 12:46:40 Link: @cryptohornettg",
		},
		{
			name:       "term and channel follow configuration",
			term:       "DOGE",
			channelRef: "@alerts",
			timezone:   "UTC",
			token:      "Unknown DOGE",
			ts:         0,
			expected:   "New DOGE detected! Name: Unknown DOGE Date: 01.01.1970, 00:00:00 Link: @alerts",
		},
		{
			name:     "unknown zone falls back to RFC 3339 UTC",
			timezone: "Mars/Olympus_Mons",
			token:    "SuperKey",
			ts:       1700000000,
			expected: "New KEY detected! Name: SuperKey Date: 2023-11-14T22:13:20Z Link: @cryptohornettg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := notifier.NewFormatter(adapter.NewClock(), tt.term, tt.channelRef, tt.timezone)
			assert.Equal(t, tt.expected, f.FormatAlert(tt.token, tt.ts))
		})
	}
}

func TestFormatter_FormatAlertUsesClock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Unix(int64(1700000000), int64(0)).Return(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))

	f := notifier.NewFormatter(clock, "KEY", "@cryptohornettg", "Europe/Kyiv")

	assert.Equal(t,
		"New KEY detected! Name: SuperKey Date: 01.01.2024, 12:00:00 Link: @cryptohornettg",
		f.FormatAlert("SuperKey", 1700000000))
}
