package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskly/internal/config"
	"taskly/internal/service"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"bot", "serve", "recommend", "token"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestScheduleDigest(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want int
	}{
		{"daily time wins", config.Config{DigestTime: "08:30", ReportInterval: time.Hour}, 1},
		{"interval", config.Config{ReportInterval: 5 * time.Hour}, 1},
		{"disabled", config.Config{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := service.NewSchedulerService(time.UTC)
			require.NoError(t, scheduleDigest(scheduler, tt.cfg, nil))
			assert.Equal(t, tt.want, scheduler.Entries())
		})
	}
}
