package logs

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_AddLogUpdatesStats(t *testing.T) {
	s := New()

	s.AddLog(LogEntry{Level: "info", Message: "library opened", Module: "libctx"})
	s.AddLog(LogEntry{Level: "error", Message: "ffprobe failed", Module: "metadata"})

	stats := s.GetStats()
	assert.EqualValues(t, 2, stats.TotalLogs)
	assert.EqualValues(t, 1, stats.LogsByLevel["info"])
	assert.EqualValues(t, 1, stats.LogsByLevel["error"])
	assert.EqualValues(t, 1, stats.LogsByModule["metadata"])
	require.Len(t, stats.RecentErrors, 1)
	assert.Equal(t, "ffprobe failed", stats.RecentErrors[0].Message)
}

func TestService_GetRecentLogsRespectsLimit(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.AddLog(LogEntry{Level: "info", Message: "entry"})
	}

	assert.Len(t, s.GetRecentLogs(0), 5)
	assert.Len(t, s.GetRecentLogs(2), 2)
	assert.Len(t, s.GetRecentLogs(100), 5)
}

func TestService_SubscribeReceivesBroadcastLog(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := s.Subscribe(ctx)
	assert.Equal(t, 1, s.SubscriberCount())

	s.AddLog(LogEntry{Level: "warn", Message: "rescan gate failed"})

	select {
	case entry := <-sub.Events:
		assert.Equal(t, "rescan gate failed", entry.Message)
	default:
		t.Fatal("expected a broadcast log entry, got none")
	}

	s.Unsubscribe(sub.ID)
	assert.Equal(t, 0, s.SubscriberCount())
}

func TestService_WrapHandlerCapturesSlogRecords(t *testing.T) {
	s := New()
	base := slog.NewTextHandler(testWriter{}, nil)
	wrapped := s.WrapHandler(base)

	logger := slog.New(wrapped)
	logger.Info("ingest session sealed", slog.String("component", "ingest"))

	recent := s.GetRecentLogs(10)
	require.Len(t, recent, 1)
	assert.Equal(t, "ingest session sealed", recent[0].Message)
	assert.Equal(t, "ingest", recent[0].Module)
}

// testWriter discards bytes; only the captured LogEntry side effects matter.
type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }
