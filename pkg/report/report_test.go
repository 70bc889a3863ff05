package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleReport(t *testing.T) {
	b := New()
	b.Line(OK, "gateway reachable")
	b.Line(STATS, "12 devices online")

	text, err := b.Build()
	require.NoError(t, err)
	assert.Contains(t, text, "[OK] gateway reachable")
	assert.Contains(t, text, "[STATS] 12 devices online")
}

func TestBuilder_VerificationCheckpointInInsertionOrder(t *testing.T) {
	b := New()
	b.Line(STATS, "device summary")
	b.FactInt("total_devices", 12)
	b.FactInt("online", 10)
	b.FactInt("offline", 2)

	text, err := b.Build()
	require.NoError(t, err)

	checkpointIdx := strings.Index(text, checkpointMarker)
	require.GreaterOrEqual(t, checkpointIdx, 0)

	after := text[checkpointIdx:]
	totalIdx := strings.Index(after, "total_devices")
	onlineIdx := strings.Index(after, "online")
	offlineIdx := strings.Index(after, "offline")

	assert.True(t, totalIdx < onlineIdx)
	assert.True(t, onlineIdx < offlineIdx)
}

func TestBuilder_InconsistentTotalErrors(t *testing.T) {
	b := New()
	b.Line(STATS, "device summary")
	b.CheckTotal("total_devices", 12, 10, 1) // 10 + 1 != 12

	_, err := b.Build()
	require.Error(t, err)

	var inconsistent *ErrInconsistentTotal
	require.ErrorAs(t, err, &inconsistent)
}

func TestBuilder_ConsistentTotalPasses(t *testing.T) {
	b := New()
	b.CheckTotal("total_devices", 12, 10, 2)

	_, err := b.Build()
	require.NoError(t, err)
}

func TestBuilder_TruncatesOversizedListSection(t *testing.T) {
	b := New()

	items := make([]string, 2000)
	for i := range items {
		items[i] = strings.Repeat("x", 20)
	}

	b.ListSection(DEV, "devices", items)

	text, err := b.Build()
	require.NoError(t, err)
	assert.LessOrEqual(t, len(text), maxSize)
	assert.Contains(t, text, "Truncated")
	assert.Contains(t, text, "more")
}

func TestBytes(t *testing.T) {
	assert.Equal(t, "512B", Bytes(512))
	assert.Equal(t, "1.0KiB", Bytes(1024))
	assert.Equal(t, "1.5KiB", Bytes(1536))
	assert.Equal(t, "1.0MiB", Bytes(1024*1024))
}

func TestUptime(t *testing.T) {
	assert.Equal(t, "1d 1h 1m", Uptime(90061))
	assert.Equal(t, "1h 1m", Uptime(3661))
	assert.Equal(t, "0m", Uptime(30))
	assert.Equal(t, "2d", Uptime(172800))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "42.5%", Percent(42.5))
	assert.Equal(t, "100.0%", Percent(100))
	assert.Equal(t, "0.0%", Percent(0))
}
