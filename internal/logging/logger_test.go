package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func resetForTest(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		_ = Initialize(config.LoggingConfig{})
	})
}

// TestCategoriesDisabledInProductionMode checks every logger is a no-op without debug_mode.
func TestCategoriesDisabledInProductionMode(t *testing.T) {
	resetForTest(t)
	require.NoError(t, Initialize(config.LoggingConfig{DebugMode: false}))

	assert.False(t, IsDebugMode())
	assert.False(t, IsCategoryEnabled(CategoryRouter))

	// Must not panic
	Get(CategoryRouter).Info("nothing %d", 1)
	BudgetDebug("nothing")
	StoreError("nothing")
}

func TestCategoryRoutingThroughZap(t *testing.T) {
	resetForTest(t)
	core, logs := observer.New(zapcore.DebugLevel)
	UseLogger(zap.New(core))

	Get(CategoryRouter).Info("picked %s", "cloud_llm")
	SectionsDebug("seeded %d", 3)
	Get(CategoryStore).With("key", "router.stats").Warn("merge failed")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "router", entries[0].LoggerName)
	assert.Equal(t, "picked cloud_llm", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, "store", entries[2].LoggerName)
	assert.Equal(t, "router.stats", entries[2].ContextMap()["key"])
}

func TestCategoryFilter(t *testing.T) {
	resetForTest(t)
	require.NoError(t, Initialize(config.LoggingConfig{
		DebugMode:  true,
		Level:      "debug",
		Categories: map[string]bool{"design": false},
	}))
	assert.True(t, IsCategoryEnabled(CategoryRouter))
	assert.False(t, IsCategoryEnabled(CategoryDesign))
}

func TestInitializeWritesToLogsDir(t *testing.T) {
	resetForTest(t)
	dir := t.TempDir()
	require.NoError(t, Initialize(config.LoggingConfig{DebugMode: true, Level: "info", LogsDir: dir}))
	Layout("gate decided %s", "ok")
	Sync()

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.True(t, strings.HasSuffix(files[0].Name(), "_ybuilt.log"))
}

func TestConcurrentGet(t *testing.T) {
	resetForTest(t)
	core, _ := observer.New(zapcore.InfoLevel)
	UseLogger(zap.New(core))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				Get(CategoryRouter).Info("tick")
			}
		}()
	}
	wg.Wait()
}

func TestTimer(t *testing.T) {
	resetForTest(t)
	core, logs := observer.New(zapcore.DebugLevel)
	UseLogger(zap.New(core))

	timer := StartTimer(CategoryDesign, "search")
	assert.GreaterOrEqual(t, timer.Stop(), time.Duration(0))
	StartTimer(CategoryDesign, "slow").StopWithThreshold(-time.Second)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestAuditLogger_AppendsRows(t *testing.T) {
	dir := t.TempDir()
	a, err := NewAuditLogger(dir)
	require.NoError(t, err)

	a.SupDecision("page-1", "strict", "layout_needs_patch", 1500*time.Microsecond)
	a.Log(AuditEvent{Mode: "block", PIIPresent: true, AbuseReasons: []string{"spam"}})
	require.NoError(t, a.Close())
	a.Log(AuditEvent{Mode: "allow"}) // after close: dropped, no panic

	f, err := os.Open(a.Path())
	require.NoError(t, err)
	defer f.Close()

	var rows []AuditEvent
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev AuditEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		rows = append(rows, ev)
	}
	require.Len(t, rows, 2)
	assert.Equal(t, "strict", rows[0].Mode)
	assert.InDelta(t, 1.5, rows[0].DurationMs, 1e-9)
	assert.NotEmpty(t, rows[0].ID)
	assert.Equal(t, []string{}, rows[0].AbuseReasons)
	assert.True(t, rows[1].PIIPresent)
}

func TestAuditLogger_NilSafe(t *testing.T) {
	var a *AuditLogger
	a.Log(AuditEvent{Mode: "allow"})
	assert.NoError(t, a.Close())
}

func TestAuditFiles(t *testing.T) {
	dir := t.TempDir()
	files, err := AuditFiles(dir)
	require.NoError(t, err)
	assert.Empty(t, files)

	a, err := NewAuditLogger(dir)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2001-01-01_audit.jsonl"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))

	files, err = AuditFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.True(t, strings.HasSuffix(files[0], "2001-01-01_audit.jsonl"))
	assert.Equal(t, a.Path(), files[1])
}
