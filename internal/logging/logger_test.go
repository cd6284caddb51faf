package logging

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func resetLogging(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		Attach(nil)
		require.NoError(t, Initialize("", Options{}))
	})
}

func logFile(dir string, cat Category) string {
	return filepath.Join(dir, time.Now().Format("2006-01-02")+"_"+string(cat)+".log")
}

func TestAttach_ReceivesEveryCategory(t *testing.T) {
	resetLogging(t)
	require.NoError(t, Initialize("", Options{}))
	core, logs := observer.New(zapcore.DebugLevel)
	Attach(core)

	Model("loaded %d", 3)
	SyncDebug("suppressed edit on %s", "uri")
	DispatchError("adb: %v", "boom")

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "model", entries[0].LoggerName)
	assert.Equal(t, "loaded 3", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, "sync", entries[1].LoggerName)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestDisabled_IsNoop(t *testing.T) {
	resetLogging(t)
	require.NoError(t, Initialize("", Options{}))

	assert.False(t, IsDebugMode())
	assert.False(t, IsCategoryEnabled(CategoryCodec))
	assert.NotPanics(t, func() {
		CodecDebug("nothing %s", "here")
		Get(CategoryUI).With("k", "v").Info("still nothing")
		var nilLogger *Logger
		nilLogger.Error("nil receiver")
	})
}

func TestInitialize_WritesCategoryFiles(t *testing.T) {
	resetLogging(t)
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, Initialize(dir, Options{
		DebugMode:  true,
		Level:      "debug",
		Categories: map[string]bool{"journal": false},
	}))

	assert.True(t, IsCategoryEnabled(CategoryCodec))
	assert.False(t, IsCategoryEnabled(CategoryJournal))

	CodecDebug("hello %s", "world")
	JournalDebug("hidden")
	CloseAll()

	data, err := os.ReadFile(logFile(dir, CategoryCodec))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello world")
	assert.Contains(t, string(data), "DEBUG")

	_, err = os.Stat(logFile(dir, CategoryJournal))
	assert.True(t, os.IsNotExist(err))

	boot, err := os.ReadFile(logFile(dir, CategoryBoot))
	require.NoError(t, err)
	assert.Contains(t, string(boot), "logging initialized")
}

func TestInitialize_LevelAndFormat(t *testing.T) {
	resetLogging(t)
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, Options{DebugMode: true, Level: "warn", Format: "json"}))

	Model("below threshold")
	Get(CategoryModel).With("surface", "uri").Warn("above %s", "threshold")
	CloseAll()

	data, err := os.ReadFile(logFile(dir, CategoryModel))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "below threshold")
	assert.Contains(t, string(data), `"msg":"above threshold"`)
	assert.Contains(t, string(data), `"surface":"uri"`)
}

func TestInitialize_Errors(t *testing.T) {
	resetLogging(t)
	assert.Error(t, Initialize("", Options{DebugMode: true}))
	assert.Error(t, Initialize(t.TempDir(), Options{Level: "loud"}))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"WARNING", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestConcurrentGet(t *testing.T) {
	resetLogging(t)
	core, logs := observer.New(zapcore.InfoLevel)
	Attach(core)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cat := Categories[i%len(Categories)]
			Get(cat).Info("goroutine %d", i)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, logs.Len())
}

func TestTimer(t *testing.T) {
	resetLogging(t)
	core, logs := observer.New(zapcore.DebugLevel)
	Attach(core)

	StartTimer(CategoryCatalog, "load").Stop()
	StartTimer(CategoryCatalog, "slow").StopWithThreshold(-time.Second)

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
}
