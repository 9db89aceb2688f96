package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, time.UTC)

	log.Info("started", Fields{"port": "5001"})
	log.Warn("path_rejected", Fields{"path": "../etc"})
	log.Error("open failed", Fields{"error": errors.New("permission denied")})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "started", lines[0]["msg"])
	assert.Equal(t, "5001", lines[0]["port"])
	assert.NotEmpty(t, lines[0]["ts"])

	assert.Equal(t, "warn", lines[1]["level"])
	assert.Equal(t, "error", lines[2]["level"])
	assert.Equal(t, "permission denied", lines[2]["error"])
}

func TestLoggerEntryKeepsLevel(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, nil).Entry(map[string]any{"level": "debug", "event": "x"})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "debug", lines[0]["level"])
}

func TestLoggerConcurrent(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			log.Info("tick", Fields{"i": i})
		}(i)
	}
	wg.Wait()

	assert.Len(t, decodeLines(t, &buf), 50)
}

func TestNilLoggerDiscards(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("ignored", Fields{"k": "v"})
		l.Entry(map[string]any{"msg": "ignored"})
	})
}
