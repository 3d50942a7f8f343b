package logger

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func encodeEntry(t *testing.T, ent zapcore.Entry, fields ...zapcore.Field) string {
	t.Helper()
	enc := newMinimalEncoder()
	buf, err := enc.EncodeEntry(ent, fields)
	require.NoError(t, err)
	return buf.String()
}

func TestMinimalEncoder_InfoHasNoLevelTag(t *testing.T) {
	out := encodeEntry(t, zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    time.Date(2026, 1, 2, 13, 4, 5, 0, time.UTC),
		Message: "include resolved",
	})

	assert.Contains(t, out, "13:04:05")
	assert.Contains(t, out, "include resolved")
	assert.NotContains(t, out, "INFO")
}

func TestMinimalEncoder_WarnAndErrorTagged(t *testing.T) {
	warn := encodeEntry(t, zapcore.Entry{Level: zapcore.WarnLevel, Time: time.Now(), Message: "alias unresolved"})
	assert.Contains(t, warn, "WARN")

	errOut := encodeEntry(t, zapcore.Entry{Level: zapcore.ErrorLevel, Time: time.Now(), Message: "fetch failed"})
	assert.Contains(t, errOut, "ERROR")
}

func TestMinimalEncoder_AbbreviatesLoggerName(t *testing.T) {
	out := encodeEntry(t, zapcore.Entry{
		Level:      zapcore.InfoLevel,
		Time:       time.Now(),
		LoggerName: "resolve.cache",
		Message:    "hit",
	})

	assert.Contains(t, out, "r.cache")
	assert.NotContains(t, out, "resolve.cache")
}

func TestMinimalEncoder_ShortensContractIDs(t *testing.T) {
	id := "CCYEOY2JTOQ2JIMLLERAFNHAVKEKMEJDBOTLN6DIIWBHWEIMUA2T2VY4"
	out := encodeEntry(t, zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    time.Now(),
		Message: "fetching",
	}, zap.String("contract", id))

	assert.NotContains(t, out, id, "full 56-char strkey should not appear")
	assert.Contains(t, out, "CCYE")
	assert.Contains(t, out, "2VY4")
}

func TestAbbreviateName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"resolve", "resolve"},
		{"resolve.cache", "r.cache"},
		{"chunk.loader", "c.loader"},
		{"server.ws.client", "s.ws.client"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, abbreviateName(tt.in), "abbreviateName(%q)", tt.in)
	}
}

func TestShortenID(t *testing.T) {
	assert.Equal(t, "SELF", shortenID("SELF"))
	long := strings.Repeat("A", 56)
	short := shortenID(long)
	assert.Less(t, len(short), len(long))
}
