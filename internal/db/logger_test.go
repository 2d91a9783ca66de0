package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestQueryLoggerTrace(t *testing.T) {
	query := func() (string, int64) { return "SELECT * FROM vehicles", 1 }

	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		elapsed time.Duration
		err     error
		want    string
	}{
		{"failed query", gormlogger.Warn, time.Millisecond, errors.New("connection reset"), "query failed"},
		{"record not found", gormlogger.Warn, time.Millisecond, gorm.ErrRecordNotFound, ""},
		{"slow query", gormlogger.Warn, time.Second, nil, "slow query"},
		{"fast query", gormlogger.Warn, time.Millisecond, nil, ""},
		{"fast query at info", gormlogger.Info, time.Millisecond, nil, `"message":"query"`},
		{"silent", gormlogger.Silent, time.Second, errors.New("connection reset"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := newQueryLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)).LogMode(tt.level)

			l.Trace(context.Background(), time.Now().Add(-tt.elapsed), query, tt.err)

			out := buf.String()
			if tt.want == "" {
				if out != "" {
					t.Errorf("logged %q, want nothing", out)
				}
				return
			}
			if !strings.Contains(out, tt.want) || !strings.Contains(out, "SELECT * FROM vehicles") {
				t.Errorf("logged %q, want %q with the statement", out, tt.want)
			}
		})
	}
}

func TestQueryLoggerLogModeCopies(t *testing.T) {
	base := newQueryLogger(zerolog.Nop())
	_ = base.LogMode(gormlogger.Info)
	if base.level != gormlogger.Warn {
		t.Errorf("base level = %v, want Warn", base.level)
	}
}
