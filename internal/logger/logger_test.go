package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSetup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format  string
		level   string
		debug   bool
		check   func(t *testing.T, out string)
		wantErr bool
	}{
		{
			format: "pretty",
			level:  "info",
			check: func(t *testing.T, out string) {
				if !strings.Contains(out, "INFO  epoch done epoch=3 loss=1.25") {
					t.Fatalf("pretty line: %q", out)
				}
			},
		},
		{
			format: "",
			level:  "",
			check: func(t *testing.T, out string) {
				if !strings.Contains(out, "epoch done") || strings.HasPrefix(out, "{") {
					t.Fatalf("empty format should be pretty: %q", out)
				}
			},
		},
		{
			format: "JSON",
			level:  "debug",
			debug:  true,
			check: func(t *testing.T, out string) {
				lines := strings.Split(strings.TrimSpace(out), "\n")
				if len(lines) != 2 {
					t.Fatalf("expected debug and info records, got %q", out)
				}
				var rec map[string]any
				if err := json.Unmarshal([]byte(lines[1]), &rec); err != nil {
					t.Fatalf("decode %q: %v", lines[1], err)
				}
				if rec["msg"] != "epoch done" || rec["loss"] != 1.25 || rec["source"] == nil {
					t.Fatalf("json record: %v", rec)
				}
			},
		},
		{
			format: "text",
			level:  "warn",
			check: func(t *testing.T, out string) {
				if out != "" {
					t.Fatalf("info record should be filtered at warn: %q", out)
				}
			},
		},
		{format: "xml", level: "info", wantErr: true},
		{format: "pretty", level: "loud", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.format+"/"+tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := Setup(&buf, tc.format, tc.level)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("setup: %v", err)
			}
			if tc.debug {
				log.Debug("batch", "step", 1)
			}
			log.Info("epoch done", "epoch", 3, "loss", 1.25)
			tc.check(t, buf.String())
		})
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	log := Discard().With("run", "x").WithGroup("train")
	h := log.(*SlogLogger).logger.Handler()
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if h.Enabled(context.Background(), level) {
			t.Fatalf("discard logger enabled at %v", level)
		}
	}
	log.Error("dropped", "err", "boom")
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext should fall back to a default logger")
	}
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), Pretty(&buf, slog.LevelInfo))
	FromContext(ctx).Info("checkpoint saved")
	if !strings.Contains(buf.String(), "checkpoint saved") {
		t.Fatalf("logger lost in context: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "", want: slog.LevelInfo},
		{in: "Info", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: "ERROR", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseLevel(%q) err = %v", tc.in, err)
		}
		if !tc.wantErr && got != tc.want {
			t.Fatalf("ParseLevel(%q) = %v want %v", tc.in, got, tc.want)
		}
	}
}

func TestPrettyAttrFormatting(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{name: "float", attr: slog.Float64("loss", 1.23456789), want: "loss=1.23457"},
		{name: "small float", attr: slog.Float64("lr", 0.002), want: "lr=0.002"},
		{name: "large float", attr: slog.Float64("perplexity", 12345678), want: "perplexity=1.23457e+07"},
		{name: "duration", attr: slog.Duration("elapsed", 1500*time.Millisecond), want: "elapsed=1.5s"},
		{name: "sub-second duration", attr: slog.Duration("step_time", 250*time.Microsecond), want: "step_time=250µs"},
		{name: "int", attr: slog.Int("epoch", -2), want: "epoch=-2"},
		{name: "uint", attr: slog.Uint64("chars", 42), want: "chars=42"},
		{name: "bool", attr: slog.Bool("greedy", true), want: "greedy=true"},
		{name: "time", attr: slog.Time("started", at), want: "started=2024-03-01T12:00:00Z"},
		{name: "plain string", attr: slog.String("priming", "the"), want: "priming=the"},
		{name: "spaced string", attr: slog.String("priming", "the cat"), want: `priming="the cat"`},
		{name: "multiline sample", attr: slog.String("sample", "one\ntwo"), want: `sample="one\ntwo"`},
		{name: "equals sign", attr: slog.String("sample", "a=b"), want: `sample="a=b"`},
		{name: "group", attr: slog.Group("shape", slog.Int("hidden", 128), slog.Int("layers", 2)), want: "shape={hidden=128 layers=2}"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			slog.New(NewPrettyHandler(&buf, nil)).LogAttrs(context.Background(), slog.LevelInfo, "msg", tc.attr)
			out := strings.TrimSuffix(buf.String(), "\n")
			if !strings.HasSuffix(out, "msg "+tc.want) {
				t.Fatalf("got %q want suffix %q", out, tc.want)
			}
		})
	}
}

func TestPrettyOneLinePerRecord(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelInfo)
	log.Info("sample", "text", "line one\nline two\r\n")
	log.Info("sample", "text", "tab\there")
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", n, buf.String())
	}
}

func TestPrettyColor(t *testing.T) {
	t.Parallel()

	var plain bytes.Buffer
	Pretty(&plain, slog.LevelInfo).Warn("slow batch", "ms", 900)
	if strings.Contains(plain.String(), "\033[") {
		t.Fatalf("non-terminal output should not be colored: %q", plain.String())
	}

	var colored bytes.Buffer
	h := NewPrettyHandler(&colored, nil).WithColor(true)
	slog.New(h).Warn("slow batch", "ms", 900)
	out := colored.String()
	if !strings.Contains(out, colorYellow+colorBold+"WARN "+colorReset) {
		t.Fatalf("warn level not colored: %q", out)
	}
	if !strings.Contains(out, colorCyan+"ms=900"+colorReset) {
		t.Fatalf("attrs not colored: %q", out)
	}
}

func TestPrettyLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelWarn)
	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Error("shown")
	if got := strings.Count(buf.String(), "shown"); got != 2 || strings.Contains(buf.String(), "hidden") {
		t.Fatalf("level filtering: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "ERROR shown") {
		t.Fatalf("error level label: %q", buf.String())
	}
}

func TestPrettyGroupsAndAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelInfo).
		With("run", "r1").
		WithGroup("train").
		With("epoch", 4).
		WithGroup("").
		WithGroup("batch")
	log.Info("step", "loss", 0.5)

	out := buf.String()
	for _, want := range []string{"run=r1", "train.epoch=4", "train.batch.loss=0.5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
	if strings.Index(out, "run=r1") > strings.Index(out, "train.epoch=4") {
		t.Fatalf("bound attrs out of order: %q", out)
	}
}
