package helper

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedHandler(opts PrettyHandlerOptions) (*PrettyHandler, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewPrettyHandler(&buf, opts), &buf
}

func TestNewPrettyHandler(t *testing.T) {
	t.Run("Create PrettyHandler with default options", func(t *testing.T) {
		handler, _ := newBufferedHandler(PrettyHandlerOptions{})

		assert.NotNil(t, handler, "Expected NewPrettyHandler to return a non-nil handler")
		assert.NotNil(t, handler.Handler, "Expected handler to have a non-nil Handler field")
		assert.NotNil(t, handler.l, "Expected handler to have a non-nil logger field")
	})

	t.Run("Create PrettyHandler with custom level and source", func(t *testing.T) {
		handler, _ := newBufferedHandler(PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			},
		})

		assert.NotNil(t, handler, "Expected NewPrettyHandler to return a non-nil handler")
	})
}

func TestPrettyHandlerHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("Levels are rendered with their name", func(t *testing.T) {
		levels := []struct {
			level   slog.Level
			message string
			want    string
		}{
			{slog.LevelDebug, "loading sql functions", "DEBUG:"},
			{slog.LevelInfo, "Initialized MemoriesDBHandler", "INFO:"},
			{slog.LevelWarn, "skipped relation candidate", "WARN:"},
			{slog.LevelError, "embedding generation failed", "ERROR:"},
		}

		for _, testCase := range levels {
			handler, buf := newBufferedHandler(PrettyHandlerOptions{
				SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug},
			})

			record := slog.NewRecord(time.Now(), testCase.level, testCase.message, 0)
			record.AddAttrs(slog.String("user_id", "user-log"))

			err := handler.Handle(ctx, record)
			require.NoError(t, err, "Expected Handle to not return an error")

			output := buf.String()
			assert.Contains(t, output, testCase.want, "Expected output to contain the level name")
			assert.Contains(t, output, testCase.message, "Expected output to contain the message")
			assert.Contains(t, output, "user_id", "Expected output to contain attribute key")
			assert.Contains(t, output, "user-log", "Expected output to contain attribute value")
		}
	})

	t.Run("Handle log with no attributes", func(t *testing.T) {
		handler, buf := newBufferedHandler(PrettyHandlerOptions{})

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "simple message", 0)

		err := handler.Handle(ctx, record)
		require.NoError(t, err)

		output := buf.String()
		assert.Contains(t, output, "simple message", "Expected output to contain the message")
		assert.Contains(t, output, "{}", "Expected output to contain empty JSON object for attributes")
	})

	t.Run("Handle log with multiple attributes", func(t *testing.T) {
		handler, buf := newBufferedHandler(PrettyHandlerOptions{})

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "Processed memory into graph", 0)
		record.AddAttrs(
			slog.String("memory_id", "42f1"),
			slog.Int("num_entities", 3),
			slog.Bool("reused", true),
		)

		err := handler.Handle(ctx, record)
		require.NoError(t, err)

		output := buf.String()
		assert.Contains(t, output, "memory_id")
		assert.Contains(t, output, "42f1")
		assert.Contains(t, output, "num_entities")
		assert.Contains(t, output, "3")
		assert.Contains(t, output, "reused")
		assert.Contains(t, output, "true")
	})

	t.Run("Handle log with nested attributes", func(t *testing.T) {
		handler, buf := newBufferedHandler(PrettyHandlerOptions{})

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "nested message", 0)
		record.AddAttrs(slog.Any("metadata", map[string]interface{}{
			"chunking_method": "sentence",
		}))

		err := handler.Handle(ctx, record)
		require.NoError(t, err)

		output := buf.String()
		assert.Contains(t, output, "nested message", "Expected output to contain the message")
		assert.Contains(t, output, "metadata", "Expected output to contain attribute key")
	})

	t.Run("Handle log formats timestamp correctly", func(t *testing.T) {
		handler, buf := newBufferedHandler(PrettyHandlerOptions{})

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "time test", 0)

		err := handler.Handle(ctx, record)
		require.NoError(t, err)

		// Timestamp should be in format [15:04:05.000]
		assert.Regexp(t, `\[\d{2}:\d{2}:\d{2}\.\d{3}\]`, buf.String(),
			"Expected output to contain properly formatted timestamp")
	})
}

func TestPrettyHandlerOptions(t *testing.T) {
	t.Run("PrettyHandlerOptions with all fields set", func(t *testing.T) {
		handler, _ := newBufferedHandler(PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{
				AddSource: true,
				Level:     slog.LevelDebug,
				ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
					return a
				},
			},
		})

		assert.NotNil(t, handler, "Expected handler to be created with all options set")
	})

	t.Run("PrettyHandlerOptions with empty options", func(t *testing.T) {
		handler, _ := newBufferedHandler(PrettyHandlerOptions{})

		assert.NotNil(t, handler, "Expected handler to be created with empty options")
	})
}
