package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_Log(t *testing.T) {
	tests := []struct {
		name          string
		event         Event
		wantEventType string
		wantProvider  string
		wantHasError  bool
	}{
		{
			name: "faces detected event",
			event: Event{
				RequestID: uuid.New(),
				EventType: EventFacesDetected,
				Provider:  "rekognition",
				Success:   true,
				Metadata: map[string]string{
					"faces_count": "2",
				},
			},
			wantEventType: string(EventFacesDetected),
			wantProvider:  "rekognition",
		},
		{
			name: "detection failed event",
			event: Event{
				RequestID: uuid.New(),
				EventType: EventDetectionFailed,
				Provider:  "deepface",
				Success:   false,
				Error:     "deepface service unavailable",
			},
			wantEventType: string(EventDetectionFailed),
			wantProvider:  "deepface",
			wantHasError:  true,
		},
		{
			name: "photo emojified event",
			event: Event{
				RequestID:   uuid.New(),
				EventType:   EventPhotoEmojified,
				ImageSHA256: "abc123",
				Provider:    "mock",
				Success:     true,
			},
			wantEventType: string(EventPhotoEmojified),
			wantProvider:  "mock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			auditLogger := NewSlogLogger(logger)
			err := auditLogger.Log(context.Background(), tt.event)
			require.NoError(t, err)

			output := buf.String()
			assert.Contains(t, output, tt.wantEventType)
			assert.Contains(t, output, tt.wantProvider)
			assert.Contains(t, output, "audit_event")
			assert.Contains(t, output, tt.event.RequestID.String())

			if tt.wantHasError {
				assert.Contains(t, output, tt.event.Error)
			}
		})
	}
}

func TestSlogLogger_Log_GeneratesIDAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	auditLogger := NewSlogLogger(logger)
	err := auditLogger.Log(context.Background(), Event{
		EventType: EventFacesDetected,
		Provider:  "rekognition",
		Success:   true,
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &logEntry))

	eventID, ok := logEntry["event_id"].(string)
	require.True(t, ok)
	_, err = uuid.Parse(eventID)
	assert.NoError(t, err)
}

func TestSlogLogger_Log_UsesProvidedID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	expectedID := uuid.New()
	err := NewSlogLogger(logger).Log(context.Background(), Event{
		ID:        expectedID,
		Timestamp: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		EventType: EventPhotoEmojified,
		Provider:  "mock",
		Success:   true,
	})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), expectedID.String())
}

func TestNoOpLogger_Log(t *testing.T) {
	logger := &NoOpLogger{}

	err := logger.Log(context.Background(), Event{
		EventType: EventFacesDetected,
		Provider:  "mock",
		Success:   true,
	})

	assert.NoError(t, err)
}

func TestLoggerInterface_Compliance(t *testing.T) {
	var _ Logger = (*SlogLogger)(nil)
	var _ Logger = (*NoOpLogger)(nil)
}

func TestEvent_JSONSerialization_OmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Event{
		EventType: EventFacesDetected,
		Provider:  "mock",
		Success:   true,
	})
	require.NoError(t, err)

	jsonStr := string(data)
	assert.NotContains(t, jsonStr, "image_sha256")
	assert.NotContains(t, jsonStr, "error")
	assert.NotContains(t, jsonStr, "metadata")
}
