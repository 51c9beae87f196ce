package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/emojify/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/emojify/internal/emoji"
	"github.com/saturnino-fabrica-de-software/emojify/internal/imagecodec"
	"github.com/saturnino-fabrica-de-software/emojify/internal/provider"
	mockprovider "github.com/saturnino-fabrica-de-software/emojify/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/emojify/internal/service"
)

type countingJanitor struct {
	started atomic.Int32
	stopped chan struct{}
}

func (j *countingJanitor) RunJanitor(ctx context.Context, _ time.Duration, _ *slog.Logger) {
	j.started.Add(1)
	<-ctx.Done()
	close(j.stopped)
}

func newTestRouter(t *testing.T, p provider.Opener, deps *Dependencies) *Router {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	assets, err := emoji.LoadEmbedded()
	require.NoError(t, err)

	deps.Service = service.NewEmojifyService(p, assets, emoji.NewClassifier(logger), logger)
	deps.Assets = assets
	deps.Provider = p.Name()
	if deps.MaxImageSize == 0 {
		deps.MaxImageSize = 1 << 20
	}

	r := NewRouter(logger, deps)
	r.Setup()
	return r
}

func pngUpload(t *testing.T, w, h int) (*bytes.Buffer, string) {
	t.Helper()

	data, err := imagecodec.Encode(imaging.New(w, h, color.NRGBA{R: 200, G: 180, B: 160, A: 255}), imaging.PNG)
	require.NoError(t, err)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, _ = part.Write(data)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestRouter_EmojifyEndToEnd(t *testing.T) {
	face := provider.DetectedFace{
		BoundingBox:             provider.BoundingBox{Left: 40, Top: 40, Width: 100, Height: 100},
		SmilingProbability:      0.9,
		LeftEyeOpenProbability:  0.9,
		RightEyeOpenProbability: 0.9,
	}
	p := mockprovider.New(mockprovider.WithFaces(face))
	r := newTestRouter(t, p, &Dependencies{})

	body, contentType := pngUpload(t, 320, 240)
	req := httptest.NewRequest("POST", "/v1/emojify", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := r.App().Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "1", resp.Header.Get("X-Faces-Count"))
	assert.Equal(t, "smile", resp.Header.Get("X-Expressions"))
	assert.NotEmpty(t, resp.Header.Get("X-Emojification-ID"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	img, _, err := imagecodec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())

	assert.Equal(t, int64(1), p.Closed())
}

func TestRouter_NoFaces(t *testing.T) {
	r := newTestRouter(t, mockprovider.New(mockprovider.WithFaces()), &Dependencies{})

	body, contentType := pngUpload(t, 32, 32)
	req := httptest.NewRequest("POST", "/v1/emojify", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := r.App().Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var got struct {
		FacesCount int    `json:"faces_count"`
		Message    string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 0, got.FacesCount)
	assert.Equal(t, "No faces detected in the image", got.Message)
}

func TestRouter_HealthAndSwagger(t *testing.T) {
	r := newTestRouter(t, mockprovider.New(), &Dependencies{})

	resp, err := r.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = r.App().Test(httptest.NewRequest("GET", "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = r.App().Test(httptest.NewRequest("GET", "/v1/expressions", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = r.App().Test(httptest.NewRequest("GET", "/v1/unknown", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestRouter_RateLimit(t *testing.T) {
	r := newTestRouter(t, mockprovider.New(), &Dependencies{
		RateLimit: middleware.RateLimiterConfig{Max: 3, Window: time.Minute},
	})

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		resp, err := r.App().Test(httptest.NewRequest("GET", "/v1/expressions", nil))
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, []int{200, 200, 200, 429}, statuses)

	// health checks are not rate limited
	resp, err := r.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestRouter_BodyLimit(t *testing.T) {
	r := newTestRouter(t, mockprovider.New(), &Dependencies{MaxImageSize: 1024})

	body, contentType := pngUpload(t, 2000, 2000)
	require.Greater(t, body.Len(), 1024)

	req := httptest.NewRequest("POST", "/v1/emojify", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Length", strconv.Itoa(body.Len()))

	resp, err := r.App().Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, 413, resp.StatusCode)
}

func TestRouter_ShutdownStopsJanitor(t *testing.T) {
	janitor := &countingJanitor{stopped: make(chan struct{})}
	r := newTestRouter(t, mockprovider.New(), &Dependencies{Cache: janitor, JanitorInterval: time.Hour})

	require.Eventually(t, func() bool { return janitor.started.Load() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, r.Shutdown())

	select {
	case <-janitor.stopped:
	case <-time.After(time.Second):
		t.Fatal("janitor still running after shutdown")
	}
}
