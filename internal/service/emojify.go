package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/emojify/internal/audit"
	"github.com/saturnino-fabrica-de-software/emojify/internal/cache"
	"github.com/saturnino-fabrica-de-software/emojify/internal/compositor"
	"github.com/saturnino-fabrica-de-software/emojify/internal/domain"
	"github.com/saturnino-fabrica-de-software/emojify/internal/imagecodec"
	"github.com/saturnino-fabrica-de-software/emojify/internal/provider"
)

const (
	defaultDetectionTimeout = 30 * time.Second
	defaultCacheTTL         = 10 * time.Minute
)

type EmojificationRepositoryInterface interface {
	Create(ctx context.Context, e *domain.Emojification) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Emojification, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Emojification, error)
}

type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ExpressionClassifier is satisfied by *emoji.Classifier
type ExpressionClassifier interface {
	Classify(ctx context.Context, face provider.DetectedFace) domain.Expression
}

// AssetLookup is satisfied by *emoji.Set
type AssetLookup interface {
	Lookup(e domain.Expression) (image.Image, bool)
}

type EmojifyService struct {
	opener           provider.Opener
	assets           AssetLookup
	classifier       ExpressionClassifier
	logger           *slog.Logger
	repo             EmojificationRepositoryInterface
	cache            ResultCache
	audit            audit.Logger
	outputFormat     imaging.Format
	detectionTimeout time.Duration
	cacheTTL         time.Duration
	now              func() time.Time
}

type Option func(*EmojifyService)

// WithRepository enables the emojification history
func WithRepository(repo EmojificationRepositoryInterface) Option {
	return func(s *EmojifyService) {
		s.repo = repo
	}
}

// WithCache enables the composite cache
func WithCache(c ResultCache) Option {
	return func(s *EmojifyService) {
		s.cache = c
	}
}

func WithAuditLogger(l audit.Logger) Option {
	return func(s *EmojifyService) {
		s.audit = l
	}
}

// WithOutputFormat sets the encoding of composites. PNG by default.
func WithOutputFormat(f imaging.Format) Option {
	return func(s *EmojifyService) {
		s.outputFormat = f
	}
}

func WithDetectionTimeout(d time.Duration) Option {
	return func(s *EmojifyService) {
		if d > 0 {
			s.detectionTimeout = d
		}
	}
}

func WithCacheTTL(d time.Duration) Option {
	return func(s *EmojifyService) {
		if d > 0 {
			s.cacheTTL = d
		}
	}
}

func NewEmojifyService(
	opener provider.Opener,
	assets AssetLookup,
	classifier ExpressionClassifier,
	logger *slog.Logger,
	opts ...Option,
) *EmojifyService {
	s := &EmojifyService{
		opener:           opener,
		assets:           assets,
		classifier:       classifier,
		logger:           logger.With("component", "emojify"),
		audit:            &audit.NoOpLogger{},
		outputFormat:     imaging.PNG,
		detectionTimeout: defaultDetectionTimeout,
		cacheTTL:         defaultCacheTTL,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the name of the configured detection provider
func (s *EmojifyService) Provider() string {
	return s.opener.Name()
}

// Emojify detects the faces in data and draws the matching emoji over each
// one. A photo without faces is returned unchanged with NoticeNoFaces.
func (s *EmojifyService) Emojify(ctx context.Context, data []byte) (*domain.EmojifyResult, error) {
	start := s.now()

	photo, mimeType, err := decodePhoto(data)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	imageSHA := hex.EncodeToString(sum[:])
	cacheKey := cache.CompositeKey(s.opener.Name(), imageSHA)

	if cached, ok := s.lookupCache(ctx, cacheKey); ok {
		return cached, nil
	}

	result := &domain.EmojifyResult{
		ID:       uuid.New(),
		Provider: s.opener.Name(),
		Width:    photo.Width(),
		Height:   photo.Height(),
	}

	faces, err := s.detect(ctx, photo)
	if err != nil {
		s.logAudit(ctx, audit.Event{
			EventType:   audit.EventDetectionFailed,
			RequestID:   result.ID,
			ImageSHA256: imageSHA,
			Provider:    result.Provider,
			Error:       err.Error(),
		})
		return nil, domain.ErrDetectionFailed.WithError(err)
	}

	s.logAudit(ctx, audit.Event{
		EventType:   audit.EventFacesDetected,
		RequestID:   result.ID,
		ImageSHA256: imageSHA,
		Provider:    result.Provider,
		Success:     true,
		Metadata:    map[string]string{"faces_count": strconv.Itoa(len(faces))},
	})

	if len(faces) == 0 {
		result.Faces = []domain.FaceResult{}
		result.Notices = []string{domain.NoticeNoFaces}
		result.Image = data
		result.ContentType = mimeType
	} else {
		var layers []compositor.Layer
		result.Faces, layers, result.Notices = s.plan(ctx, faces)

		composite := compositor.Compose(photo.Image, layers)
		encoded, err := imagecodec.Encode(composite, s.outputFormat)
		if err != nil {
			return nil, domain.ErrInternal.WithError(err)
		}
		result.Image = encoded
		result.ContentType = imagecodec.ContentType(s.outputFormat)
	}

	result.LatencyMs = s.now().Sub(start).Milliseconds()

	s.logAudit(ctx, audit.Event{
		EventType:   audit.EventPhotoEmojified,
		RequestID:   result.ID,
		ImageSHA256: imageSHA,
		Provider:    result.Provider,
		Success:     true,
		Metadata: map[string]string{
			"faces_count": strconv.Itoa(result.FacesCount()),
			"latency_ms":  strconv.FormatInt(result.LatencyMs, 10),
		},
	})

	s.persist(ctx, result, imageSHA)
	s.storeCache(ctx, cacheKey, result)

	return result, nil
}

// Analyze runs detection and classification and reports where each emoji
// would be drawn, without compositing or persisting anything.
func (s *EmojifyService) Analyze(ctx context.Context, data []byte) (*domain.Analysis, error) {
	photo, _, err := decodePhoto(data)
	if err != nil {
		return nil, err
	}

	faces, err := s.detect(ctx, photo)
	if err != nil {
		return nil, domain.ErrDetectionFailed.WithError(err)
	}

	analysis := &domain.Analysis{
		Provider: s.opener.Name(),
		Width:    photo.Width(),
		Height:   photo.Height(),
		Faces:    []domain.FaceResult{},
	}

	if len(faces) == 0 {
		analysis.Notices = []string{domain.NoticeNoFaces}
		return analysis, nil
	}

	analysis.Faces, _, analysis.Notices = s.plan(ctx, faces)
	return analysis, nil
}

// Get returns a stored emojification record
func (s *EmojifyService) Get(ctx context.Context, id uuid.UUID) (*domain.Emojification, error) {
	if s.repo == nil {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// List returns the most recent emojification records. Without a repository
// the history is always empty.
func (s *EmojifyService) List(ctx context.Context, limit int) ([]domain.Emojification, error) {
	if s.repo == nil {
		return []domain.Emojification{}, nil
	}
	return s.repo.ListRecent(ctx, limit)
}

// ErrDetectorPanicked wraps a panic raised inside a provider
var ErrDetectorPanicked = errors.New("detector panicked")

type detection struct {
	faces []provider.DetectedFace
	err   error
}

// detect runs a single detection on its own goroutine and waits for exactly
// one completion. The detector handle is closed on every path.
func (s *EmojifyService) detect(ctx context.Context, photo *provider.Photo) ([]provider.DetectedFace, error) {
	ctx, cancel := context.WithTimeout(ctx, s.detectionTimeout)
	defer cancel()

	detector, err := s.opener.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s detector: %w", s.opener.Name(), err)
	}

	done := make(chan detection, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- detection{err: fmt.Errorf("%w: %v", ErrDetectorPanicked, r)}
			}
		}()
		faces, err := detector.DetectFaces(ctx, photo)
		done <- detection{faces: faces, err: err}
	}()

	select {
	case res := <-done:
		s.release(detector)
		if res.err != nil {
			return nil, fmt.Errorf("detect faces: %w", res.err)
		}
		s.logger.DebugContext(ctx, "faces detected",
			slog.String("provider", s.opener.Name()),
			slog.Int("count", len(res.faces)),
		)
		return res.faces, nil
	case <-ctx.Done():
		// the provider may still be running; release once it returns
		go func() {
			<-done
			s.release(detector)
		}()
		return nil, fmt.Errorf("detect faces: %w", ctx.Err())
	}
}

func (s *EmojifyService) release(detector provider.FaceDetector) {
	if err := detector.Close(); err != nil {
		s.logger.Warn("failed to close detector",
			slog.String("provider", s.opener.Name()),
			slog.String("error", err.Error()),
		)
	}
}

// plan classifies every face and lays out its emoji. Faces without an asset
// are reported and skipped; the rest keep detection order.
func (s *EmojifyService) plan(ctx context.Context, faces []provider.DetectedFace) ([]domain.FaceResult, []compositor.Layer, []string) {
	results := make([]domain.FaceResult, 0, len(faces))
	layers := make([]compositor.Layer, 0, len(faces))
	var notices []string

	for _, face := range faces {
		expression := s.classifier.Classify(ctx, face)

		fr := domain.FaceResult{
			BoundingBox: domain.Rect{
				X:      face.BoundingBox.Left,
				Y:      face.BoundingBox.Top,
				Width:  face.BoundingBox.Width,
				Height: face.BoundingBox.Height,
			},
			SmilingProbability:      face.SmilingProbability,
			LeftEyeOpenProbability:  face.LeftEyeOpenProbability,
			RightEyeOpenProbability: face.RightEyeOpenProbability,
			Expression:              expression,
		}

		asset, ok := s.assets.Lookup(expression)
		if !ok {
			s.logger.WarnContext(ctx, "no emoji for expression",
				slog.String("expression", expression.String()),
			)
			if len(notices) == 0 {
				notices = append(notices, domain.NoticeNoEmoji)
			}
			results = append(results, fr)
			continue
		}

		if rect, ok := compositor.Layout(face.BoundingBox, asset.Bounds()); ok {
			fr.Placement = &domain.Rect{
				X:      rect.Min.X,
				Y:      rect.Min.Y,
				Width:  rect.Dx(),
				Height: rect.Dy(),
			}
			fr.Applied = true
			layers = append(layers, compositor.Layer{Box: face.BoundingBox, Emoji: asset})
		}

		results = append(results, fr)
	}

	return results, layers, notices
}

func decodePhoto(data []byte) (*provider.Photo, string, error) {
	mimeType, _, err := imagecodec.Sniff(data)
	switch {
	case errors.Is(err, imagecodec.ErrEmptyImage):
		return nil, "", domain.ErrInvalidImage.WithError(err)
	case err != nil:
		return nil, "", domain.ErrUnsupportedMediaType.WithError(err)
	}

	img, format, err := imagecodec.Decode(data)
	if err != nil {
		return nil, "", domain.ErrInvalidImage.WithError(err)
	}

	return &provider.Photo{Data: data, Image: img, Format: format}, mimeType, nil
}

func (s *EmojifyService) logAudit(ctx context.Context, event audit.Event) {
	if err := s.audit.Log(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to write audit event",
			slog.String("event_type", string(event.EventType)),
			slog.String("error", err.Error()),
		)
	}
}

// persist stores the history record. Failures never fail the request.
func (s *EmojifyService) persist(ctx context.Context, result *domain.EmojifyResult, imageSHA string) {
	if s.repo == nil {
		return
	}

	record := &domain.Emojification{
		ID:          result.ID,
		ImageSHA256: imageSHA,
		Provider:    result.Provider,
		FacesCount:  result.FacesCount(),
		Expressions: result.Expressions(),
		Width:       result.Width,
		Height:      result.Height,
		LatencyMs:   result.LatencyMs,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.WarnContext(ctx, "failed to persist emojification",
			slog.String("id", result.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

type cachedResult struct {
	ID          uuid.UUID           `json:"id"`
	Provider    string              `json:"provider"`
	Width       int                 `json:"width"`
	Height      int                 `json:"height"`
	Faces       []domain.FaceResult `json:"faces"`
	Notices     []string            `json:"notices,omitempty"`
	Image       []byte              `json:"image"`
	ContentType string              `json:"content_type"`
	LatencyMs   int64               `json:"latency_ms"`
}

func (s *EmojifyService) lookupCache(ctx context.Context, key string) (*domain.EmojifyResult, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) && !errors.Is(err, cache.ErrCacheExpired) {
			s.logger.WarnContext(ctx, "cache lookup failed", slog.String("error", err.Error()))
		}
		return nil, false
	}

	var c cachedResult
	if err := json.Unmarshal(data, &c); err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	return &domain.EmojifyResult{
		ID:          c.ID,
		Provider:    c.Provider,
		Width:       c.Width,
		Height:      c.Height,
		Faces:       c.Faces,
		Notices:     c.Notices,
		Image:       c.Image,
		ContentType: c.ContentType,
		LatencyMs:   c.LatencyMs,
		Cached:      true,
	}, true
}

func (s *EmojifyService) storeCache(ctx context.Context, key string, result *domain.EmojifyResult) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(cachedResult{
		ID:          result.ID,
		Provider:    result.Provider,
		Width:       result.Width,
		Height:      result.Height,
		Faces:       result.Faces,
		Notices:     result.Notices,
		Image:       result.Image,
		ContentType: result.ContentType,
		LatencyMs:   result.LatencyMs,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to encode cache entry", slog.String("error", err.Error()))
		return
	}

	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "failed to store cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
