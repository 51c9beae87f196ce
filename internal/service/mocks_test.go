package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/emojify/internal/audit"
	"github.com/saturnino-fabrica-de-software/emojify/internal/domain"
	"github.com/saturnino-fabrica-de-software/emojify/internal/provider"
)

type MockEmojificationRepository struct {
	mock.Mock
}

func (m *MockEmojificationRepository) Create(ctx context.Context, e *domain.Emojification) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEmojificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Emojification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Emojification), args.Error(1)
}

func (m *MockEmojificationRepository) ListRecent(ctx context.Context, limit int) ([]domain.Emojification, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Emojification), args.Error(1)
}

type MockResultCache struct {
	mock.Mock
}

func (m *MockResultCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockResultCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

type MockOpener struct {
	mock.Mock
}

func (m *MockOpener) Open(ctx context.Context) (provider.FaceDetector, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(provider.FaceDetector), args.Error(1)
}

func (m *MockOpener) Name() string {
	return "stub"
}

// blockingDetector never answers until its context is done
type blockingDetector struct {
	closed chan struct{}
	once   sync.Once
}

func newBlockingDetector() *blockingDetector {
	return &blockingDetector{closed: make(chan struct{})}
}

func (d *blockingDetector) DetectFaces(ctx context.Context, _ *provider.Photo) ([]provider.DetectedFace, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (d *blockingDetector) Close() error {
	d.once.Do(func() { close(d.closed) })
	return nil
}

type recordingAuditLogger struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAuditLogger) Log(_ context.Context, event audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingAuditLogger) types() []audit.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}
