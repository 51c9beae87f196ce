package mock

import (
	"context"
	"crypto/sha256"
	"sync/atomic"

	"github.com/saturnino-fabrica-de-software/emojify/internal/domain"
	"github.com/saturnino-fabrica-de-software/emojify/internal/provider"
)

const providerName = "mock"

// Provider implementa provider.Opener para testes e desenvolvimento
type Provider struct {
	faces    []provider.DetectedFace
	fixed    bool
	err      error
	closeErr error

	opened atomic.Int64
	closed atomic.Int64
}

// Option configura o mock
type Option func(*Provider)

// WithFaces fixa as faces retornadas em toda detecção
func WithFaces(faces ...provider.DetectedFace) Option {
	return func(p *Provider) {
		p.faces = faces
		p.fixed = true
	}
}

// WithError faz toda detecção falhar com err
func WithError(err error) Option {
	return func(p *Provider) {
		p.err = err
	}
}

// WithCloseError faz Close retornar err
func WithCloseError(err error) Option {
	return func(p *Provider) {
		p.closeErr = err
	}
}

// New cria uma nova instância do MockProvider
func New(opts ...Option) *Provider {
	p := &Provider{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return providerName
}

// Open devolve um handle que conta os fechamentos
func (p *Provider) Open(_ context.Context) (provider.FaceDetector, error) {
	p.opened.Add(1)
	return provider.NewHandle(p.detectFaces, func() error {
		p.closed.Add(1)
		return p.closeErr
	}), nil
}

// Opened returns how many handles were opened
func (p *Provider) Opened() int64 {
	return p.opened.Load()
}

// Closed returns how many handles were closed
func (p *Provider) Closed() int64 {
	return p.closed.Load()
}

// detectFaces simula detecção de faces
func (p *Provider) detectFaces(ctx context.Context, photo *provider.Photo) ([]provider.DetectedFace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.fixed {
		out := make([]provider.DetectedFace, len(p.faces))
		copy(out, p.faces)
		return out, nil
	}
	if photo == nil || photo.Image == nil {
		return nil, domain.ErrInvalidImage
	}

	return []provider.DetectedFace{deterministicFace(photo)}, nil
}

// deterministicFace gera uma face central com probabilidades derivadas do hash da imagem
func deterministicFace(photo *provider.Photo) provider.DetectedFace {
	hash := sha256.Sum256(photo.Data)
	w, h := photo.Width(), photo.Height()

	return provider.DetectedFace{
		BoundingBox: provider.BoundingBox{
			Left:   w / 10,
			Top:    h / 10,
			Width:  w * 8 / 10,
			Height: h * 8 / 10,
		},
		SmilingProbability:      float64(hash[0]) / 255,
		LeftEyeOpenProbability:  float64(hash[1]) / 255,
		RightEyeOpenProbability: float64(hash[2]) / 255,
	}
}

var _ provider.Opener = (*Provider)(nil)
