package handler

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/emojify/internal/domain"
	"github.com/saturnino-fabrica-de-software/emojify/internal/emoji"
)

const defaultMaxImageSize = 10 * 1024 * 1024 // 10MB

// Response headers describing a composite
const (
	HeaderEmojificationID = "X-Emojification-ID"
	HeaderFacesCount      = "X-Faces-Count"
	HeaderExpressions     = "X-Expressions"
	HeaderNotice          = "X-Emojify-Notice"
	HeaderCache           = "X-Cache"
)

// EmojifyService interface for the service
type EmojifyService interface {
	Emojify(ctx context.Context, data []byte) (*domain.EmojifyResult, error)
	Analyze(ctx context.Context, data []byte) (*domain.Analysis, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Emojification, error)
	List(ctx context.Context, limit int) ([]domain.Emojification, error)
}

// AssetLookup is satisfied by *emoji.Set
type AssetLookup interface {
	Lookup(e domain.Expression) (image.Image, bool)
}

// EmojifyHandler handles the emojify endpoints
type EmojifyHandler struct {
	service      EmojifyService
	assets       AssetLookup
	maxImageSize int
	logger       *slog.Logger
}

// NewEmojifyHandler creates a new EmojifyHandler. A non-positive
// maxImageSize falls back to 10MB.
func NewEmojifyHandler(service EmojifyService, assets AssetLookup, maxImageSize int, logger *slog.Logger) *EmojifyHandler {
	if maxImageSize <= 0 {
		maxImageSize = defaultMaxImageSize
	}
	return &EmojifyHandler{
		service:      service,
		assets:       assets,
		maxImageSize: maxImageSize,
		logger:       logger,
	}
}

// NoFacesResponse is returned instead of an image when no face was found
type NoFacesResponse struct {
	ID         string `json:"id"`
	FacesCount int    `json:"faces_count"`
	Message    string `json:"message"`
}

// ExpressionResponse describes one expression and its emoji
type ExpressionResponse struct {
	Expression string `json:"expression"`
	Asset      string `json:"asset"`
	Available  bool   `json:"available"`
}

// ExpressionsResponse wraps the expression listing
type ExpressionsResponse struct {
	Expressions []ExpressionResponse `json:"expressions"`
}

// ListResponse wraps the history listing
type ListResponse struct {
	Emojifications []domain.Emojification `json:"emojifications"`
	Count          int                    `json:"count"`
}

// Emojify POST /v1/emojify - returns the photo with an emoji over each face
func (h *EmojifyHandler) Emojify(c *fiber.Ctx) error {
	data, err := h.readImage(c)
	if err != nil {
		return err
	}

	result, err := h.service.Emojify(c.UserContext(), data)
	if err != nil {
		return err
	}

	h.logger.DebugContext(c.UserContext(), "emojify completed",
		slog.String("id", result.ID.String()),
		slog.Int("faces_count", result.FacesCount()),
		slog.Bool("cached", result.Cached),
	)

	c.Set(HeaderEmojificationID, result.ID.String())
	c.Set(HeaderFacesCount, strconv.Itoa(result.FacesCount()))
	c.Set(HeaderCache, cacheStatus(result.Cached))

	if result.FacesCount() == 0 {
		return c.JSON(NoFacesResponse{
			ID:         result.ID.String(),
			FacesCount: 0,
			Message:    domain.NoticeNoFaces,
		})
	}

	expressions := make([]string, 0, result.FacesCount())
	for _, e := range result.Expressions() {
		expressions = append(expressions, e.String())
	}
	c.Set(HeaderExpressions, strings.Join(expressions, ","))
	if len(result.Notices) > 0 {
		c.Set(HeaderNotice, strings.Join(result.Notices, "; "))
	}

	c.Set(fiber.HeaderContentType, result.ContentType)
	return c.Send(result.Image)
}

// Analyze POST /v1/analyze - returns faces, expressions and emoji placement
func (h *EmojifyHandler) Analyze(c *fiber.Ctx) error {
	data, err := h.readImage(c)
	if err != nil {
		return err
	}

	analysis, err := h.service.Analyze(c.UserContext(), data)
	if err != nil {
		return err
	}

	return c.JSON(analysis)
}

// Get GET /v1/emojifications/:id - returns a stored history record
func (h *EmojifyHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("id must be a UUID"))
	}

	record, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(record)
}

// List GET /v1/emojifications - returns the most recent history records
func (h *EmojifyHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		return domain.ErrValidationFailed.WithError(errors.New("limit must be between 1 and 100"))
	}

	records, err := h.service.List(c.UserContext(), limit)
	if err != nil {
		return err
	}

	return c.JSON(ListResponse{Emojifications: records, Count: len(records)})
}

// Expressions GET /v1/expressions - lists the expressions and their assets
func (h *EmojifyHandler) Expressions(c *fiber.Ctx) error {
	out := make([]ExpressionResponse, 0, len(domain.AllExpressions()))
	for _, e := range domain.AllExpressions() {
		name, _ := emoji.AssetName(e)
		_, available := h.assets.Lookup(e)
		out = append(out, ExpressionResponse{
			Expression: e.String(),
			Asset:      name,
			Available:  available,
		})
	}
	return c.JSON(ExpressionsResponse{Expressions: out})
}

// readImage accepts either a multipart "image" field or a raw image body
func (h *EmojifyHandler) readImage(c *fiber.Ctx) ([]byte, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), "image/") {
		body := c.Body()
		if len(body) == 0 {
			return nil, domain.ErrInvalidImage.WithError(errors.New("empty body"))
		}
		if len(body) > h.maxImageSize {
			return nil, domain.ErrImageTooLarge
		}
		// the body buffer is reused by fasthttp after the handler returns
		return append([]byte(nil), body...), nil
	}

	file, err := c.FormFile("image")
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(errors.New("image file is required"))
	}

	if file.Size > int64(h.maxImageSize) {
		return nil, domain.ErrImageTooLarge
	}

	if file.Size == 0 {
		return nil, domain.ErrInvalidImage.WithError(errors.New("empty file"))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return data, nil
}

func cacheStatus(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}
