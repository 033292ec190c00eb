package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/mfs/internal/logging"
	"github.com/any-hub/mfs/internal/memfs"
	"github.com/any-hub/mfs/internal/value"
)

// AppOptions controls how the Fiber application exposes the cache.
type AppOptions struct {
	Logger   *logrus.Logger
	Cache    *memfs.Cache
	Resolver *PathResolver
}

const contextKeyRequestID = "_mfs_request_id"

// dataPayload 是读取接口的响应体。
type dataPayload struct {
	Path  string      `json:"path"`
	Kind  value.Kind  `json:"kind"`
	Value value.Value `json:"value"`
}

// NewApp builds a Fiber application with request-id/logging middleware and
// the /data/* routes.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("cache is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("path resolver is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))

	h := &dataHandler{cache: opts.Cache, resolver: opts.Resolver}
	app.Get("/data/*", h.read)
	app.Put("/data/*", h.write)
	app.Delete("/data/*", h.clear)

	return app, nil
}

// requestContextMiddleware 生成请求 ID 并在请求结束后输出结构化访问日志。
func requestContextMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		fields := logging.RequestFields(reqID, c.Method(), string(c.Request().URI().Path()), c.Response().StatusCode(), time.Since(start))
		if err != nil {
			logger.WithError(err).WithFields(fields).Error("request_failed")
			return err
		}
		logger.WithFields(fields).Debug("request_complete")
		return nil
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if raw := c.Locals(contextKeyRequestID); raw != nil {
		if reqID, ok := raw.(string); ok {
			return reqID
		}
	}
	return ""
}

type dataHandler struct {
	cache    *memfs.Cache
	resolver *PathResolver
}

func (h *dataHandler) target(c fiber.Ctx) (string, error) {
	raw := c.Params("*")
	if raw == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	return h.resolver.Resolve(raw)
}

func (h *dataHandler) read(c fiber.Ctx) error {
	target, err := h.target(c)
	if err != nil {
		return RenderError(c, err)
	}
	v, err := h.cache.Read(target)
	if err != nil {
		return RenderError(c, err)
	}
	return c.JSON(dataPayload{
		Path:  h.resolver.Relative(target),
		Kind:  v.Kind(),
		Value: v,
	})
}

func (h *dataHandler) write(c fiber.Ctx) error {
	target, err := h.target(c)
	if err != nil {
		return RenderError(c, err)
	}
	v, err := decodeBody(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "invalid_body",
			"detail": err.Error(),
		})
	}
	h.cache.Write(target, v)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *dataHandler) clear(c fiber.Ctx) error {
	target, err := h.target(c)
	if err != nil {
		return RenderError(c, err)
	}
	h.cache.Clear(target)
	return c.SendStatus(fiber.StatusNoContent)
}

// decodeBody 在 Content-Type 为 JSON 时按运行时形状推断类型，否则原样作为字符串。
func decodeBody(c fiber.Ctx) (value.Value, error) {
	body := c.Body()
	contentType := c.Request().Header.ContentType()
	if !bytes.HasPrefix(bytes.ToLower(contentType), []byte(fiber.MIMEApplicationJSON)) {
		return value.String(string(body)), nil
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return value.Value{}, fmt.Errorf("decode json body: %w", err)
	}
	if decoder.More() {
		return value.Value{}, errors.New("trailing data after json body")
	}
	return value.Of(raw)
}
