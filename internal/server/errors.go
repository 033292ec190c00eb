package server

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/mfs/internal/disk"
	"github.com/any-hub/mfs/internal/memfs"
)

// ErrorStatus 把缓存与磁盘层的错误映射为 HTTP 状态码与错误码。
func ErrorStatus(err error) (int, string) {
	var ioErr *disk.IOError
	switch {
	case errors.Is(err, ErrInvalidPath):
		return fiber.StatusBadRequest, "invalid_path"
	case errors.Is(err, disk.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, memfs.ErrNotResident):
		return fiber.StatusNotFound, "not_resident"
	case errors.As(err, &ioErr):
		return fiber.StatusInternalServerError, "io_error"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

// RenderError 输出统一的 JSON 错误体。
func RenderError(c fiber.Ctx, err error) error {
	status, code := ErrorStatus(err)
	return c.Status(status).JSON(fiber.Map{
		"error":  code,
		"detail": err.Error(),
	})
}
