package routes

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/any-hub/mfs/internal/memfs"
	"github.com/any-hub/mfs/internal/server"
)

// RegisterDiagnosticsRoutes 暴露 /-/ 诊断接口：条目列表、类型查询、手动落盘与加载。
func RegisterDiagnosticsRoutes(app *fiber.App, cache *memfs.Cache, resolver *server.PathResolver, logger *logrus.Logger) {
	if app == nil || cache == nil || resolver == nil || logger == nil {
		return
	}

	d := &diagnostics{cache: cache, resolver: resolver, logger: logger}
	app.Get("/-/entries", d.listEntries)
	app.Delete("/-/entries", d.clearAll)
	app.Get("/-/kind/*", d.kind)
	app.Get("/-/exists/*", d.exists)
	app.Post("/-/flush", d.flush)
	app.Post("/-/persist/*", d.persist)
	app.Post("/-/load/*", d.load)
}

type diagnostics struct {
	cache    *memfs.Cache
	resolver *server.PathResolver
	logger   *logrus.Logger
}

type entryPayload struct {
	Path       string `json:"path"`
	Kind       string `json:"kind"`
	LastAccess string `json:"last_access"`
}

func (d *diagnostics) listEntries(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"entries": encodeEntries(d.cache.Entries(), d.resolver),
		"stats":   d.cache.Stats(),
	})
}

func (d *diagnostics) clearAll(c fiber.Ctx) error {
	d.cache.Clear()
	d.logger.WithFields(logrus.Fields{
		"action":     "clear_all",
		"request_id": server.RequestID(c),
	}).Info("cache cleared")
	return c.SendStatus(fiber.StatusNoContent)
}

func (d *diagnostics) kind(c fiber.Ctx) error {
	target, err := d.resolver.Resolve(c.Params("*"))
	if err != nil {
		return server.RenderError(c, err)
	}
	kind, ok := d.cache.Kind(target)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_resident"})
	}
	return c.JSON(fiber.Map{
		"path": d.resolver.Relative(target),
		"kind": kind,
	})
}

func (d *diagnostics) exists(c fiber.Ctx) error {
	target, err := d.resolver.Resolve(c.Params("*"))
	if err != nil {
		return server.RenderError(c, err)
	}
	return c.JSON(fiber.Map{
		"path":   d.resolver.Relative(target),
		"exists": d.cache.Exists(target),
	})
}

func (d *diagnostics) flush(c fiber.Ctx) error {
	flushed, err := d.cache.PersistAll()
	failures := make([]string, 0)
	for _, pathErr := range multierr.Errors(err) {
		failures = append(failures, pathErr.Error())
	}

	fields := logrus.Fields{
		"action":     "manual_flush",
		"request_id": server.RequestID(c),
		"flushed":    flushed,
		"failed":     len(failures),
	}
	status := fiber.StatusOK
	if len(failures) > 0 {
		status = fiber.StatusInternalServerError
		d.logger.WithFields(fields).Warn("flush incomplete")
	} else {
		d.logger.WithFields(fields).Info("flush complete")
	}

	return c.Status(status).JSON(fiber.Map{
		"flushed": flushed,
		"errors":  failures,
	})
}

func (d *diagnostics) persist(c fiber.Ctx) error {
	target, err := d.resolver.Resolve(c.Params("*"))
	if err != nil {
		return server.RenderError(c, err)
	}
	if err := d.cache.Persist(target); err != nil {
		return server.RenderError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (d *diagnostics) load(c fiber.Ctx) error {
	target, err := d.resolver.Resolve(c.Params("*"))
	if err != nil {
		return server.RenderError(c, err)
	}

	recursive := false
	if raw := string(c.Request().URI().QueryArgs().Peek("recursive")); raw != "" {
		recursive, err = strconv.ParseBool(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_recursive"})
		}
	}

	if err := d.cache.LoadPath(target, recursive); err != nil {
		return server.RenderError(c, err)
	}
	return c.JSON(fiber.Map{
		"path":      d.resolver.Relative(target),
		"recursive": recursive,
		"resident":  len(d.cache.Entries()),
	})
}

func encodeEntries(entries []memfs.EntryInfo, resolver *server.PathResolver) []entryPayload {
	result := make([]entryPayload, 0, len(entries))
	for _, e := range entries {
		result = append(result, entryPayload{
			Path:       resolver.Relative(e.Path),
			Kind:       string(e.Kind),
			LastAccess: e.LastAccess.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	return result
}
