package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/mfs/internal/logging"
	"github.com/any-hub/mfs/internal/memfs"
	"github.com/any-hub/mfs/internal/server"
	"github.com/any-hub/mfs/internal/value"
)

func TestEntriesListingAndClearAll(t *testing.T) {
	app, cache, root := newDiagnosticsApp(t)
	cache.Write(filepath.Join(root, "b.txt"), value.String("b"))
	cache.Write(filepath.Join(root, "a.json"), value.Bool(true))

	resp := send(t, app, "GET", "/-/entries")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Entries []entryPayload `json:"entries"`
		Stats   memfs.Stats    `json:"stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(payload.Entries) != 2 || payload.Entries[0].Path != "a.json" || payload.Entries[0].Kind != "boolean" {
		t.Fatalf("unexpected entries %+v", payload.Entries)
	}
	if payload.Stats.Resident != 2 {
		t.Fatalf("unexpected stats %+v", payload.Stats)
	}

	resp = send(t, app, "DELETE", "/-/entries")
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if len(cache.Entries()) != 0 {
		t.Fatalf("clear all should drop every entry")
	}
}

func TestKindAndExists(t *testing.T) {
	app, cache, root := newDiagnosticsApp(t)
	num, _ := value.Number(42)
	cache.Write(filepath.Join(root, "n"), num)

	resp := send(t, app, "GET", "/-/kind/n")
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(body), `"kind":"number"`) {
		t.Fatalf("unexpected kind response %d %s", resp.StatusCode, string(body))
	}

	resp = send(t, app, "GET", "/-/kind/missing")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for non-resident path, got %d", resp.StatusCode)
	}

	resp = send(t, app, "GET", "/-/exists/missing")
	body, _ = io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"exists":false`) {
		t.Fatalf("unexpected exists body %s", string(body))
	}
	if cache.Exists(filepath.Join(root, "missing")) {
		t.Fatalf("exists must not load from disk")
	}
}

func TestFlushAndPersist(t *testing.T) {
	app, cache, root := newDiagnosticsApp(t)
	cache.Write(filepath.Join(root, "one.txt"), value.String("1"))

	resp := send(t, app, "POST", "/-/persist/one.txt")
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if body, _ := os.ReadFile(filepath.Join(root, "one.txt")); string(body) != "1" {
		t.Fatalf("persist should write the file, got %q", string(body))
	}

	resp = send(t, app, "POST", "/-/persist/ghost")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for non-resident persist, got %d", resp.StatusCode)
	}

	cache.Write(filepath.Join(root, "two.json"), mustObject(t, map[string]any{"k": "v"}))
	resp = send(t, app, "POST", "/-/flush")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Flushed int      `json:"flushed"`
		Errors  []string `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Flushed != 2 || len(payload.Errors) != 0 {
		t.Fatalf("unexpected flush payload %+v", payload)
	}
}

func TestFlushReportsFailures(t *testing.T) {
	app, cache, root := newDiagnosticsApp(t)
	blocked := filepath.Join(root, "blocked")
	if err := os.Mkdir(blocked, 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}
	cache.Write(blocked, value.String("x"))

	resp := send(t, app, "POST", "/-/flush")
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestLoad(t *testing.T) {
	app, cache, root := newDiagnosticsApp(t)
	writeFixture(t, filepath.Join(root, "sub", "a.txt"), "hello")
	writeFixture(t, filepath.Join(root, "sub", "deep", "b.txt"), "7")

	resp := send(t, app, "POST", "/-/load/sub")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !cache.Exists(filepath.Join(root, "sub", "a.txt")) || cache.Exists(filepath.Join(root, "sub", "deep", "b.txt")) {
		t.Fatalf("non-recursive load mismatch: %+v", cache.Entries())
	}

	resp = send(t, app, "POST", "/-/load/sub?recursive=true")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if kind, _ := cache.Kind(filepath.Join(root, "sub", "deep", "b.txt")); kind != value.KindNumber {
		t.Fatalf("recursive load should include nested number, got %s", kind)
	}

	resp = send(t, app, "POST", "/-/load/absent-dir")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for missing load target, got %d", resp.StatusCode)
	}

	resp = send(t, app, "POST", "/-/load/sub?recursive=maybe")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for bad recursive flag, got %d", resp.StatusCode)
	}
}

func newDiagnosticsApp(t *testing.T) (*fiber.App, *memfs.Cache, string) {
	t.Helper()

	root := t.TempDir()
	cache, err := memfs.New(memfs.Options{BaseDir: root, FlushInterval: -1, EvictInterval: -1})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close(context.Background()) })

	resolver, err := server.NewPathResolver(root)
	if err != nil {
		t.Fatalf("failed to create resolver: %v", err)
	}

	logger := logging.Discard()
	app, err := server.NewApp(server.AppOptions{Logger: logger, Cache: cache, Resolver: resolver})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	RegisterDiagnosticsRoutes(app, cache, resolver, logger)
	return app, cache, resolver.Root()
}

func send(t *testing.T, app *fiber.App, method, target string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, "http://mfs.local"+target, nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	return resp
}

func mustObject(t *testing.T, v any) value.Value {
	t.Helper()
	obj, err := value.Object(v)
	if err != nil {
		t.Fatalf("object error: %v", err)
	}
	return obj
}

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture error: %v", err)
	}
}
