package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/mfs/internal/config"
	"github.com/any-hub/mfs/internal/logging"
	"github.com/any-hub/mfs/internal/memfs"
	"github.com/any-hub/mfs/internal/server"
	"github.com/any-hub/mfs/internal/server/routes"
	"github.com/any-hub/mfs/internal/version"
)

// shutdownTimeout 限制退出时等待后台任务与最终落盘的时间。
const shutdownTimeout = 30 * time.Second

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["root"] = cfg.Cache.RootPath
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 根目录 → 内存缓存（同步批量加载）→ Fiber server，
	// 退出时先停止 HTTP，再关闭缓存完成最终落盘。
	if err := os.MkdirAll(cfg.Cache.RootPath, 0o755); err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	cache, err := newCache(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化内存缓存失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["root"] = cfg.Cache.RootPath
	fields["recursive"] = cfg.Cache.Recursive
	fields["resident"] = cache.Stats().Resident
	fields["listen_port"] = cfg.Global.ListenPort
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	serveErr := startHTTPServer(cfg, cache, logger)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := cache.Close(ctx); err != nil {
		logger.WithError(err).WithField("action", "shutdown").Error("缓存关闭失败")
		return 1
	}
	logger.WithField("action", "shutdown").Info("缓存已落盘并关闭")

	if serveErr != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", serveErr)
		return 1
	}
	return 0
}

// newCache 把配置映射为 memfs.Options 并完成初始加载。
func newCache(cfg *config.Config, logger *logrus.Logger) (*memfs.Cache, error) {
	return memfs.New(memfs.Options{
		Root:          cfg.Cache.RootPath,
		Recursive:     cfg.Cache.Recursive,
		BaseDir:       cfg.Cache.RootPath,
		FlushInterval: cfg.Cache.FlushInterval.DurationValue(),
		IdleThreshold: cfg.Cache.IdleThreshold.DurationValue(),
		EvictInterval: cfg.Cache.EffectiveEvictInterval(),
		FlushOnClose:  cfg.Cache.FlushOnClose,
		Logger:        logger,
	})
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("mfs", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 MFS_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("MFS_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

// startHTTPServer 阻塞直到收到 SIGINT/SIGTERM 或监听失败。
func startHTTPServer(cfg *config.Config, cache *memfs.Cache, logger *logrus.Logger) error {
	resolver, err := server.NewPathResolver(cfg.Cache.RootPath)
	if err != nil {
		return err
	}

	app, err := server.NewApp(server.AppOptions{
		Logger:   logger,
		Cache:    cache,
		Resolver: resolver,
	})
	if err != nil {
		return err
	}
	routes.RegisterDiagnosticsRoutes(app, cache, resolver, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.WithField("action", "shutdown").Info("收到退出信号")
		_ = app.Shutdown()
	}()

	port := cfg.Global.ListenPort
	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port), fiber.ListenConfig{DisableStartupMessage: true})
}
