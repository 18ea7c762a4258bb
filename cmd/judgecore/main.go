// Command judgecore starts a http server that compiles C submissions and
// runs or judges them against test cases under resource limits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/npuboj/judgecore/cmd/judgecore/config"
	restexecutor "github.com/npuboj/judgecore/cmd/judgecore/rest_executor"
	"github.com/npuboj/judgecore/cmd/judgecore/version"
	"github.com/npuboj/judgecore/env"
	"github.com/npuboj/judgecore/envexec"
	"github.com/npuboj/judgecore/language"
	"github.com/npuboj/judgecore/runner"
	"github.com/npuboj/judgecore/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

var logger *zap.Logger

func main() {
	conf := loadConf()
	if conf.Version {
		fmt.Println(version.Version)
		return
	}
	initLogger(conf)
	defer logger.Sync()
	if ce := logger.Check(zap.InfoLevel, "Config loaded"); ce != nil {
		ce.Write(zap.String("config", fmt.Sprintf("%+v", conf)))
	}
	warnIfNotLinux()

	workDirCleanUp := prepareWorkDir(conf)
	gw := newGateway(conf)
	work := newWorker(conf, gw)
	logger.Info("Worker started",
		zap.Int("parallelism", conf.Parallelism),
		zap.String("dir", conf.WorkDir),
		zap.String("compiler", conf.Compiler))

	servers := []initFunc{
		cleanUpWorker(work, workDirCleanUp),
		initHTTPServer(conf, work),
		initMonitorHTTPServer(conf),
	}

	// Gracefully shutdown, with signal / HTTP server / Monitor HTTP server
	sig := make(chan os.Signal, 1+len(servers))

	// worker and work dir clean up func
	stops := []stopFunc{}
	for _, s := range servers {
		start, stop := s()
		if start != nil {
			go func() {
				start()
				sig <- os.Interrupt
			}()
		}
		if stop != nil {
			stops = append(stops, stop)
		}
	}

	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	signal.Reset(syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Shutting Down...")

	ctx, cancel := context.WithTimeout(context.TODO(), time.Second*3)
	defer cancel()

	var eg errgroup.Group
	for _, s := range stops {
		eg.Go(func() error {
			return s(ctx)
		})
	}

	go func() {
		logger.Info("Shutdown Finished", zap.Error(eg.Wait()))
		cancel()
	}()
	<-ctx.Done()
}

func warnIfNotLinux() {
	if runtime.GOOS != "linux" {
		logger.Warn("Platform is not supported", zap.String("GOOS", runtime.GOOS))
		logger.Warn("Gateways are only available on Linux")
	}
}

func loadConf() *config.Config {
	var conf config.Config
	if err := conf.Load(); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalln("load config failed ", err)
	}
	return &conf
}

type (
	stopFunc func(ctx context.Context) error
	initFunc func() (start func(), cleanUp stopFunc)
)

// cleanUpWorker stops the worker, the default work dir is removed after it
func cleanUpWorker(work worker.Worker, workDirCleanUp func() error) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		return nil, func(ctx context.Context) error {
			work.Shutdown()
			logger.Info("Worker shutdown")
			if workDirCleanUp == nil {
				return nil
			}
			err := workDirCleanUp()
			logger.Info("Work dir cleaned up", zap.Error(err))
			return err
		}
	}
}

func initHTTPServer(conf *config.Config, work worker.Worker) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		// Init http handle
		r := initHTTPMux(conf, work)
		srv := http.Server{
			Addr:    conf.HTTPAddr,
			Handler: r,
		}

		return func() {
				logger.Info("Starting http server", zap.String("addr", conf.HTTPAddr))
				if err := srv.ListenAndServe(); errors.Is(err, http.ErrServerClosed) {
					logger.Info("Http server stopped", zap.Error(err))
				} else {
					logger.Error("Http server stopped", zap.Error(err))
				}
			}, func(ctx context.Context) error {
				logger.Info("Http server shutting down")
				return srv.Shutdown(ctx)
			}
	}
}

func initMonitorHTTPServer(conf *config.Config) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		// Init monitor HTTP server
		mr := initMonitorHTTPMux(conf)
		if mr == nil {
			return nil, nil
		}
		msrv := http.Server{
			Addr:    conf.MonitorAddr,
			Handler: mr,
		}
		return func() {
				logger.Info("Starting monitoring http server", zap.String("addr", conf.MonitorAddr))
				logger.Info("Monitoring http server stopped", zap.Error(msrv.ListenAndServe()))
			}, func(ctx context.Context) error {
				logger.Info("Monitoring http server shutdown")
				return msrv.Shutdown(ctx)
			}
	}
}

func initLogger(conf *config.Config) {
	if conf.Silent {
		logger = zap.NewNop()
		return
	}

	var err error
	if conf.Release {
		logger, err = zap.NewProduction()
	} else {
		config := zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if !conf.EnableDebug {
			config.Level.SetLevel(zap.InfoLevel)
		}
		logger, err = config.Build()
	}
	if err != nil {
		log.Fatalln("init logger failed ", err)
	}
}

// prepareWorkDir creates a temporary work dir when none is configured and
// returns its clean up
func prepareWorkDir(conf *config.Config) func() error {
	if conf.WorkDir != "" {
		if err := os.MkdirAll(conf.WorkDir, 0o755); err != nil {
			logger.Fatal("Failed to create work dir", zap.Error(err))
		}
		return nil
	}
	dir, err := os.MkdirTemp("", "judgecore")
	if err != nil {
		logger.Fatal("Failed to create default work dir", zap.Error(err))
	}
	conf.WorkDir = dir
	return func() error {
		return os.RemoveAll(dir)
	}
}

func newGateway(conf *config.Config) envexec.Gateway {
	gw, err := env.NewGateway(env.Config{
		Trusted:          conf.Trusted,
		SeccompConf:      conf.SeccompConf,
		ExtraMemoryLimit: *conf.ExtraMemoryLimit,
	}, logger)
	if err != nil {
		logger.Fatal("Create gateway failed", zap.Error(err))
	}
	return gw
}

func newWorker(conf *config.Config, gw envexec.Gateway) worker.Worker {
	flags, err := conf.CompilerArgs()
	if err != nil {
		logger.Fatal("Invalid compiler flags", zap.Error(err))
	}
	opts := []runner.Option{
		runner.WithCompiler(conf.Compiler),
		runner.WithCompilerFlags(flags),
		runner.WithLogger(logger),
		runner.WithOutputLimit(*conf.OutputLimit),
		runner.WithCompileTimeout(conf.CompileTimeout),
		runner.WithStopOnSandboxError(conf.StopOnSandboxError),
	}
	var observer func(worker.Response)
	if conf.EnableMetrics {
		opts = append(opts, runner.WithObserver(outcomeObserve))
		observer = execObserve
	}
	w := worker.New(worker.Config{
		Builder: func(dir string) (language.Strategy, error) {
			c, err := runner.NewCCompiler(dir, gw, opts...)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Parallelism:  conf.Parallelism,
		WorkDir:      conf.WorkDir,
		Logger:       logger,
		ExecObserver: observer,
	})
	if err := w.Start(); err != nil {
		logger.Fatal("Start worker failed", zap.Error(err))
	}
	return w
}

func initHTTPMux(conf *config.Config, work worker.Worker) http.Handler {
	var r *gin.Engine
	if conf.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	r = gin.New()
	r.Use(ginzap.Ginzap(logger, "", false))
	r.Use(ginzap.RecoveryWithZap(logger, true))

	// Metrics Handle
	if conf.EnableMetrics {
		initGinMetrics(r)
	}

	// Version handle
	r.GET("/version", generateHandleVersion(conf))

	// Config handle
	r.GET("/config", generateHandleConfig(conf))

	// Add auth token
	if conf.AuthToken != "" {
		r.Use(tokenAuth(conf.AuthToken))
		logger.Info("Attach token auth")
	}

	// Rest Handle
	judgeHandle := restexecutor.NewJudgeHandle(work, logger)
	judgeHandle.Register(r)

	return r
}

func initMonitorHTTPMux(conf *config.Config) http.Handler {
	if !conf.EnableMetrics && !conf.EnableDebug {
		return nil
	}
	mux := http.NewServeMux()
	if conf.EnableMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	if conf.EnableDebug {
		initDebugRoute(mux)
	}
	return mux
}

func initDebugRoute(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
}

func initGinMetrics(r *gin.Engine) {
	p := ginprometheus.NewWithConfig(ginprometheus.Config{
		Subsystem:          "gin",
		DisableBodyReading: true,
	})
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		return c.FullPath()
	}
	r.Use(p.HandlerFunc())
}

func tokenAuth(token string) gin.HandlerFunc {
	const bearer = "Bearer "
	return func(c *gin.Context) {
		reqToken := c.GetHeader("Authorization")
		if strings.HasPrefix(reqToken, bearer) && reqToken[len(bearer):] == token {
			c.Next()
			return
		}
		c.AbortWithStatus(http.StatusUnauthorized)
	}
}

func generateHandleVersion(_ *config.Config) func(*gin.Context) {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"buildVersion": version.Version,
			"goVersion":    runtime.Version(),
			"platform":     runtime.GOARCH,
			"os":           runtime.GOOS,
			"languages":    []string{language.C{}.Name()},
		})
	}
}

func generateHandleConfig(conf *config.Config) func(*gin.Context) {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"parallelism":        conf.Parallelism,
			"compiler":           conf.Compiler,
			"compilerFlags":      conf.CompilerFlags,
			"compileTimeout":     conf.CompileTimeout.String(),
			"trusted":            conf.Trusted,
			"outputLimit":        conf.OutputLimit.String(),
			"extraMemoryLimit":   conf.ExtraMemoryLimit.String(),
			"stopOnSandboxError": conf.StopOnSandboxError,
		})
	}
}
