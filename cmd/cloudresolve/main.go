package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/poyrazK/cloudDNS/internal/dns/cache"
	"github.com/poyrazK/cloudDNS/internal/dns/server"
	"github.com/poyrazK/cloudDNS/internal/dns/transport"
	"github.com/poyrazK/cloudDNS/internal/dns/workerpool"
	"github.com/poyrazK/cloudDNS/internal/metrics"
)

// poolSampleInterval is how often the worker pool's queue depth and
// active-worker count are copied into the Prometheus gauges.
const poolSampleInterval = 5 * time.Second

var (
	mode        = flag.String("mode", "recursive", "resolution mode: recursive or forward")
	upstream    = flag.String("server", "", "upstream HOST (or host:port), required when -mode=forward; a bare host dials port 53")
	threadCount = flag.Int("thread-count", 5, "number of worker goroutines handling queries")
	udpAddr     = flag.String("udp-addr", ":2053", "UDP listen address")
	tcpAddr     = flag.String("tcp-addr", ":2053", "TCP listen address")
	metricsAddr = flag.String("metrics-addr", ":9153", "Prometheus metrics listen address, empty or 0 disables")
	logLevel    = flag.String("log-level", "info", "log level: debug, info, warn, or error")
	redisAddr   = flag.String("redis-addr", "", "optional Redis cache address (host:port), disabled if empty")
)

func main() {
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	sc, err := buildContext(ctx, logger)
	if err != nil {
		return err
	}
	defer sc.Pool.Close()

	udpConn, err := listenUDP(*udpAddr)
	if err != nil {
		return fmt.Errorf("listen udp %s: %w", *udpAddr, err)
	}
	tcpListener, err := listenTCP(*tcpAddr)
	if err != nil {
		return fmt.Errorf("listen tcp %s: %w", *tcpAddr, err)
	}

	logger.Info("cloudresolve starting",
		"mode", *mode,
		"udp_addr", *udpAddr,
		"tcp_addr", *tcpAddr,
		"metrics_addr", *metricsAddr,
		"thread_count", *threadCount,
	)

	errCh := make(chan error, 3)
	go func() { errCh <- server.ServeUDP(ctx, sc, udpConn) }()
	go func() { errCh <- server.ServeTCP(ctx, sc, tcpListener) }()
	go samplePoolMetrics(ctx, sc.Pool)

	metricsSrv := &http.Server{
		Addr:              *metricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if *metricsAddr != "" && *metricsAddr != "0" {
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	return nil
}

// samplePoolMetrics periodically copies the worker pool's queue depth and
// active-worker count into their Prometheus gauges, until ctx is canceled.
func samplePoolMetrics(ctx context.Context, pool *workerpool.Pool) {
	ticker := time.NewTicker(poolSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.WorkerPoolQueueDepth.Set(float64(pool.QueueDepth()))
			metrics.WorkerPoolActive.Set(float64(pool.Active()))
		}
	}
}

func buildContext(ctx context.Context, logger *slog.Logger) (*server.Context, error) {
	var resolveMode server.Mode
	switch *mode {
	case "recursive":
		resolveMode = server.ModeRecursive
	case "forward":
		resolveMode = server.ModeForward
		if *upstream == "" {
			return nil, fmt.Errorf("-server is required when -mode=forward")
		}
	default:
		return nil, fmt.Errorf("unknown -mode %q, must be recursive or forward", *mode)
	}

	var dnsCache *cache.Redis
	if *redisAddr != "" {
		dnsCache = cache.NewRedis(*redisAddr, "", 0)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := dnsCache.Ping(pingCtx); err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", *redisAddr, err)
		}
		logger.Info("connected to redis cache", "addr", *redisAddr)
	}

	sc := &server.Context{
		Mode:           resolveMode,
		Upstream:       *upstream,
		AllowRecursion: true,
		Client:         transport.NewClient(),
		Pool:           workerpool.New(*threadCount, 256),
		Logger:         logger,
	}
	if dnsCache != nil {
		sc.Cache = dnsCache
	}
	return sc, nil
}

func listenUDP(addr string) (*net.UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	if err := server.TuneSocketBuffers(conn); err != nil {
		slog.Default().Warn("could not raise udp socket buffer size", "error", err)
	}
	return conn, nil
}

func listenTCP(addr string) (*net.TCPListener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	return net.ListenTCP("tcp", tcpAddr)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
