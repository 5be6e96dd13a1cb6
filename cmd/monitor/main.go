// Command monitor runs the mock monitoring API in-process and drives a
// dashcore Engine against it: it logs in, polls the dashboard and serves the
// engine's metrics in Prometheus format.
package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/stonixai/dashcore"
	"github.com/stonixai/dashcore/auth"
	"github.com/stonixai/dashcore/metrics/export/prometheus"
	"github.com/stonixai/dashcore/mockapi"
	"github.com/stonixai/dashcore/password"
	"github.com/stonixai/dashcore/session"
)

func main() {
	var (
		apiAddr     = flag.String("api-addr", "127.0.0.1:0", "listen address of the mock monitoring API")
		adminAddr   = flag.String("admin-addr", "127.0.0.1:9090", "listen address of the metrics endpoint; empty disables it")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		username    = flag.String("user", "admin", "login identity")
		secret      = flag.String("password", "admin123", "login secret")
		interval    = flag.Duration("interval", 5*time.Second, "dashboard poll interval")
		rounds      = flag.Int("rounds", 0, "number of polls before exiting; 0 polls until interrupted")
		failureRate = flag.Float64("failure-rate", 0.1, "probability that a mock data request fails")
		seed        = flag.Uint64("seed", uint64(time.Now().UnixNano()), "mock data seed")
	)
	flag.Parse()

	if *interval <= 0 || *rounds < 0 || *failureRate < 0 || *failureRate > 1 {
		fmt.Fprintln(os.Stderr, "interval must be > 0, rounds >= 0 and failure-rate within [0, 1]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, cleanup, err := openRedis(*redisAddr)
	if err != nil {
		log.Fatalf("monitor: %v", err)
	}
	defer cleanup()

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("monitor: assertion key: %v", err)
	}
	assertions := auth.AssertionConfig{Key: key, Issuer: "mockapi", TTL: dashcore.DefaultConfig().Security.SessionTimeout}

	ln, err := net.Listen("tcp", *apiAddr)
	if err != nil {
		log.Fatalf("monitor: listen: %v", err)
	}
	api, err := newMockAPI(assertions, mockapi.Config{
		Seed:        *seed,
		MinLatency:  200 * time.Millisecond,
		MaxLatency:  700 * time.Millisecond,
		FailureRate: *failureRate,
	})
	if err != nil {
		log.Fatalf("monitor: %v", err)
	}
	apiServer := &http.Server{Handler: api, ReadHeaderTimeout: 5 * time.Second}
	go serve(apiServer, ln)
	baseURL := "http://" + ln.Addr().String() + "/api"
	log.Printf("monitor: mock API at %s", baseURL)

	engine, err := buildEngine(client, baseURL, assertions)
	if err != nil {
		log.Fatalf("monitor: build engine: %v", err)
	}
	defer engine.Close()
	engine.Subscribe(func(_ context.Context, ev session.Event) {
		switch ev.Type {
		case session.EventLogin:
			log.Printf("monitor: %s logged in (restored=%v)", ev.User.Username, ev.Restored)
		case session.EventLogout:
			log.Printf("monitor: %s logged out (%s)", ev.User.Username, ev.Reason)
		}
	})

	var adminServer *http.Server
	if *adminAddr != "" {
		adminServer = &http.Server{Addr: *adminAddr, Handler: adminRouter(engine), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("monitor: admin server: %v", err)
			}
		}()
		log.Printf("monitor: metrics at http://%s/metrics", *adminAddr)
	}

	if err := poll(ctx, engine, *username, *secret, *interval, *rounds); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("monitor: %v", err)
	}

	engine.Logout(context.Background())
	shutdown(apiServer, adminServer)
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		log.Printf("monitor: using redis at %s", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	log.Printf("monitor: using miniredis at %s", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func newMockAPI(assertions auth.AssertionConfig, cfg mockapi.Config) (http.Handler, error) {
	hasher, err := password.NewHasher(password.DefaultParams())
	if err != nil {
		return nil, err
	}
	dir, err := auth.NewDemoDirectory(hasher, nil)
	if err != nil {
		return nil, fmt.Errorf("demo directory: %w", err)
	}
	signer, err := auth.NewSigner(assertions)
	if err != nil {
		return nil, fmt.Errorf("assertion signer: %w", err)
	}
	verifier, err := auth.NewVerifier(assertions)
	if err != nil {
		return nil, fmt.Errorf("assertion verifier: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount("/api", mockapi.New(cfg, mockapi.WithLogin(dir, signer), mockapi.WithGuard(verifier)).Handler())
	return r, nil
}

func buildEngine(client redis.UniversalClient, baseURL string, assertions auth.AssertionConfig) (*dashcore.Engine, error) {
	cfg := dashcore.DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = 5 * time.Second
	cfg.Metrics.EnableLatencyHistograms = true

	verifier, err := auth.NewVerifier(assertions)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: cfg.API.Timeout}
	remote, err := auth.NewRemote(baseURL, httpClient, verifier, cfg.API.Header)
	if err != nil {
		return nil, err
	}

	return dashcore.New().
		WithConfig(cfg).
		WithRedis(client).
		WithHTTPClient(httpClient).
		WithAuthenticator(remote).
		WithLogger(log.Default()).
		Build()
}

func adminRouter(engine *dashcore.Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, "/metrics", prometheus.NewPrometheusExporter(engine).Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"state":         engine.State(),
			"authenticated": engine.IsAuthenticated(r.Context()),
		})
	})
	return r
}

func poll(ctx context.Context, engine *dashcore.Engine, username, secret string, interval time.Duration, rounds int) error {
	if !engine.IsAuthenticated(ctx) {
		if _, err := engine.Login(ctx, username, secret, true); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		d, err := engine.LoadDashboard(ctx)
		switch {
		case errors.Is(err, dashcore.ErrNotAuthenticated):
			log.Printf("monitor: session gone, logging in again")
			if _, err := engine.Login(ctx, username, secret, true); err != nil {
				return fmt.Errorf("login: %w", err)
			}
		case err != nil:
			log.Printf("monitor: dashboard unavailable: %v", err)
		default:
			report(ctx, engine, d)
			if _, err := engine.RefreshSession(ctx); err != nil {
				log.Printf("monitor: refresh session: %v", err)
			}
		}

		if rounds > 0 && n >= rounds {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func report(ctx context.Context, engine *dashcore.Engine, d *dashcore.Dashboard) {
	var m mockapi.Metrics
	if err := json.Unmarshal(d.Metrics, &m); err != nil {
		log.Printf("monitor: decode metrics: %v", err)
		return
	}
	var services []mockapi.Service
	_ = json.Unmarshal(d.Services, &services)

	online := 0
	for _, s := range services {
		if s.Status == "online" {
			online++
		}
	}
	mode := "live"
	if d.Offline {
		mode = "offline"
	}
	log.Printf("monitor: [%s] servers %d/%d online, cpu %d%%, memory %.1f/%.0f GB, services %d/%d online",
		mode, m.Servers.Online, m.Servers.Total, m.CPU.Usage, m.Memory.Used, m.Memory.Total, online, len(services))

	if !d.Offline {
		var alerts []mockapi.Alert
		if err := json.Unmarshal(d.Alerts, &alerts); err == nil {
			for _, a := range alerts {
				if a.Severity != "critical" || a.Acknowledged {
					continue
				}
				log.Printf("monitor: critical alert %s: %s", a.Title, a.Message)
				if !engine.HasPermission(dashcore.AckPermission) {
					continue
				}
				if _, err := engine.AcknowledgeAlert(ctx, a.ID); err != nil {
					log.Printf("monitor: acknowledge %s: %v", a.ID, err)
				}
			}
		}
	}
}

func serve(srv *http.Server, ln net.Listener) {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("monitor: api server: %v", err)
	}
}

func shutdown(servers ...*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		if srv == nil {
			continue
		}
		_ = srv.Shutdown(ctx)
	}
}
