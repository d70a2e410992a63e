package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/clovershop/backoffice/db"
	"github.com/clovershop/backoffice/internal/access"
	"github.com/clovershop/backoffice/internal/catalog"
	"github.com/clovershop/backoffice/internal/checkout"
	"github.com/clovershop/backoffice/internal/common"
	"github.com/clovershop/backoffice/internal/config"
	"github.com/clovershop/backoffice/internal/coupon"
	"github.com/clovershop/backoffice/internal/discount"
	"github.com/clovershop/backoffice/internal/events"
	"github.com/clovershop/backoffice/internal/health"
	"github.com/clovershop/backoffice/internal/lock"
	"github.com/clovershop/backoffice/internal/obs"
	"github.com/clovershop/backoffice/internal/order"
	"github.com/clovershop/backoffice/internal/pricing"
	"github.com/clovershop/backoffice/internal/ratelimit"
	"github.com/clovershop/backoffice/internal/security"
	"github.com/clovershop/backoffice/internal/shop"
	"github.com/clovershop/backoffice/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "backoffice-api",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "backoffice-api"
	poolConfig.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	validate := validator.New()

	shopRepo := shop.Repo{Pool: pool}
	shopResolver := shop.NewResolver(cfg.ShopHeader, cfg.RootDomain, cfg.DefaultShop)

	bus := &events.Bus{
		Store:     events.PGStore{Pool: pool},
		Notifiers: []events.Notifier{&tasks.Notifier{Client: taskClient, Queue: cfg.WorkerQueue}},
	}

	catalogRepo := catalog.Repo{Pool: pool}
	catalogSvc := &catalog.Service{
		Store: catalogRepo,
		Cache: catalog.NewCache(redisClient, cfg.ProductCacheTTL),
	}
	catalogHandler := &catalog.Handler{Svc: catalogSvc, Validate: validate, DefaultPerPage: 20}

	discountRepo := discount.Repo{Pool: pool}
	discountHandler := &discount.Handler{
		Store:    discountRepo,
		Validate: validate,
		Events:   bus,
		Log:      logger.With().Str("component", "discount").Logger(),
	}

	couponRepo := coupon.Repo{Pool: pool}
	couponHandler := &coupon.Handler{Store: couponRepo, Validate: validate}

	pricer := &pricing.Service{
		Catalog:   catalogSvc,
		Discounts: discountRepo,
		Coupons:   couponRepo,
		Shops:     shopRepo,
	}
	quoteHandler := &pricing.Handler{Svc: pricer, Validate: validate}

	orderRepo := order.Repo{Pool: pool}
	orderHandler := &order.Handler{Store: orderRepo, Validate: validate, Events: bus, DefaultPerPage: 20}

	checkoutSvc := &checkout.Service{
		DB:        pool,
		Pricer:    pricer,
		Orders:    orderRepo,
		Inventory: catalogRepo,
		Coupons:   couponRepo,
		Shops:     shopRepo,
		Events:    bus,
		Locker:    &lock.Locker{R: redisClient},
		LockTTL:   cfg.CheckoutLockTTL,
		Log:       logger.With().Str("component", "checkout").Logger(),

		LowStockThreshold: cfg.LowStockThreshold,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc, Validate: validate}

	idem := common.Idem{
		R:   redisClient,
		TTL: cfg.IdempotencyTTL,
		Scope: func(r *http.Request) string {
			shopID, _ := shop.FromContext(r.Context())
			return shopID
		},
	}

	checkoutLimiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:checkout:"},
		Config: ratelimit.Config{
			Key: func(r *http.Request) string {
				if shopID, ok := shop.FromContext(r.Context()); ok {
					return shopID + ":" + common.ClientIP(r)
				}
				return common.ClientIP(r)
			},
			Window: cfg.CheckoutWindow,
			Max:    int(cfg.CheckoutRate),
		},
		OnError: func(err error) { logger.Error().Err(err).Msg("checkout rate limit") },
	}

	limiterStore, err := limiterredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "rl:admin"})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise limiter store")
	}
	adminLimiter := limiterstdlib.NewMiddleware(limiter.New(limiterStore, limiter.Rate{
		Period: cfg.AdminRatePeriod,
		Limit:  cfg.AdminRateLimit,
	}))

	grantResolver := staffGrantResolver(shopRepo)

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", cfg.ShopHeader, "X-Staff-Role"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", true) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(shopResolver.Middleware)
		v.Use(shop.RequireShop(shopRepo))

		v.Get("/products", catalogHandler.List)
		v.Get("/products/{id}", catalogHandler.Get)
		v.Get("/products/{id}/variants", catalogHandler.ListVariants)
		v.Get("/categories", catalogHandler.ListCategories)

		v.Post("/coupons/validate", couponHandler.Preview)
		v.Post("/pricing/quote", quoteHandler.Quote)
		v.With(checkoutLimiter.Middleware, idem.Middleware).Post("/checkout", checkoutHandler.Checkout)

		v.Get("/orders", orderHandler.List)
		v.Get("/orders/{id}", orderHandler.Get)

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(adminLimiter.Handler)

			admin.Group(func(g chi.Router) {
				g.Use(access.RequireFeature(access.FeatureProducts, grantResolver))
				g.Post("/products", catalogHandler.Create)
				g.Patch("/products/{id}", catalogHandler.Update)
				g.Delete("/products/{id}", catalogHandler.Delete)
				g.Post("/products/{id}/variants", catalogHandler.CreateVariant)
				g.Delete("/products/{id}/variants/{variantId}", catalogHandler.DeleteVariant)
			})

			admin.Group(func(g chi.Router) {
				g.Use(access.RequireFeature(access.FeatureCategories, grantResolver))
				g.Post("/categories", catalogHandler.CreateCategory)
				g.Delete("/categories/{id}", catalogHandler.DeleteCategory)
			})

			admin.Group(func(g chi.Router) {
				g.Use(access.RequireFeature(access.FeatureDiscounts, grantResolver))
				g.Get("/discounts", discountHandler.List)
				g.Post("/discounts", discountHandler.Create)
				g.Patch("/discounts/{id}", discountHandler.Update)
				g.Delete("/discounts/{id}", discountHandler.Delete)
			})

			admin.Group(func(g chi.Router) {
				g.Use(access.RequireFeature(access.FeatureDiscountCodes, grantResolver))
				g.Get("/coupons", couponHandler.List)
				g.Post("/coupons", couponHandler.Create)
				g.Patch("/coupons/{id}", couponHandler.Update)
				g.Delete("/coupons/{id}", couponHandler.Delete)
			})

			admin.With(access.RequireFeature(access.FeatureOrders, grantResolver)).
				Patch("/orders/{id}/status", orderHandler.PatchStatus)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

// staffGrantResolver reads the staff role from the request header and the
// plan from the shop row resolved earlier in the middleware chain.
func staffGrantResolver(repo shop.Repo) access.GrantResolver {
	return func(r *http.Request) (access.Grant, bool) {
		role := access.Role(strings.ToLower(strings.TrimSpace(r.Header.Get("X-Staff-Role"))))
		switch role {
		case "":
			role = access.RoleOwner
		case access.RoleOwner, access.RoleAdmin, access.RoleStaff, access.RoleViewer:
		default:
			return access.Grant{}, false
		}
		sh, err := repo.Current(r.Context())
		if err != nil {
			return access.Grant{}, false
		}
		plan := access.Plan(sh.Plan)
		switch plan {
		case access.PlanFree, access.PlanBasic, access.PlanGrowth:
		default:
			plan = access.PlanFree
		}
		return access.Grant{Role: role, Plan: plan}, true
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
