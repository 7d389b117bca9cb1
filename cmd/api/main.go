package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limitermw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rizki-dev/backend-warung/internal/analytics"
	"github.com/rizki-dev/backend-warung/internal/app"
	"github.com/rizki-dev/backend-warung/internal/audit"
	"github.com/rizki-dev/backend-warung/internal/auth"
	"github.com/rizki-dev/backend-warung/internal/bill"
	"github.com/rizki-dev/backend-warung/internal/common"
	"github.com/rizki-dev/backend-warung/internal/config"
	"github.com/rizki-dev/backend-warung/internal/events"
	"github.com/rizki-dev/backend-warung/internal/favorites"
	"github.com/rizki-dev/backend-warung/internal/health"
	"github.com/rizki-dev/backend-warung/internal/lock"
	"github.com/rizki-dev/backend-warung/internal/notify"
	"github.com/rizki-dev/backend-warung/internal/obs"
	"github.com/rizki-dev/backend-warung/internal/payment"
	"github.com/rizki-dev/backend-warung/internal/promo"
	"github.com/rizki-dev/backend-warung/internal/queue"
	"github.com/rizki-dev/backend-warung/internal/ratelimit"
	"github.com/rizki-dev/backend-warung/internal/reservation"
	"github.com/rizki-dev/backend-warung/internal/resilience"
	"github.com/rizki-dev/backend-warung/internal/restaurant"
	"github.com/rizki-dev/backend-warung/internal/reviews"
	"github.com/rizki-dev/backend-warung/internal/security"
)

const (
	accessCookieName = "warung_access"
	csrfCookieName   = "X-CSRF-Token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "warung")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "warung-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
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

	mailer := common.NopEmailSender{}

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
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "warung-api"

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

	restaurantStore := &restaurant.PgStore{Pool: pool}
	restaurantSvc, err := restaurant.NewService(restaurant.ServiceConfig{
		Store:        restaurantStore,
		Cache:        restaurant.NewCache(redisClient, cfg.RestaurantCacheTTL),
		DefaultLimit: cfg.RestaurantDefaultLimit,
		MaxLimit:     cfg.RestaurantMaxLimit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise restaurant service")
	}
	restaurantHandler := restaurant.NewHandler(restaurant.HandlerConfig{Service: restaurantSvc})

	authSvc, err := auth.NewService(auth.Config{
		Store:           &auth.PgStore{Pool: pool},
		Secret:          cfg.JWTSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		ResetTokenTTL:   cfg.PasswordResetTTL,
		Email:           mailer,
		ResetBaseURL:    cfg.PublicBaseURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{
		Service:           authSvc,
		AccessCookieName:  accessCookieName,
		RefreshCookieName: cfg.RefreshCookieName,
		CSRFCookieName:    csrfCookieName,
		CookieSecure:      cfg.RefreshCookieSecure,
		CookieSameSite:    http.SameSiteLaxMode,
		ExposeResetToken:  cfg.AppEnv != "production",
	}
	authMW := auth.Middleware{Service: authSvc, AccessCookie: accessCookieName}
	// Bearer requests pass through untouched; only the cookie flow needs the
	// double-submit check.
	csrfMW := security.CSRF{Header: csrfCookieName}.Middleware

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	locker := lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff}

	notifyStore := &notify.PgStore{Pool: pool}
	dispatcher := &notify.Dispatcher{
		Store:              notifyStore,
		Client:             notify.HttpClient(int(cfg.WebhookRequestTimeout/time.Millisecond), envBool("WEBHOOK_ALLOW_INSECURE_TLS", false)),
		Queue:              queue.Enqueuer{R: redisClient, Prefix: cfg.QueueRedisPrefix},
		BackoffBaseSec:     cfg.WebhookBackoffBaseSec,
		DefaultMaxAttempts: cfg.WebhookDefaultMaxAttempts,
		Enabled:            cfg.WebhookDeliveryEnabled,
		Replay:             notify.RedisReplayProtector{Client: redisClient},
		ReplayTTL:          cfg.WebhookReplayTTL,
	}
	emailNotifier := notify.EmailNotifier{
		Mail:    mailer,
		Enabled: cfg.NotifyEmailEnabled,
		From:    cfg.NotifyEmailFrom,
	}
	bus := &events.Bus{
		Store:     &events.PgStore{Pool: pool},
		Scheduler: dispatcher,
		Notifiers: []events.Notifier{emailNotifier},
	}

	ownerGuard := restaurant.Guard{Owners: restaurantStore}

	promoSvc := &promo.Service{Store: &promo.PgStore{Pool: pool}, Auth: ownerGuard}
	promoHandler := &promo.Handler{Svc: promoSvc}

	reservationSvc := &reservation.Service{
		Store:    &reservation.PgStore{Pool: pool},
		Capacity: restaurantCapacity{store: restaurantStore},
		Auth:     ownerGuard,
		Locker:   locker,
		Bus:      bus,
		HoldTTL:  cfg.ReservationHoldTTL,
	}
	reservationHandler := &reservation.Handler{Svc: reservationSvc}

	verifier := payment.Sandbox{SecretKey: cfg.PaymentAPIKey}
	var provider payment.Provider = verifier
	if !cfg.PaymentSandbox && cfg.PaymentGatewayURL != "" {
		provider = payment.Gateway{
			BaseURL: cfg.PaymentGatewayURL,
			APIKey:  cfg.PaymentAPIKey,
			HTTP: resilience.HTTPClient{
				Client:      &http.Client{Timeout: cfg.PaymentTimeout},
				Breaker:     resilience.NewBreaker(5, 0.6, 30*time.Second),
				BaseBackoff: 200 * time.Millisecond,
				MaxAttempts: 3,
				Jitter:      0.2,
				Timeout:     cfg.PaymentTimeout,
			},
			Verify: verifier,
		}
	}

	billSvc := &bill.Service{
		Store:        &bill.PgStore{Pool: pool},
		Reservations: reservationSvc,
		Catalog:      promoSvc,
		Auth:         ownerGuard,
		Provider:     provider,
		Bus:          bus,
		Currency:     cfg.CurrencyCode,
	}
	billHandler := &bill.Handler{Svc: billSvc, DefaultTaxBps: int32(cfg.DefaultTaxBps)}

	reviewsSvc := &reviews.Service{
		Store:  &reviews.PgStore{Pool: pool},
		Visits: reviews.ReservationVisits{Pool: pool},
	}
	reviewsHandler := &reviews.Handler{Svc: reviewsSvc}

	favoritesSvc := &favorites.Service{Store: &favorites.PgStore{Pool: pool}}
	favoritesHandler := &favorites.Handler{Svc: favoritesSvc}

	analyticsSvc := &analytics.Service{
		Q:            &analytics.PgQuerier{Pool: pool},
		R:            redisClient,
		TTL:          cfg.AnalyticsCacheTTL,
		DefaultRange: cfg.AnalyticsDefaultRange,
	}
	analyticsHandler := &analytics.Handler{Svc: analyticsSvc}

	auditSvc := audit.Service{
		Store:        &audit.PgStore{Pool: pool},
		Enabled:      cfg.AuditEnabled,
		SamplingRate: cfg.AuditSamplingRate,
	}
	auditRec := audit.HTTPRecorder{
		Service: &auditSvc,
		OnError: func(err error) { logger.Error().Err(err).Msg("record audit log") },
	}
	auditHandler := audit.Handler{Store: &audit.PgStore{Pool: pool}}

	notifyAdmin := &notify.AdminHandler{Store: notifyStore, Disp: dispatcher}

	queueAdmin := &queue.AdminHandler{
		Store:             queue.NewStore(pool),
		Queue:             queue.Enqueuer{R: redisClient, Prefix: cfg.QueueRedisPrefix},
		Logger:            logger,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
	}

	authLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl"},
		Config: ratelimit.Config{
			Key:    func(r *http.Request) string { return "auth:" + common.ClientIP(r) },
			Window: cfg.AuthRateWindow,
			Max:    cfg.AuthRateMax,
		},
		OnError: func(err error) { logger.Error().Err(err).Msg("rate limit check") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
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
	r.Use(security.Headers{
		Enable:                true,
		EnableHSTS:            cfg.AppEnv == "production",
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
	}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
	if cfg.GlobalRatePer1M > 0 {
		limiterStore, err := app.NewLimiterStore(redisClient)
		if err != nil {
			logger.Fatal().Err(err).Msg("init limiter store")
		}
		globalLimiter := limiter.New(limiterStore, limiter.Rate{Period: time.Minute, Limit: cfg.GlobalRatePer1M})
		r.Use(limitermw.NewMiddleware(globalLimiter).Handler)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	pprofEnabled := envBool("OBS_ENABLE_PPROF", true)
	if pprofEnabled {
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
		v.Route("/restaurants", func(rr chi.Router) {
			rr.Get("/", restaurantHandler.List)
			rr.Get("/slug/{slug}", restaurantHandler.Detail)
			rr.Get("/slug/{slug}/menu", restaurantHandler.Menu)
			rr.Route("/{id}", func(one chi.Router) {
				one.Get("/menu", restaurantHandler.MenuByID)
				one.Get("/deals", promoHandler.ListPublic)
				one.Get("/reviews", reviewsHandler.List)
				one.Get("/reviews/stats", reviewsHandler.Stats)
				one.With(authMW.RequireAuth, csrfMW).Post("/reviews", reviewsHandler.Create)
			})
		})

		v.With(authMW.RequireAuth, csrfMW).Delete("/reviews/{reviewID}", reviewsHandler.Delete)

		v.Route("/auth", func(a chi.Router) {
			a.Use(authLimit.Middleware)
			a.Post("/register", authHandler.Register)
			a.Post("/login", authHandler.Login)
			a.Post("/refresh", authHandler.Refresh)
			a.Post("/logout", authHandler.Logout)
			a.Post("/password/forgot", authHandler.ForgotPassword)
			a.Post("/password/reset", authHandler.ResetPassword)
			a.With(authMW.RequireAuth).Get("/me", authHandler.Me)
		})

		v.Route("/reservations", func(res chi.Router) {
			res.Use(authMW.RequireAuth)
			res.Use(csrfMW)
			res.With(idem.Middleware).Post("/", reservationHandler.Create)
			res.Get("/mine", reservationHandler.ListMine)
			res.Get("/{id}", reservationHandler.Get)
			res.Post("/{id}/cancel", reservationHandler.Cancel)
			res.Group(func(op chi.Router) {
				op.Use(authMW.RequireRole(auth.RoleOperator, auth.RoleAdmin))
				op.Post("/{id}/check-in", reservationHandler.CheckIn)
				op.Post("/{id}/complete", reservationHandler.Complete)
			})
		})

		v.Route("/bills", func(b chi.Router) {
			b.Use(authMW.RequireAuth)
			b.Use(csrfMW)
			b.Get("/{id}", billHandler.Get)
			b.Get("/by-reservation/{id}", billHandler.GetByReservation)
			b.With(idem.Middleware).Post("/{id}/pay", billHandler.Pay)
		})

		v.Route("/favorites", func(f chi.Router) {
			f.Use(authMW.RequireAuth)
			f.Use(csrfMW)
			f.Get("/", favoritesHandler.List)
			f.Post("/toggle", favoritesHandler.Toggle)
		})

		v.Route("/operator", func(op chi.Router) {
			op.Use(authMW.RequireRole(auth.RoleOperator, auth.RoleAdmin))
			op.Use(csrfMW)
			op.Use(auditRec.Middleware(audit.HTTPConfig{}))
			op.Route("/restaurants/{id}", func(orr chi.Router) {
				orr.Use(ownerGuard.RequireOwner)
				orr.Get("/reservations", reservationHandler.ListForRestaurant)
				orr.Get("/deals", promoHandler.ListForOperator)
				orr.Post("/deals", promoHandler.Create)
				orr.Get("/analytics/revenue", analyticsHandler.Revenue)
				orr.Get("/analytics/top-dishes", analyticsHandler.TopDishes)
			})
			op.Put("/deals/{dealID}", promoHandler.Update)
			op.Delete("/deals/{dealID}", promoHandler.Deactivate)
			op.Post("/deals/preview", promoHandler.Preview)
			op.With(idem.Middleware).Post("/bills", billHandler.Create)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMW.RequireRole(auth.RoleAdmin))
			admin.Use(csrfMW)
			admin.Use(auditRec.Middleware(audit.HTTPConfig{}))
			admin.Post("/webhooks", notifyAdmin.CreateEndpoint)
			admin.Get("/webhooks", notifyAdmin.ListEndpoints)
			admin.Put("/webhooks/{id}", notifyAdmin.UpdateEndpoint)
			admin.Delete("/webhooks/{id}", notifyAdmin.DeleteEndpoint)
			admin.Get("/webhook-deliveries", notifyAdmin.ListDeliveries)
			admin.Post("/webhook-deliveries/{id}/replay", notifyAdmin.ReplayDelivery)
			admin.Get("/audit-logs", auditHandler.List)
			admin.Get("/queue/dlq", queueAdmin.ListDLQ)
			admin.Post("/queue/dlq/replay", queueAdmin.ReplayDLQ)
			admin.Get("/queue/stats", queueAdmin.Stats)
		})

		v.Post("/webhooks/payment", billHandler.Callback)
	})

	// The worker binary drains the Redis queue; this loop is a backstop that
	// picks up deliveries whose queue task was lost.
	if cfg.WebhookDeliveryEnabled {
		for i := 0; i < cfg.EventWorkerConcurrency; i++ {
			go func() {
				ticker := time.NewTicker(30 * time.Second)
				defer ticker.Stop()
				for range ticker.C {
					if err := dispatcher.WorkOnce(context.Background(), 50); err != nil {
						logger.Error().Err(err).Msg("dispatch webhook")
					}
				}
			}()
		}
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
		// Fail readiness first so load balancers stop routing here, then
		// give in-flight requests a window to finish.
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown http server")
		}
		logger.Info().Msg("server stopped")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

// restaurantCapacity resolves table counts for reservation overbooking checks.
type restaurantCapacity struct {
	store *restaurant.PgStore
}

func (c restaurantCapacity) TableCount(ctx context.Context, restaurantID uuid.UUID) (int, error) {
	rest, err := c.store.GetRestaurantByID(ctx, restaurantID)
	if err != nil {
		return 0, err
	}
	return rest.TableCount, nil
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
