package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/tienda-labs/storeauth/pkg/account"
	"github.com/tienda-labs/storeauth/pkg/authapi"
	"github.com/tienda-labs/storeauth/pkg/emailverification"
	"github.com/tienda-labs/storeauth/pkg/loginflow"
	"github.com/tienda-labs/storeauth/pkg/notice"
	"github.com/tienda-labs/storeauth/pkg/notification"
	"github.com/tienda-labs/storeauth/pkg/password"
	"github.com/tienda-labs/storeauth/pkg/passwordreset"
	"github.com/tienda-labs/storeauth/pkg/ratelimit"
	"github.com/tienda-labs/storeauth/pkg/reaper"
	"github.com/tienda-labs/storeauth/pkg/signup"
	"github.com/tienda-labs/storeauth/pkg/tokengenerator"
	"github.com/tienda-labs/storeauth/pkg/verificationcode"
)

type DbConfig struct {
	Host     string `env:"STOREAUTH_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"STOREAUTH_PG_PORT" env-default:"5432"`
	Database string `env:"STOREAUTH_PG_DATABASE" env-default:"storeauth_db"`
	User     string `env:"STOREAUTH_PG_USER" env-default:"storeauth"`
	Password string `env:"STOREAUTH_PG_PASSWORD" env-default:"pwd"`
}

func (d DbConfig) dsn() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, d.Port, d.Database)
}

type JwtConfig struct {
	Secret   string `env:"JWT_SECRET"`
	Issuer   string `env:"JWT_ISSUER" env-default:"storeauth"`
	Audience string `env:"JWT_AUDIENCE" env-default:""`
}

type SmtpConfig struct {
	Host     string `env:"SMTP_HOST" env-default:"localhost"`
	Port     int    `env:"SMTP_PORT" env-default:"1025"`
	TLS      bool   `env:"SMTP_TLS" env-default:"false"`
	Username string `env:"SMTP_USERNAME" env-default:""`
	Password string `env:"SMTP_PASSWORD" env-default:""`
	From     string `env:"SMTP_FROM" env-default:"no-reply@example.com"`
}

type CodeConfig struct {
	TTL         time.Duration `env:"VERIFICATION_CODE_TTL" env-default:"3m"`
	MaxAttempts int           `env:"VERIFICATION_CODE_MAX_ATTEMPTS" env-default:"5"`
}

type JobsConfig struct {
	ReaperCron        string `env:"REAPER_CRON" env-default:"0 4 * * *"`
	ReaperTimezone    string `env:"REAPER_TIMEZONE" env-default:"UTC"`
	ReaperOffsetDays  int    `env:"REAPER_OFFSET_DAYS" env-default:"-30"`
	ReaperMaxAttempts int    `env:"REAPER_MAX_ATTEMPTS" env-default:"10"`
	ReaperRunOnStart  bool   `env:"REAPER_RUN_ON_START" env-default:"false"`
}

type AppConfig struct {
	Host                     string `env:"STOREAUTH_HOST" env-default:"0.0.0.0"`
	Port                     int    `env:"STOREAUTH_PORT" env-default:"4000"`
	RequireEmailVerification bool   `env:"REQUIRE_EMAIL_VERIFICATION" env-default:"true"`
	DefaultRole              string `env:"DEFAULT_ROLE" env-default:"Customer"`
}

type Config struct {
	App   AppConfig
	Db    DbConfig
	Jwt   JwtConfig
	Smtp  SmtpConfig
	Codes CodeConfig
	Jobs  JobsConfig
}

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded configuration from .env file")
	}

	config := Config{}
	if err := cleanenv.ReadEnv(&config); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	if config.Jwt.Secret == "" {
		slog.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	pool, err := pgxpool.New(context.Background(), config.Db.dsn())
	if err != nil {
		slog.Error("Failed creating dbpool", "db", config.Db.Database, "host", config.Db.Host, "port", config.Db.Port, "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	accountRepo := account.NewPostgresAccountRepository(pool)
	codeRepo := verificationcode.NewPostgresCodeRepository(pool)
	credentialRepo := password.NewPostgresCredentialRepository(pool)

	passwordManager := password.NewPasswordManager(credentialRepo)
	codeService := verificationcode.NewCodeService(codeRepo,
		verificationcode.WithCodeTTL(config.Codes.TTL),
		verificationcode.WithMaxAttempts(config.Codes.MaxAttempts),
	)

	notificationManager, err := notice.NewNotificationManager(notification.SMTPConfig{
		Host:     config.Smtp.Host,
		Port:     config.Smtp.Port,
		TLS:      config.Smtp.TLS,
		Username: config.Smtp.Username,
		Password: config.Smtp.Password,
		From:     config.Smtp.From,
	})
	if err != nil {
		slog.Error("Failed to set up notifications", "err", err)
		os.Exit(1)
	}

	generator, err := tokengenerator.NewJwtTokenGenerator(config.Jwt.Secret,
		tokengenerator.WithIssuer(config.Jwt.Issuer),
		tokengenerator.WithAudience(config.Jwt.Audience),
	)
	if err != nil {
		slog.Error("Failed to set up token generator", "err", err)
		os.Exit(1)
	}
	tokenService := tokengenerator.NewTokenService(generator)

	registrationService := signup.NewRegistrationService(accountRepo, passwordManager, codeService, notificationManager,
		signup.WithRequireEmailVerification(config.App.RequireEmailVerification),
		signup.WithDefaultRole(config.App.DefaultRole),
	)
	loginFlowService := loginflow.NewLoginFlowService(accountRepo, passwordManager, tokenService)
	emailVerificationService := emailverification.NewEmailVerificationService(accountRepo, codeService, notificationManager)
	passwordResetService := passwordreset.NewPasswordResetService(accountRepo, codeService, passwordManager, notificationManager)

	loc, err := time.LoadLocation(config.Jobs.ReaperTimezone)
	if err != nil {
		slog.Error("Invalid reaper timezone", "timezone", config.Jobs.ReaperTimezone, "err", err)
		os.Exit(1)
	}
	reaperService := reaper.NewReaperService(accountRepo, reaper.WithOffsetDays(config.Jobs.ReaperOffsetDays))
	scheduler, err := reaper.NewScheduler(reaperService, config.Jobs.ReaperCron, loc,
		reaper.WithMaxAttempts(config.Jobs.ReaperMaxAttempts),
	)
	if err != nil {
		slog.Error("Failed to set up reaper scheduler", "err", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()
	if config.Jobs.ReaperRunOnStart {
		go scheduler.RunWithRetry(context.Background())
	}

	handle := authapi.NewHandle(registrationService, loginFlowService, emailVerificationService, passwordResetService)
	tokenAuth := jwtauth.New("HS256", []byte(config.Jwt.Secret), nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.With(ratelimit.PerIP(ratelimit.DefaultCapacity, ratelimit.DefaultRefillRate)).
		Mount("/auth", authapi.Routes(handle, tokenAuth))

	addr := fmt.Sprintf("%s:%d", config.App.Host, config.App.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Failed to shut down cleanly", "err", err)
	}
}
