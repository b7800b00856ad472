package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/1rvyn/movie-tier-predictor/auth"
	"github.com/1rvyn/movie-tier-predictor/classifier"
	"github.com/1rvyn/movie-tier-predictor/config"
	"github.com/1rvyn/movie-tier-predictor/database"
	applog "github.com/1rvyn/movie-tier-predictor/logger"
	"github.com/1rvyn/movie-tier-predictor/models"
	"github.com/1rvyn/movie-tier-predictor/routes"
	"github.com/1rvyn/movie-tier-predictor/storage"
	"github.com/1rvyn/movie-tier-predictor/tracking"
	"github.com/1rvyn/movie-tier-predictor/views"
	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/template/html/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "movietier",
	Short: "Predicts the rating tier of an English movie from its metadata",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger, err = applog.New(cfg.Env, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web app",
	RunE:  runServe,
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password...]",
	Short: "Print bcrypt hashes for the users file",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHashPassword,
}

var syncLoginsCmd = &cobra.Command{
	Use:   "sync-logins",
	Short: "Send logins the spreadsheet missed",
	RunE:  runSyncLogins,
}

var loginsCmd = &cobra.Command{
	Use:   "logins",
	Short: "List recent logins from the local mirror",
	RunE:  runLogins,
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict a rating tier from the command line",
	RunE:  runPredict,
}

var (
	predictInput models.MovieInput
	loginsLimit  int
)

func init() {
	f := predictCmd.Flags()
	f.StringVar(&predictInput.DurationMins, "duration", models.DurationOptions[0], "duration bucket")
	f.StringVar(&predictInput.Studio, "studio", models.StudioOptions[0], "studio")
	f.StringVar(&predictInput.ProductionYear, "year", models.ProductionYearOptions[0], "production year bucket")
	f.StringVar(&predictInput.GenrePrimary, "genre", models.GenreOptions[0], "primary genre")
	f.Float64Var(&predictInput.RatingIMDB, "rating", 0, "IMDB rating (0-10)")
	f.IntVar(&predictInput.ActorFamous, "actor-famous", 0, "main actor is famous (0 or 1)")
	f.IntVar(&predictInput.ActressFamous, "actress-famous", 0, "main actress is famous (0 or 1)")
	f.IntVar(&predictInput.Franchise, "franchise", 0, "part of a franchise (0 or 1)")
	f.StringVar(&predictInput.USBoxOffice, "box-office", models.USBoxOfficeOptions[0], "US box office bucket (USD millions)")

	loginsCmd.Flags().IntVar(&loginsLimit, "limit", 20, "number of logins to show")

	rootCmd.AddCommand(serveCmd, hashPasswordCmd, syncLoginsCmd, loginsCmd, predictCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, err := config.LoadUsers(cfg.UsersFile, cfg.CookieKey)
	if err != nil {
		return err
	}

	pipeline, err := loadPipeline(ctx)
	if err != nil {
		return err
	}

	recorder, err := newRecorder(ctx)
	if err != nil {
		return err
	}
	go func() {
		if _, err := recorder.SyncPending(ctx); err != nil {
			logger.Warn("could not sync pending logins", zap.Error(err))
		}
	}()

	app := newApp()
	h := &routes.Handler{
		Store: session.New(session.Config{
			Expiration:     24 * time.Hour,
			KeyLookup:      "cookie:" + routes.SessionCookie,
			CookieHTTPOnly: true,
			CookieSecure:   cfg.IsProduction(),
			CookieSameSite: fiber.CookieSameSiteLaxMode,
		}),
		Auth:           auth.NewAuthenticator(users.Credentials.Usernames),
		Tokens:         auth.NewTokenIssuer(users.Cookie.Key, users.Cookie.ExpiryDays),
		Predictor:      pipeline,
		Validator:      models.NewValidator(),
		Tracker:        recorder,
		Log:            logger,
		CookieName:     users.Cookie.Name,
		SecureCookie:   cfg.IsProduction(),
		LoginRateLimit: cfg.LoginRateLimit,
	}
	h.Register(app)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("server starting",
		zap.String("port", cfg.Port),
		zap.Int("users", len(users.Credentials.Usernames)),
		zap.Bool("sheets", cfg.SheetsEnabled()),
	)
	err = app.Listen(":" + cfg.Port)
	h.Wait()
	return err
}

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		Views:                 html.NewFileSystem(http.FS(views.FS), ".html"),
		DisableStartupMessage: cfg.IsProduction(),
	})
	app.Use(fiberrecover.New())
	app.Use(applog.Middleware(logger))
	return app
}

func loadPipeline(ctx context.Context) (*classifier.Pipeline, error) {
	var objects storage.ObjectGetter
	if storage.IsRemote(cfg.PreprocessorPath) || storage.IsRemote(cfg.ModelPath) {
		client, err := storage.NewR2Client(ctx, storage.R2Options{
			Endpoint:  cfg.R2Endpoint,
			Region:    cfg.AWSRegion,
			AccessKey: cfg.AWSAccessID,
			SecretKey: cfg.AWSSecret,
		})
		if err != nil {
			return nil, err
		}
		objects = client
	}

	blobs, err := storage.NewFetcher(objects, logger).FetchAll(ctx, cfg.PreprocessorPath, cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model artifacts: %w", err)
	}

	pipeline, err := classifier.LoadPipeline(blobs[0], blobs[1])
	if err != nil {
		return nil, fmt.Errorf("failed to load model artifacts: %w", err)
	}
	return pipeline, nil
}

func newRecorder(ctx context.Context) (*tracking.Recorder, error) {
	db, err := database.Connect(cfg.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	if !cfg.SheetsEnabled() {
		logger.Warn("login sheet not configured, logins are kept locally only")
		return tracking.NewRecorder(db, nil, logger), nil
	}

	appender, err := tracking.NewSheetsAppender(ctx, cfg.ServiceAccountFile)
	if err != nil {
		return nil, err
	}
	sheet := tracking.NewSheetsTracker(appender, cfg.LoginSheetID, cfg.LoginSheetTab)
	return tracking.NewRecorder(db, sheet, logger), nil
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	for _, pw := range args {
		hash, err := auth.HashPassword(pw)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
	}
	return nil
}

func runSyncLogins(cmd *cobra.Command, args []string) error {
	if !cfg.SheetsEnabled() {
		return errors.New("GOOGLE_SERVICE_ACCOUNT_FILE and LOGIN_SHEET_ID must be set")
	}
	recorder, err := newRecorder(cmd.Context())
	if err != nil {
		return err
	}
	sent, err := recorder.SyncPending(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), "synced %d login(s)\n", sent)
	return err
}

func runLogins(cmd *cobra.Command, args []string) error {
	recorder, err := newRecorder(cmd.Context())
	if err != nil {
		return err
	}
	events, err := recorder.Recent(cmd.Context(), loginsLimit)
	if err != nil {
		return err
	}
	for _, e := range events {
		synced := "pending"
		if e.Synced {
			synced = "synced"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", e.LoginTime.Local().Format(tracking.LoginTimeLayout), e.Username, synced)
	}
	return nil
}

func runPredict(cmd *cobra.Command, args []string) error {
	in := predictInput
	in.Normalize()
	if err := models.NewValidator().Validate(in); err != nil {
		return err
	}

	pipeline, err := loadPipeline(cmd.Context())
	if err != nil {
		return err
	}
	pred, err := pipeline.Predict(in)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Predicted Rating Category: %s\n", pred.Tier)
	return nil
}
