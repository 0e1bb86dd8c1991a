// LeadLine is an SMS lead-qualification service for rental real estate.
// It answers inbound lead messages, extracts qualification details, schedules
// follow-ups, and hands qualified leads to a human agent.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/CornerstoneRE/LeadLine/internal/api"
	"github.com/CornerstoneRE/LeadLine/internal/extraction"
	"github.com/CornerstoneRE/LeadLine/internal/followup"
	"github.com/CornerstoneRE/LeadLine/internal/genai"
	"github.com/CornerstoneRE/LeadLine/internal/lockfile"
	"github.com/CornerstoneRE/LeadLine/internal/messaging"
	"github.com/CornerstoneRE/LeadLine/internal/outreach"
	"github.com/CornerstoneRE/LeadLine/internal/processor"
	"github.com/CornerstoneRE/LeadLine/internal/reply"
	"github.com/CornerstoneRE/LeadLine/internal/scheduler"
	"github.com/CornerstoneRE/LeadLine/internal/store"
	"github.com/CornerstoneRE/LeadLine/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for LeadLine state data
	DefaultStateDir = "/var/lib/leadline"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "leadline.db"
	// DefaultFollowUpCron runs the follow-up sweep at the top of every hour
	DefaultFollowUpCron = "0 * * * *"
	// shutdownTimeout bounds graceful HTTP shutdown
	shutdownTimeout = 10 * time.Second
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := run(config, flags); err != nil {
		slog.Error("LeadLine failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("LeadLine exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL  string
	DBDriver     string
	StateDir     string
	OpenAIKey    string
	OpenAIModel  string
	TwilioSID    string
	TwilioToken  string
	FromNumber   string
	AgentPhone   string
	APIAddr      string
	FollowUpCron string
}

// Flags holds command line flag values
type Flags struct {
	stateDir     *string
	dbDriver     *string
	dbDSN        *string
	openaiKey    *string
	apiAddr      *string
	followUpCron *string
}

// initializeLogger sets up structured logging. LEADLINE_DEBUG=true enables
// debug level.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("LEADLINE_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DBDriver:     os.Getenv("DB_DRIVER"),
		StateDir:     util.GetEnvWithDefault("LEADLINE_STATE_DIR", DefaultStateDir),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  os.Getenv("OPENAI_MODEL"),
		TwilioSID:    os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		FromNumber:   os.Getenv("SMS_FROM_NUMBER"),
		AgentPhone:   os.Getenv("AGENT_PHONE_NUMBER"),
		APIAddr:      os.Getenv("API_ADDR"),
		FollowUpCron: util.GetEnvWithDefault("FOLLOW_UP_SCHEDULE", DefaultFollowUpCron),
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"DB_DRIVER", config.DBDriver,
		"LEADLINE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"TWILIO_ACCOUNT_SID_SET", config.TwilioSID != "",
		"SMS_FROM_NUMBER", config.FromNumber,
		"AGENT_PHONE_NUMBER_SET", config.AgentPhone != "",
		"API_ADDR", config.APIAddr,
		"FOLLOW_UP_SCHEDULE", config.FollowUpCron)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for LeadLine data (overrides $LEADLINE_STATE_DIR)"),
		dbDriver:     flag.String("db-driver", config.DBDriver, "database driver: postgres or sqlite (overrides $DB_DRIVER; detected from the DSN when empty)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "database DSN; Postgres URL or SQLite file path (overrides $DATABASE_URL)"),
		openaiKey:    flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		followUpCron: flag.String("followup-cron", config.FollowUpCron, "cron schedule for the follow-up sweep (overrides $FOLLOW_UP_SCHEDULE)"),
	}
	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDriver", *flags.dbDriver,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"followUpCron", *flags.followUpCron)

	return flags
}

// isPostgresDSN reports whether the DSN targets Postgres rather than a
// SQLite file path.
func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// openStore selects the backend from the db-driver flag when set, otherwise
// Postgres for Postgres-looking DSNs and SQLite for file paths, defaulting to
// a SQLite file in the state directory.
func openStore(flags Flags) (store.Store, error) {
	dsn := *flags.dbDSN
	if dsn == "" {
		dsn = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", dsn)
	}
	switch strings.ToLower(*flags.dbDriver) {
	case "postgres", "postgresql":
		slog.Info("main.openStore: using Postgres store")
		return store.NewPostgresStore(store.WithDSN(dsn))
	case "sqlite", "sqlite3":
		slog.Info("main.openStore: using SQLite store", "path", dsn)
		return store.NewSQLiteStore(store.WithDSN(dsn))
	}
	if isPostgresDSN(dsn) {
		slog.Info("main.openStore: using Postgres store")
		return store.NewPostgresStore(store.WithDSN(dsn))
	}
	slog.Info("main.openStore: using SQLite store", "path", dsn)
	return store.NewSQLiteStore(store.WithDSN(dsn))
}

func run(config Config, flags Flags) error {
	// Only one instance may use a state directory at a time.
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := openStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	// Without an OpenAI key the service still answers, using canned replies
	// and no field extraction.
	var gen *genai.Client
	if *flags.openaiKey != "" {
		genaiOpts := []genai.Option{genai.WithAPIKey(*flags.openaiKey)}
		if config.OpenAIModel != "" {
			genaiOpts = append(genaiOpts, genai.WithModel(config.OpenAIModel))
		}
		gen, err = genai.NewClient(genaiOpts...)
		if err != nil {
			return err
		}
	} else {
		slog.Warn("main.run: no OpenAI API key, running with canned replies only")
	}

	smsClient, err := messaging.NewClient(
		messaging.WithAccountSID(config.TwilioSID),
		messaging.WithAuthToken(config.TwilioToken),
		messaging.WithFromNumber(config.FromNumber),
	)
	if err != nil {
		return err
	}
	msg := messaging.NewTwilioService(smsClient, config.AgentPhone)

	var extractor extraction.Extractor
	var renderer *reply.Renderer
	if gen != nil {
		extractor = extraction.NewOpenAIExtractor(gen)
		renderer = reply.NewRenderer(gen)
	} else {
		extractor = extraction.NewOpenAIExtractor(nil)
		renderer = reply.NewRenderer(nil)
	}

	proc := processor.New(st, msg, extractor, renderer)
	out := outreach.NewHandler(st, msg, renderer)
	runner := followup.NewRunner(st, msg)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := sched.AddJob(*flags.followUpCron, func() {
		report, err := runner.Sweep(context.Background())
		if err != nil {
			slog.Error("main: follow-up sweep failed", "error", err)
			return
		}
		slog.Info("main: follow-up sweep finished",
			"due", report.Due, "sent", report.Sent, "failed", report.Failed)
	}); err != nil {
		return err
	}

	ignoredSenders := []string{config.FromNumber, config.AgentPhone}
	server := api.NewServer(*flags.apiAddr, proc, out, runner, msg, ignoredSenders)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("main.run: shutdown signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
