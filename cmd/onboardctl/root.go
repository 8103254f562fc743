package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"alfredoptarigan/interview-onboarding/internal/config"
	"alfredoptarigan/interview-onboarding/internal/logger"
	"alfredoptarigan/interview-onboarding/internal/onboarding"
	"alfredoptarigan/interview-onboarding/internal/repositories"
)

const app = "onboardctl"

var (
	// Used for flags.
	debug   bool
	jsonLog bool

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "onboardctl inspects and manages interview onboarding conversations",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&jsonLog, "json", "j", false, "json format for logging")
}

// env holds what every subcommand needs: configuration, a logger and, on demand, the database.
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func newEnv(withDB bool) (*env, error) {
	cfg := config.Load()

	log, err := logger.New(jsonLog, debug)
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	e := &env{cfg: cfg, log: log}
	if !withDB {
		return e, nil
	}

	e.db, err = config.InitDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// onboardingService builds a service without generators: greetings fall back to the default template.
func (e *env) onboardingService() onboarding.Service {
	return onboarding.NewService(onboarding.Dependencies{
		Conversations: repositories.NewOnboardingRepository(e.db),
		Users:         repositories.NewUserRepository(e.db),
		MaxAttempts:   e.cfg.Onboarding.MaxAttempts,
		Logger:        e.log,
	})
}
