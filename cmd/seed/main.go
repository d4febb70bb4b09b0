// Command seed loads employees, holidays, eligibility rules, approval
// thresholds and pay formulas from a YAML file into the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/garyjia/overtime-claims/internal/config"
	"github.com/garyjia/overtime-claims/internal/container"
	"github.com/garyjia/overtime-claims/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	seedPath := flag.String("file", "configs/seed.yaml", "path to the YAML seed file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stdout",
		Format:     "console",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	seed, err := loadSeedFile(*seedPath)
	if err != nil {
		logger.Fatal("Failed to load seed file", zap.Error(err))
	}

	ccfg := cfg.ToContainerConfig()
	// Seeding never needs notifications
	ccfg.Notification.Enabled = false

	c, err := container.NewContainer(ccfg, logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}
	defer c.Close()

	res, err := apply(ctx, c, seed)
	if err != nil {
		logger.Error("Seeding failed", zap.Error(err))
		c.Close()
		os.Exit(1)
	}

	logger.Info("Seed applied",
		zap.Int("employees", res.Employees),
		zap.Int("holidays", res.Holidays),
		zap.Int("eligibility_rules", res.Rules),
		zap.Int("thresholds", res.Thresholds),
		zap.Int("formulas", res.Formulas),
	)
}
