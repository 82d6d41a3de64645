package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/qs3c/localdeals_server/config"
	"github.com/qs3c/localdeals_server/internal/database"
	"github.com/qs3c/localdeals_server/internal/pkg/logger"
	"github.com/qs3c/localdeals_server/internal/repository"
)

var (
	dryRun         = flag.Bool("dry-run", true, "Only report what would change")
	expireSubs     = flag.Bool("expire-subscriptions", true, "Expire subscriptions whose billing period has ended")
	deactivateOffs = flag.Bool("deactivate-offers", true, "Take expired offers off the listing")
)

func main() {
	flag.Parse()

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(config.LogConfig{Level: cfg.Log.Level, Format: "console"}, os.Stdout)

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	now := time.Now().UTC()
	log.Info().Bool("dry_run", *dryRun).Time("now", now).Msg("starting maintenance")

	var subsChanged, offersChanged int64

	// 1. 过期订阅降级
	if *expireSubs {
		repo := repository.NewSubscriptionRepository(db)
		if *dryRun {
			subsChanged, err = repo.CountLapsed(now)
		} else {
			subsChanged, err = repo.ExpireLapsed(now)
		}
		if err != nil {
			log.Error().Err(err).Msg("subscription sweep failed")
		}
	}

	// 2. 下架过期优惠
	if *deactivateOffs {
		repo := repository.NewOfferRepository(db)
		if *dryRun {
			offersChanged, err = repo.CountExpiredActive(now)
		} else {
			offersChanged, err = repo.DeactivateExpired(now)
		}
		if err != nil {
			log.Error().Err(err).Msg("offer sweep failed")
		}
	}

	fmt.Println(strings.Repeat("=", 48))
	fmt.Println("Maintenance Summary")
	fmt.Println(strings.Repeat("=", 48))
	fmt.Printf("Lapsed subscriptions: %d\n", subsChanged)
	fmt.Printf("Expired offers:       %d\n", offersChanged)
	if *dryRun {
		fmt.Println("\nDRY RUN - nothing was changed")
		fmt.Println("Run with -dry-run=false to apply")
	}
	fmt.Println(strings.Repeat("=", 48))
}
