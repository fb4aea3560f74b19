package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Nia/commands"
	"Nia/config"
	"Nia/db_client"
	"Nia/handlers"
	"Nia/history"
	"Nia/redis_client"
	"Nia/session"
	"Nia/yt"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

var production bool

var rootCmd = &cobra.Command{
	Use:          "nia",
	Short:        "Discord music bot",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Sets Flag to Debug Mode
		if production {
			log.InitJSONLogger(&log.Config{Output: os.Stdout})
		} else {
			log.InitSimpleLogger(&log.Config{Output: os.Stdout})
		}

		// Sets up Configurations for Viper
		config.InitConfig()
	},
	RunE: run,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&production, "production", "p", false, "enables production with json logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rdb, err := redis_client.New(ctx, viper.GetString("redis.address"))
	if err != nil {
		log.WithError(err).Error("Failed to connect to redis, metadata caching disabled")
	}

	var store commands.HistoryStore
	if dsn := viper.GetString("postgres.dsn"); dsn != "" {
		db, err := db_client.Open(dsn)
		if err != nil {
			log.WithError(err).Error("Failed to connect to postgres, play history disabled")
		} else if store, err = newHistoryStore(db); err != nil {
			log.WithError(err).Error("Failed to migrate play history")
		}
	}

	limiter := rate.NewLimiter(rate.Limit(viper.GetFloat64("youtube.rate")), viper.GetInt("youtube.burst"))
	resolver := yt.NewResolver(rdb, time.Duration(viper.GetInt("cache.youtube"))*time.Second, limiter)
	registry := session.NewRegistry()

	// Creates Discord Bot Session
	s, err := discordgo.New("Bot " + viper.GetString("discord.token"))
	if err != nil {
		log.WithError(err).Error("Failed to create discord session")
		return err
	}

	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info("Bot has registered handlers")
	})

	// Configuring Intents and Adding Handlers
	handlers.HandlerConfig(s)

	// Register Slash and Component Commands
	music := commands.NewMusic(s, registry, resolver, resolver, store, config.Session())
	commands.RegisterSlashCommands(s, music)

	// Connecting to Discord Server Gateway
	if err := s.Open(); err != nil {
		log.WithError(err).Error("Failed to open gateway connection")
		return err
	}
	log.Info("Bot is initialising")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sc:
	case <-music.ShutdownRequested():
	}
	gracefulShutdown(s, registry)
	if rdb != nil {
		rdb.Close()
	}
	return nil
}

// newHistoryStore keeps a nil store out of the HistoryStore interface
func newHistoryStore(db *gorm.DB) (commands.HistoryStore, error) {
	store, err := history.NewStore(db)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// gracefulShutdown leaves every voice session before closing the gateway
func gracefulShutdown(s *discordgo.Session, registry *session.Registry) {
	log.Info("Starting graceful shutdown...")

	log.WithFields(log.Fields{"sessions": registry.Len()}).Info("Leaving voice sessions")
	registry.Shutdown()

	s.Close()

	log.Info("Cleanly exiting")
}
