package config

import (
	"strings"
	"time"

	"Nia/session"

	"github.com/Strum355/log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func InitConfig() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, proceeding with defaults.")
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	initDefaults()
	viper.AutomaticEnv()
}

// Session returns the playback session settings
func Session() session.Config {
	return session.Config{
		IdleTimeout: time.Duration(viper.GetInt("player.idle_timeout")) * time.Second,
		SkipVotes:   viper.GetInt("player.skip_votes"),
		Volume:      viper.GetFloat64("player.volume"),
		PageSize:    viper.GetInt("player.page_size"),
	}
}
