package config

import (
	"os"

	"github.com/spf13/viper"
)

func initDefaults() {
	viper.SetDefault("discord.token", os.Getenv("discord_token"))
	viper.SetDefault("discord.app.id", os.Getenv("discord_app_id"))
	viper.SetDefault("prefix", "nia ")
	viper.SetDefault("theme", 0x5865F2)

	viper.SetDefault("redis.address", os.Getenv("redis_address"))
	viper.SetDefault("postgres.dsn", "")

	viper.SetDefault("player.idle_timeout", 180)
	viper.SetDefault("player.skip_votes", 3)
	viper.SetDefault("player.volume", 0.5)
	viper.SetDefault("player.page_size", 10)

	viper.SetDefault("cache.youtube", 3600)
	viper.SetDefault("youtube.rate", 2)
	viper.SetDefault("youtube.burst", 5)

	viper.SetDefault("playlist.concurrency", 4)
	viper.SetDefault("playlist.limit", 50)
}
