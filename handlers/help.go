package handlers

import (
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

var helpFields = []*discordgo.MessageEmbedField{
	{Name: "/play `search`", Value: "Play a song from a YouTube link or search terms"},
	{Name: "/playlist `url`", Value: "Queue every song of a YouTube playlist"},
	{Name: "/join", Value: "Join or move to your voice channel"},
	{Name: "/pause, /resume", Value: "Pause or resume the current song"},
	{Name: "/skip", Value: "Skip your song, or vote to skip someone else's"},
	{Name: "/stop", Value: "Stop playback and clear the queue"},
	{Name: "/queue `page`", Value: "Show the queue"},
	{Name: "/np", Value: "Show the song that's now playing"},
	{Name: "/loop", Value: "Toggle looping the current song"},
	{Name: "/volume `percent`", Value: "Show or set the volume"},
	{Name: "/shuffle, /remove `position`", Value: "Rearrange the queue"},
	{Name: "/history", Value: "Songs played recently in this server"},
	{Name: "/leave", Value: "Disconnect from voice chat"},
	{Name: "/shutdown", Value: "Shut the bot down (Manage Server only)"},
}

// HelpEmbedding creates the embedding for the help menu
func HelpEmbedding(s *discordgo.Session, m *discordgo.MessageCreate) {
	botAvatarURL := s.State.User.AvatarURL("64")
	helpEmbed := &discordgo.MessageEmbed{
		Title: "Nia Help",
		Thumbnail: &discordgo.MessageEmbedThumbnail{
			URL: botAvatarURL,
		},
		Color:  viper.GetInt("theme"),
		Fields: helpFields,
	}
	s.ChannelMessageSendEmbed(m.ChannelID, helpEmbed)
}
