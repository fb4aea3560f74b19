package commands

import (
	"Nia/media"

	"github.com/bwmarrin/discordgo"
)

// userVoiceChannel returns the voice channel the user is currently in
func userVoiceChannel(s *discordgo.Session, guildID, userID string) (string, error) {
	vs, err := s.State.VoiceState(guildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", errNotInVoice
	}
	return vs.ChannelID, nil
}

// checkUserVoiceChannel checks whether user is in the same voice channel as bot
func checkUserVoiceChannel(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	channelID, err := userVoiceChannel(s, i.GuildID, i.Member.User.ID)
	if err != nil {
		return err
	}

	// Check if bot is already in a different voice channel
	if vc, ok := s.VoiceConnections[i.GuildID]; ok && vc != nil && vc.ChannelID != channelID {
		return errOtherChannel
	}
	return nil
}

// requesterOf identifies the member invoking an interaction
func requesterOf(i *discordgo.InteractionCreate) media.Requester {
	user := i.Member.User
	name := i.Member.Nick
	if name == "" {
		name = user.GlobalName
	}
	if name == "" {
		name = user.Username
	}
	return media.Requester{ID: user.ID, Name: name, ChannelID: i.ChannelID}
}

func options(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, opt := range i.ApplicationCommandData().Options {
		opts[opt.Name] = opt
	}
	return opts
}

func reply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

func replyEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components ...discordgo.MessageComponent) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
}

func deferReply(s *discordgo.Session, i *discordgo.InteractionCreate) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func followup(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
	})
}
