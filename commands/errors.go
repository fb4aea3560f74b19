package commands

import (
	"errors"

	"Nia/media"
	"Nia/queue"
	"Nia/session"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
)

var (
	errNotInVoice   = errors.New("user is not in a voice channel")
	errOtherChannel = errors.New("bot is in another voice channel")
	errNoSession    = errors.New("no session for guild")
	errNoHistory    = errors.New("play history is disabled")
)

type interactionError struct {
	err     error
	message string
}

// Handle handles responding to error messages within Discord
func (e *interactionError) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	log.WithError(e.err).Error(e.message)
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:   discordgo.MessageFlagsEphemeral,
			Content: e.message,
		},
	})
	// Deferred interactions can only be answered with a followup
	if err != nil {
		s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Flags:   discordgo.MessageFlagsEphemeral,
			Content: e.message,
		})
	}
}

// errorMessage turns a playback error into the reply shown to the user
func errorMessage(err error) string {
	switch {
	case errors.Is(err, media.ErrNotFound):
		return "❌ Nothing matched your search."
	case errors.Is(err, media.ErrResolutionFailed):
		return "❌ Could not fetch the video. It may be private or removed."
	case errors.Is(err, session.ErrNotPlaying):
		return "Nothing is playing right now 😶"
	case errors.Is(err, session.ErrNotPaused):
		return "Playback isn't paused."
	case errors.Is(err, session.ErrAlreadyVoted):
		return "You already voted to skip this song."
	case errors.Is(err, session.ErrInvalidVolume):
		return "Volume must be between 0 and 100."
	case errors.Is(err, queue.ErrOutOfRange):
		return "There's no song at that position in the queue."
	case errors.Is(err, session.ErrAlreadyStopped), errors.Is(err, errNoSession):
		return "I'm not connected to a voice channel."
	case errors.Is(err, session.ErrIdleTimeout):
		return "👋 Left the voice channel due to inactivity."
	case errors.Is(err, session.ErrPlayback):
		return "⚠️ Couldn't play that song, moving on."
	case errors.Is(err, errNotInVoice):
		return "Join a voice channel first 😉"
	case errors.Is(err, errOtherChannel):
		return "I'm already in another voice channel 😅"
	case errors.Is(err, errNoHistory):
		return "Play history isn't enabled on this bot."
	}
	return "Something went wrong 😵"
}
