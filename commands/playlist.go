package commands

import (
	"context"
	"fmt"

	"Nia/playlist"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

const watchURL = "https://www.youtube.com/watch?v="

// playList queues every song of a YouTube playlist, in playlist order
func (m *Music) playList(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	if err := checkUserVoiceChannel(s, i); err != nil {
		reply(s, i, errorMessage(err))
		return nil
	}

	deferReply(s, i)

	url := options(i)["url"].StringValue()
	ids, err := m.playlists.PlaylistVideoIDs(ctx, url)
	if err != nil {
		log.WithContext(ctx).WithError(err).Info("Failed to fetch playlist")
		followup(s, i, errorMessage(err))
		return nil
	}

	searches := playlistSearches(ids, viper.GetInt("playlist.limit"))
	items := playlist.ResolveConcurrently(ctx, m.resolver, searches, requesterOf(i), viper.GetInt("playlist.concurrency"))
	if len(items) == 0 {
		followup(s, i, "❌ None of the songs in that playlist could be played.")
		return nil
	}

	sess, err := m.joinSession(ctx, s, i)
	if err != nil {
		return &interactionError{err, errorMessage(err)}
	}
	m.notifier.remember(i.GuildID, i.ChannelID)

	queued := 0
	for _, item := range items {
		if _, err := sess.Enqueue(item); err != nil {
			followup(s, i, errorMessage(err))
			return nil
		}
		queued++
	}

	followup(s, i, fmt.Sprintf("📃 Queued %d of %d songs from the playlist", queued, len(ids)))
	return nil
}

// playlistSearches turns playlist video IDs into watch links, keeping at most limit
func playlistSearches(ids []string, limit int) []string {
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	searches := make([]string, 0, len(ids))
	for _, id := range ids {
		searches = append(searches, watchURL+id)
	}
	return searches
}

// recentlyPlayed lists the guild's play history
func (m *Music) recentlyPlayed(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	if m.history == nil {
		reply(s, i, errorMessage(errNoHistory))
		return nil
	}

	plays, err := m.history.Recent(ctx, i.GuildID, viper.GetInt("player.page_size"))
	if err != nil {
		return &interactionError{err, "Couldn't load the play history"}
	}
	replyEmbed(s, i, historyEmbed(plays, embedColor()))
	return nil
}
