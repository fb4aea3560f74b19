package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"Nia/history"
	"Nia/media"
	"Nia/queue"
	"Nia/session"
	"Nia/utils"
	"Nia/voice"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
)

// PlaylistSource lists the videos of a playlist link
type PlaylistSource interface {
	PlaylistVideoIDs(ctx context.Context, playlistURL string) ([]string, error)
}

// HistoryStore records and lists what guilds have played
type HistoryStore interface {
	Record(ctx context.Context, guildID string, e *queue.Entry) error
	Recent(ctx context.Context, guildID string, limit int) ([]history.Play, error)
}

// Music holds what the music commands operate on
type Music struct {
	registry  *session.Registry
	resolver  media.Resolver
	playlists PlaylistSource
	history   HistoryStore // nil when postgres is not configured
	cfg       session.Config
	notifier  *channelNotifier
	notifiers session.Notifiers

	shutdownOnce sync.Once
	shutdown     chan struct{} // Closed when /shutdown is used
}

// NewMusic wires the music commands. store may be nil to disable history.
func NewMusic(s *discordgo.Session, registry *session.Registry, resolver media.Resolver, playlists PlaylistSource, store HistoryStore, cfg session.Config) *Music {
	m := &Music{
		registry:  registry,
		resolver:  resolver,
		playlists: playlists,
		history:   store,
		cfg:       cfg,
		notifier:  newChannelNotifier(s),
		shutdown:  make(chan struct{}),
	}
	m.notifiers = session.Notifiers{m.notifier}
	if store != nil {
		m.notifiers = append(m.notifiers, history.NewNotifier(store))
	}
	return m
}

// joinSession returns the guild's session, joining the caller's voice channel first if
// there is none yet
func (m *Music) joinSession(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) (*session.Session, error) {
	if sess, ok := liveSession(ctx, m.registry, i.GuildID); ok {
		return sess, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	channelID, err := userVoiceChannel(s, i.GuildID, i.Member.User.ID)
	if err != nil {
		return nil, err
	}

	vc, err := s.ChannelVoiceJoin(i.GuildID, channelID, false, true)
	if err != nil {
		return nil, err
	}

	return m.registry.GetOrCreate(i.GuildID, func(key string) (*session.Session, error) {
		return session.New(key, voice.New(vc), m.cfg, session.WithNotifier(m.notifiers)), nil
	})
}

// liveSession returns the guild's session unless it is stopped. A session still leaving
// its voice channel is waited for first.
func liveSession(ctx context.Context, registry *session.Registry, key string) (*session.Session, bool) {
	for {
		sess, ok := registry.Get(key)
		if !ok {
			return nil, false
		}
		if sess.State() != session.Stopped {
			return sess, true
		}
		select {
		case <-sess.Closed():
		case <-ctx.Done():
			return nil, false
		}
	}
}

// activeSession returns the guild's session for commands that need the bot connected
func (m *Music) activeSession(s *discordgo.Session, i *discordgo.InteractionCreate) (*session.Session, error) {
	if err := checkUserVoiceChannel(s, i); err != nil {
		return nil, err
	}
	sess, ok := m.registry.Get(i.GuildID)
	if !ok {
		return nil, errNoSession
	}
	return sess, nil
}

// playSong resolves the search and adds the result to the guild's queue
func (m *Music) playSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	if err := checkUserVoiceChannel(s, i); err != nil {
		reply(s, i, errorMessage(err))
		return nil
	}

	deferReply(s, i)

	search := options(i)["search"].StringValue()
	requester := requesterOf(i)

	item, err := m.resolver.Resolve(ctx, search, requester)
	if err != nil {
		log.WithContext(ctx).WithError(err).Info("Failed to resolve search")
		followup(s, i, errorMessage(err))
		return nil
	}

	sess, err := m.joinSession(ctx, s, i)
	if err != nil {
		return &interactionError{err, errorMessage(err)}
	}
	m.notifier.remember(i.GuildID, i.ChannelID)

	if _, err := sess.Enqueue(item); err != nil {
		followup(s, i, errorMessage(err))
		return nil
	}

	followup(s, i, fmt.Sprintf("🎵 %s added to the queue (`%s`)", item.String(), utils.FormatDuration(itemDuration(item))))
	return nil
}

// joinChannel connects to the caller's voice channel, moving an existing session there
func (m *Music) joinChannel(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	channelID, err := userVoiceChannel(s, i.GuildID, i.Member.User.ID)
	if err != nil {
		reply(s, i, errorMessage(err))
		return nil
	}

	if sess, ok := liveSession(ctx, m.registry, i.GuildID); ok {
		if err := sess.Move(channelID); err != nil {
			return &interactionError{err, "Couldn't move to your voice channel"}
		}
		reply(s, i, fmt.Sprintf("🔊 Moved to <#%s>", channelID))
		return nil
	}

	if _, err := m.joinSession(ctx, s, i); err != nil {
		return &interactionError{err, "Couldn't join your voice channel"}
	}
	m.notifier.remember(i.GuildID, i.ChannelID)
	reply(s, i, fmt.Sprintf("🔊 Joined <#%s>", channelID))
	return nil
}

// pauseSong pauses the current song
func (m *Music) pauseSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, err := m.activeSession(s, i)
	if err == nil {
		err = sess.Pause()
	}
	if err != nil {
		reply(s, i, errorMessage(err))
		return nil
	}
	reply(s, i, "⏸️ Paused")
	return nil
}

// resumeSong resumes the current song
func (m *Music) resumeSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, err := m.activeSession(s, i)
	if err == nil {
		err = sess.Resume()
	}
	if err != nil {
		reply(s, i, errorMessage(err))
		return nil
	}
	reply(s, i, "▶️ Resumed")
	return nil
}

// stopSong clears the queue and ends the current song, staying connected
func (m *Music) stopSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, err := m.activeSession(s, i)
	if err == nil {
		err = sess.Stop()
	}
	if err != nil {
		reply(s, i, errorMessage(err))
		return nil
	}
	reply(s, i, "⏹️ Playback stopped and queue cleared")
	return nil
}

// leaveChannel ends the session and disconnects the bot from the voice channel
func (m *Music) leaveChannel(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, err := m.activeSession(s, i)
	if err == nil {
		err = sess.Leave()
	}
	if err != nil {
		reply(s, i, errorMessage(err))
		return nil
	}
	m.notifier.forget(i.GuildID)
	reply(s, i, "👋 Disconnected")
	return nil
}

// skipSong skips outright for the requester and counts a vote for anyone else
func (m *Music) skipSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, err := m.activeSession(s, i)
	if err != nil {
		reply(s, i, errorMessage(err))
		return nil
	}

	result, err := sess.Skip(requesterOf(i))
	reply(s, i, skipMessage(result, err))
	return nil
}

func skipMessage(result session.SkipResult, err error) string {
	switch {
	case errors.Is(err, session.ErrAlreadyVoted):
		return fmt.Sprintf("%s (%d/%d)", errorMessage(err), result.Votes, result.Required)
	case err != nil:
		return errorMessage(err)
	case result.Skipped:
		return "⏭️ Skipped"
	}
	return fmt.Sprintf("🗳️ Skip vote registered (%d/%d)", result.Votes, result.Required)
}

// nowPlaying shows the song currently playing
func (m *Music) nowPlaying(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, ok := m.registry.Get(i.GuildID)
	if !ok || sess.Current() == nil {
		reply(s, i, "🎶 Nothing is playing right now 😶")
		return nil
	}
	replyEmbed(s, i, nowPlayingEmbed(sess.Current(), sess.State(), sess.Loop(), embedColor()))
	return nil
}

// showQueue shows a page of the queue
func (m *Music) showQueue(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, ok := m.registry.Get(i.GuildID)
	if !ok {
		reply(s, i, "🎶 The queue is empty 😶")
		return nil
	}

	page := 1
	if opt, ok := options(i)["page"]; ok {
		page = int(opt.IntValue())
	}

	embed, buttons := m.queuePage(sess, page)
	replyEmbed(s, i, embed, buttons...)
	return nil
}

// queuePageButton flips the page of a queue message
func (m *Music) queuePageButton(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	page, err := parseQueuePage(i.MessageComponentData().CustomID)
	if err != nil {
		return &interactionError{err, "Couldn't read the queue page"}
	}

	sess, ok := m.registry.Get(i.GuildID)
	if !ok {
		return &interactionError{errNoSession, errorMessage(errNoSession)}
	}

	embed, buttons := m.queuePage(sess, page)
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: buttons,
		},
	})
	return nil
}

func (m *Music) queuePage(sess *session.Session, page int) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	_, pages := sess.QueuePage(1)
	page = max(1, min(page, pages))
	entries, pages := sess.QueuePage(page)
	embed := queueEmbed(sess.Current(), entries, page, pages, sess.Len(), sess.PageSize(), sess.Loop(), embedColor())
	return embed, queueButtons(page, pages)
}

// loopSong toggles replaying the current song
func (m *Music) loopSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, err := m.activeSession(s, i)
	if err != nil {
		reply(s, i, errorMessage(err))
		return nil
	}

	status := "disabled"
	if sess.ToggleLoop() {
		status = "enabled"
	}
	reply(s, i, fmt.Sprintf("🔁 Loop %s", status))
	return nil
}

// setVolume sets the volume from a 0-100 percentage, or shows it without one
func (m *Music) setVolume(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, err := m.activeSession(s, i)
	if err != nil {
		reply(s, i, errorMessage(err))
		return nil
	}

	opt, ok := options(i)["percent"]
	if !ok {
		reply(s, i, fmt.Sprintf("🔊 Volume is %d%%", volumePercent(sess.Volume())))
		return nil
	}

	if err := sess.SetVolume(float64(opt.IntValue()) / 100); err != nil {
		reply(s, i, errorMessage(err))
		return nil
	}
	reply(s, i, fmt.Sprintf("🔊 Volume set to %d%%", volumePercent(sess.Volume())))
	return nil
}

func volumePercent(volume float64) int {
	return int(volume*100 + 0.5)
}

// shuffleQueue shuffles the current song queue
func (m *Music) shuffleQueue(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, err := m.activeSession(s, i)
	if err != nil {
		reply(s, i, errorMessage(err))
		return nil
	}
	if sess.Len() == 0 {
		reply(s, i, "🎶 The queue is empty 😶")
		return nil
	}

	sess.Shuffle()
	reply(s, i, "🔀 Queue shuffled!")
	return nil
}

// removeSong removes the song at a 1-based queue position
func (m *Music) removeSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, err := m.activeSession(s, i)
	if err != nil {
		reply(s, i, errorMessage(err))
		return nil
	}

	position := int(options(i)["position"].IntValue())
	entry, err := sess.Remove(position - 1)
	if err != nil {
		reply(s, i, errorMessage(err))
		return nil
	}
	reply(s, i, fmt.Sprintf("🗑️ Removed %s from the queue", entry.Item.String()))
	return nil
}

// ShutdownRequested is closed once a member with Manage Server asks the bot to shut down
func (m *Music) ShutdownRequested() <-chan struct{} {
	return m.shutdown
}

func (m *Music) requestShutdown() {
	m.shutdownOnce.Do(func() {
		close(m.shutdown)
	})
}

func canManageGuild(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionManageGuild != 0
}

// shutdownBot stops every session and the bot process
func (m *Music) shutdownBot(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	if !canManageGuild(i) {
		reply(s, i, "You need the Manage Server permission to shut me down.")
		return nil
	}

	log.WithContext(ctx).Info("Shutdown requested")
	reply(s, i, "Shutting Down")
	m.requestShutdown()
	return nil
}
