package commands

import (
	"sync"

	"Nia/queue"
	"Nia/session"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
)

type messageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UpdateStreamingStatus(idle int, name string, url string) error
}

// channelNotifier announces session events in the text channel the last request came from
type channelNotifier struct {
	sender   messageSender
	mu       sync.Mutex
	channels map[string]string // Session key to text channel ID
}

var _ session.Notifier = (*channelNotifier)(nil)

func newChannelNotifier(sender messageSender) *channelNotifier {
	return &channelNotifier{
		sender:   sender,
		channels: make(map[string]string),
	}
}

func (n *channelNotifier) remember(key, channelID string) {
	if channelID == "" {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels[key] = channelID
}

func (n *channelNotifier) channel(key string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.channels[key]
}

func (n *channelNotifier) forget(key string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	channelID := n.channels[key]
	delete(n.channels, key)
	return channelID
}

func (n *channelNotifier) NowPlaying(s *session.Session, e *queue.Entry) {
	if err := n.sender.UpdateStreamingStatus(0, e.Item.Title, e.Item.URL); err != nil {
		log.WithFields(log.Fields{"guild_id": s.Key()}).WithError(err).Error("Failed to update presence")
	}

	n.remember(s.Key(), e.RequestedBy.ChannelID)
	channelID := n.channel(s.Key())
	if channelID == "" {
		return
	}
	if _, err := n.sender.ChannelMessageSendEmbed(channelID, nowPlayingEmbed(e, session.Playing, s.Loop(), embedColor())); err != nil {
		log.WithFields(log.Fields{"guild_id": s.Key(), "channel_id": channelID}).WithError(err).Error("Failed to announce now playing")
	}
}

func (n *channelNotifier) PlaybackFailed(s *session.Session, e *queue.Entry, err error) {
	channelID := n.channel(s.Key())
	if channelID == "" {
		return
	}
	n.send(channelID, errorMessage(err)+" (**"+e.Item.Title+"**)")
}

func (n *channelNotifier) Disconnected(s *session.Session, reason error) {
	channelID := n.forget(s.Key())
	if channelID == "" || reason == nil {
		return
	}
	n.send(channelID, errorMessage(reason))
}

func (n *channelNotifier) send(channelID, content string) {
	if _, err := n.sender.ChannelMessageSend(channelID, content); err != nil {
		log.WithFields(log.Fields{"channel_id": channelID}).WithError(err).Error("Failed to send message")
	}
}
