package commands

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"Nia/session"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	channelID string
	content   string
	embed     *discordgo.MessageEmbed
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	presence []string
	err      error
}

func (f *fakeSender) UpdateStreamingStatus(idle int, name string, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presence = append(f.presence, name+" "+url)
	return f.err
}

func (f *fakeSender) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channelID: channelID, content: content})
	return &discordgo.Message{}, f.err
}

func (f *fakeSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channelID: channelID, embed: embed})
	return &discordgo.Message{}, f.err
}

func TestChannelNotifier_NowPlaying(t *testing.T) {
	sender := &fakeSender{}
	n := newChannelNotifier(sender)
	s := session.New("guild-1", nil, session.DefaultConfig())

	n.NowPlaying(s, testEntry("abc"))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "text-1", sender.sent[0].channelID)
	require.NotNil(t, sender.sent[0].embed)
	assert.Equal(t, "abc", sender.sent[0].embed.Title)
	assert.Equal(t, "text-1", n.channel("guild-1"))
	assert.Equal(t, []string{"abc https://www.youtube.com/watch?v=abc"}, sender.presence)
}

func TestChannelNotifier_FallsBackToRememberedChannel(t *testing.T) {
	sender := &fakeSender{}
	n := newChannelNotifier(sender)
	s := session.New("guild-1", nil, session.DefaultConfig())
	n.remember("guild-1", "text-2")

	e := testEntry("abc")
	e.RequestedBy.ChannelID = ""
	n.NowPlaying(s, e)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "text-2", sender.sent[0].channelID)
}

func TestChannelNotifier_PlaybackFailed(t *testing.T) {
	sender := &fakeSender{}
	n := newChannelNotifier(sender)
	s := session.New("guild-1", nil, session.DefaultConfig())

	n.PlaybackFailed(s, testEntry("abc"), fmt.Errorf("%w: ffmpeg", session.ErrPlayback))
	assert.Empty(t, sender.sent)

	n.remember("guild-1", "text-1")
	n.PlaybackFailed(s, testEntry("abc"), fmt.Errorf("%w: ffmpeg", session.ErrPlayback))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "⚠️ Couldn't play that song, moving on. (**abc**)", sender.sent[0].content)
}

func TestChannelNotifier_Disconnected(t *testing.T) {
	sender := &fakeSender{err: errors.New("missing access")}
	n := newChannelNotifier(sender)
	s := session.New("guild-1", nil, session.DefaultConfig())
	n.remember("guild-1", "text-1")

	n.Disconnected(s, session.ErrIdleTimeout)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "👋 Left the voice channel due to inactivity.", sender.sent[0].content)
	assert.Empty(t, n.channel("guild-1"))

	n.Disconnected(s, session.ErrIdleTimeout)
	assert.Len(t, sender.sent, 1)
}
