package commands

import (
	"fmt"
	"testing"
	"time"

	"Nia/history"
	"Nia/media"
	"Nia/queue"
	"Nia/session"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(title string) *queue.Entry {
	return queue.NewEntry(&media.Item{
		Title:       title,
		Uploader:    "Debussy",
		UploaderURL: "https://www.youtube.com/channel/UC1",
		Duration:    200,
		Thumbnail:   "https://i.ytimg.com/vi/x/hq.jpg",
		Views:       1234,
		URL:         "https://www.youtube.com/watch?v=" + title,
		RequestedBy: media.Requester{ID: "42", Name: "nia", ChannelID: "text-1"},
	})
}

func TestNowPlayingEmbed(t *testing.T) {
	embed := nowPlayingEmbed(testEntry("abc"), session.Playing, false, 0x123456)

	assert.Equal(t, "abc", embed.Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", embed.URL)
	assert.Equal(t, 0x123456, embed.Color)
	assert.Equal(t, "https://i.ytimg.com/vi/x/hq.jpg", embed.Thumbnail.URL)
	assert.Equal(t, "▶️ Playing", embed.Footer.Text)

	require.Len(t, embed.Fields, 4)
	assert.Equal(t, "3 minutes, 20 seconds", embed.Fields[0].Value)
	assert.Equal(t, "<@42>", embed.Fields[1].Value)
	assert.Equal(t, "[Debussy](https://www.youtube.com/channel/UC1)", embed.Fields[2].Value)
	assert.Equal(t, "1,234", embed.Fields[3].Value)
}

func TestNowPlayingEmbed_PausedLooping(t *testing.T) {
	e := testEntry("abc")
	e.Item.Thumbnail = ""
	e.Item.UploaderURL = ""

	embed := nowPlayingEmbed(e, session.Paused, true, 0)

	assert.Equal(t, "⏸️ Paused · 🔁 Loop", embed.Footer.Text)
	assert.Nil(t, embed.Thumbnail)
	assert.Equal(t, "Debussy", embed.Fields[2].Value)
}

func TestQueueEmbed(t *testing.T) {
	entries := []*queue.Entry{testEntry("k"), testEntry("l")}

	embed := queueEmbed(testEntry("now"), entries, 2, 3, 22, 10, false, 0)

	assert.Equal(t, "🎶 22 tracks", embed.Title)
	assert.Equal(t, "Viewing page 2/3", embed.Footer.Text)
	assert.Contains(t, embed.Description, "`11.` [k](https://www.youtube.com/watch?v=k) `03:20` requested by <@42>")
	assert.Contains(t, embed.Description, "`12.` [l]")
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "Now playing", embed.Fields[0].Name)
}

func TestQueueEmbed_Empty(t *testing.T) {
	embed := queueEmbed(nil, nil, 1, 0, 0, 10, true, 0)

	assert.Equal(t, "🎶 0 tracks 🔁", embed.Title)
	assert.Equal(t, "Viewing page 1/1", embed.Footer.Text)
	assert.Equal(t, "The queue is empty 😶", embed.Description)
	assert.Empty(t, embed.Fields)
}

func TestQueueEmbed_SingleTrack(t *testing.T) {
	embed := queueEmbed(nil, []*queue.Entry{testEntry("a")}, 1, 1, 1, 10, false, 0)
	assert.Equal(t, "🎶 1 track", embed.Title)
}

func TestQueueButtons(t *testing.T) {
	assert.Nil(t, queueButtons(1, 1))
	assert.Nil(t, queueButtons(1, 0))

	components := queueButtons(1, 3)
	require.Len(t, components, 1)
	row := components[0].(discordgo.ActionsRow)
	require.Len(t, row.Components, 2)

	prev := row.Components[0].(discordgo.Button)
	next := row.Components[1].(discordgo.Button)
	assert.True(t, prev.Disabled)
	assert.Equal(t, "q:0", prev.CustomID)
	assert.False(t, next.Disabled)
	assert.Equal(t, "q:2", next.CustomID)

	last := queueButtons(3, 3)[0].(discordgo.ActionsRow)
	assert.False(t, last.Components[0].(discordgo.Button).Disabled)
	assert.True(t, last.Components[1].(discordgo.Button).Disabled)
}

func TestParseQueuePage(t *testing.T) {
	page, err := parseQueuePage("q:4")
	assert.NoError(t, err)
	assert.Equal(t, 4, page)

	_, err = parseQueuePage("x:4")
	assert.Error(t, err)

	_, err = parseQueuePage("q:four")
	assert.Error(t, err)
}

func TestHistoryEmbed(t *testing.T) {
	playedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	plays := []history.Play{
		{Title: "Clair de Lune", URL: "https://www.youtube.com/watch?v=1", RequesterID: "42", PlayedAt: playedAt},
		{Title: "Arabesque", RequesterName: "nia", PlayedAt: playedAt},
	}

	embed := historyEmbed(plays, 0)

	assert.Contains(t, embed.Description, fmt.Sprintf("`1.` [Clair de Lune](https://www.youtube.com/watch?v=1) requested by <@42> <t:%d:R>", playedAt.Unix()))
	assert.Contains(t, embed.Description, "`2.` Arabesque requested by nia")
}

func TestHistoryEmbed_Empty(t *testing.T) {
	assert.Equal(t, "Nothing has been played yet.", historyEmbed(nil, 0).Description)
}
