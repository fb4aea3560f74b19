package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"Nia/history"
	"Nia/media"
	"Nia/queue"
	"Nia/session"
	"Nia/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

const queuePagePrefix = "q:"

func embedColor() int {
	return viper.GetInt("theme")
}

func itemDuration(item *media.Item) time.Duration {
	return time.Duration(item.Duration) * time.Second
}

// trackLine renders one queue entry as a markdown line
func trackLine(position int, e *queue.Entry) string {
	title := e.Item.Title
	if e.Item.URL != "" {
		title = fmt.Sprintf("[%s](%s)", e.Item.Title, e.Item.URL)
	}
	return fmt.Sprintf("`%d.` %s `%s` requested by %s", position, title, utils.FormatDuration(itemDuration(e.Item)), e.RequestedBy.Mention())
}

// nowPlayingEmbed describes the entry a session is rendering
func nowPlayingEmbed(e *queue.Entry, state session.State, loop bool, color int) *discordgo.MessageEmbed {
	item := e.Item

	uploader := item.Uploader
	if item.UploaderURL != "" {
		uploader = fmt.Sprintf("[%s](%s)", item.Uploader, item.UploaderURL)
	}

	status := "▶️ Playing"
	if state == session.Paused {
		status = "⏸️ Paused"
	}
	if loop {
		status += " · 🔁 Loop"
	}

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: "🎵 Now Playing"},
		Title:  item.Title,
		URL:    item.URL,
		Color:  color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Duration", Value: utils.HumanDuration(itemDuration(item)), Inline: true},
			{Name: "Requested by", Value: e.RequestedBy.Mention(), Inline: true},
			{Name: "Uploader", Value: uploader, Inline: true},
			{Name: "Views", Value: humanize.Comma(int64(item.Views)), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: status},
	}
	if item.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: item.Thumbnail}
	}
	return embed
}

// queueEmbed shows one page of the queue below the entry currently playing
func queueEmbed(current *queue.Entry, entries []*queue.Entry, page, pages, total, perPage int, loop bool, color int) *discordgo.MessageEmbed {
	title := fmt.Sprintf("🎶 %d tracks", total)
	if total == 1 {
		title = "🎶 1 track"
	}
	if loop {
		title += " 🔁"
	}

	embed := &discordgo.MessageEmbed{
		Title: title,
		Color: color,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Viewing page %d/%d", page, max(pages, 1)),
		},
	}

	if current != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Now playing",
			Value: current.Item.String() + " requested by " + current.RequestedBy.Mention(),
		})
	}

	if len(entries) == 0 {
		embed.Description = "The queue is empty 😶"
		return embed
	}

	lines := make([]string, 0, len(entries))
	offset := (page - 1) * perPage
	for idx, e := range entries {
		lines = append(lines, trackLine(offset+idx+1, e))
	}
	embed.Description = strings.Join(lines, "\n")
	return embed
}

// queueButtons returns the page navigation row, or nothing for a single page
func queueButtons(page, pages int) []discordgo.MessageComponent {
	if pages <= 1 {
		return nil
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "⬅️ Previous",
					Style:    discordgo.SecondaryButton,
					CustomID: queuePagePrefix + strconv.Itoa(page-1),
					Disabled: page <= 1,
				},
				discordgo.Button{
					Label:    "Next ➡️",
					Style:    discordgo.SecondaryButton,
					CustomID: queuePagePrefix + strconv.Itoa(page+1),
					Disabled: page >= pages,
				},
			},
		},
	}
}

// parseQueuePage reads the page number out of a queue button custom ID
func parseQueuePage(customID string) (int, error) {
	if !strings.HasPrefix(customID, queuePagePrefix) {
		return 0, fmt.Errorf("unexpected queue custom_id %q", customID)
	}
	return strconv.Atoi(strings.TrimPrefix(customID, queuePagePrefix))
}

// historyEmbed lists recently played items, newest first
func historyEmbed(plays []history.Play, color int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "📜 Recently played",
		Color: color,
	}
	if len(plays) == 0 {
		embed.Description = "Nothing has been played yet."
		return embed
	}

	lines := make([]string, 0, len(plays))
	for idx, play := range plays {
		title := play.Title
		if play.URL != "" {
			title = fmt.Sprintf("[%s](%s)", play.Title, play.URL)
		}
		requester := media.Requester{ID: play.RequesterID, Name: play.RequesterName}
		lines = append(lines, fmt.Sprintf("`%d.` %s requested by %s <t:%d:R>", idx+1, title, requester.Mention(), play.PlayedAt.Unix()))
	}
	embed.Description = strings.Join(lines, "\n")
	return embed
}
