package handlers

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

// MessageHandler handles message commands
func MessageHandler(s *discordgo.Session, m *discordgo.MessageCreate) {
	// If message is sent from the bot
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}

	switch prefixCommand(m.Content, viper.GetString("prefix")) {
	case "":
		return
	case "help":
		HelpEmbedding(s, m)
	default:
		prefix := strings.TrimSpace(viper.GetString("prefix"))
		s.ChannelMessageSend(m.ChannelID, "type `"+prefix+" help` to open help menu.") // invalid prefix command
	}
}

// prefixCommand returns "help" for the help command, "?" for any other prefixed
// message and "" when the message does not start with prefix
func prefixCommand(content, prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}

	content = strings.TrimSpace(content)
	if len(content) < len(prefix) || !strings.EqualFold(content[:len(prefix)], prefix) {
		return ""
	}

	rest := content[len(prefix):]
	if rest != "" && isWordByte(prefix[len(prefix)-1]) && isWordByte(rest[0]) {
		return ""
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "?"
	}
	if fields[0] == "help" {
		return "help"
	}
	return "?"
}

func isWordByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}
