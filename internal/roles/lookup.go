// Package roles answers "does this guild member hold these roles" against
// Discord, backed by the gateway's member cache.
package roles

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"romvault/pkg/logging"
)

// ErrMemberNotFound is returned when the guild has no such member.
var ErrMemberNotFound = errors.New("member not found")

// MemberLookup returns the role IDs a guild member holds.
type MemberLookup interface {
	MemberRoles(ctx context.Context, guildID, memberID string) ([]string, error)
}

// DiscordLookup reads members from the session state cache and falls back
// to the REST API on a miss. REST results are added to the cache.
type DiscordLookup struct {
	Session *discordgo.Session
	Logger  zerolog.Logger
}

// NewDiscordSession creates a bot session with the intents the member cache
// needs. The caller opens and closes it.
func NewDiscordSession(botToken string) (*discordgo.Session, error) {
	if botToken == "" {
		return nil, errors.New("discord bot token is empty")
	}
	s, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	s.StateEnabled = true
	return s, nil
}

func NewDiscordLookup(s *discordgo.Session) *DiscordLookup {
	return &DiscordLookup{Session: s, Logger: logging.Component("roles")}
}

func (d *DiscordLookup) MemberRoles(ctx context.Context, guildID, memberID string) ([]string, error) {
	if d.Session.State != nil {
		if m, err := d.Session.State.Member(guildID, memberID); err == nil {
			return m.Roles, nil
		}
	}

	m, err := d.Session.GuildMember(guildID, memberID, discordgo.WithContext(ctx))
	if err != nil {
		if isUnknownMember(err) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("fetch guild member: %w", err)
	}

	if d.Session.State != nil {
		m.GuildID = guildID
		if err := d.Session.State.MemberAdd(m); err != nil {
			// guild not in state yet (gateway not ready)
			d.Logger.Debug().Err(err).Str("member", memberID).Msg("member not cached")
		}
	}
	return m.Roles, nil
}

func isUnknownMember(err error) bool {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return false
	}
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
			return true
		}
	}
	return rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}
