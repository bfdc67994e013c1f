package roles

import (
	"context"
	"errors"
	"slices"
	"strconv"
)

// ErrInvalidMemberID is returned for IDs that are not Discord snowflakes.
var ErrInvalidMemberID = errors.New("invalid member id")

// Checker maps a fixed set of role names to whether a member holds them.
type Checker struct {
	Lookup  MemberLookup
	GuildID string
	Roles   map[string]string // role name -> role ID
}

func NewChecker(lookup MemberLookup, guildID string, roles map[string]string) *Checker {
	return &Checker{Lookup: lookup, GuildID: guildID, Roles: roles}
}

// Check returns one entry per configured role name.
func (c *Checker) Check(ctx context.Context, memberID string) (map[string]bool, error) {
	if !ValidSnowflake(memberID) {
		return nil, ErrInvalidMemberID
	}

	held, err := c.Lookup.MemberRoles(ctx, c.GuildID, memberID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]bool, len(c.Roles))
	for name, id := range c.Roles {
		out[name] = slices.Contains(held, id)
	}
	return out, nil
}

// ValidSnowflake reports whether id is a non-zero unsigned 64-bit decimal.
func ValidSnowflake(id string) bool {
	if id == "" || len(id) > 20 {
		return false
	}
	n, err := strconv.ParseUint(id, 10, 64)
	return err == nil && n > 0
}
