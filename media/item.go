package media

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("nothing matched the search")
	ErrResolutionFailed = errors.New("could not resolve the search")
)

// Requester identifies who asked for an item and where they asked from
type Requester struct {
	ID        string // Discord user ID, used for skip votes
	Name      string // Display name
	ChannelID string // Text channel the request was made in
}

// Mention returns the Discord mention for the requester
func (r Requester) Mention() string {
	if r.ID == "" {
		return r.Name
	}
	return "<@" + r.ID + ">"
}

// Item is one resolved media item. It is never modified after the resolver builds it.
type Item struct {
	Title       string
	Uploader    string
	UploaderURL string
	Duration    int // seconds
	Thumbnail   string
	Description string
	Views       int
	Likes       int
	Dislikes    int
	URL         string // canonical page URL
	StreamURL   string // direct audio stream URL handed to the sink
	RequestedBy Requester
	RequestedAt time.Time
}

func (i *Item) String() string {
	return "**" + i.Title + "** by **" + i.Uploader + "**"
}

// Resolver turns a free-text search or a URL into a playable item
type Resolver interface {
	Resolve(ctx context.Context, search string, requester Requester) (*Item, error)
}
