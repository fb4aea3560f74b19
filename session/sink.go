package session

import "Nia/queue"

// Options are applied by the sink when an item starts rendering
type Options struct {
	Volume    float64 // 0.0 - 1.0
	Reconnect bool    // Retry transient drops of the stream transport
}

// Sink renders audio for a single session. Begin starts rendering asynchronously and
// returns a channel that receives exactly one value when the item ends: nil on
// completion, or the error that aborted it. Stop must also end the item.
type Sink interface {
	Begin(streamURL string, opts Options) (<-chan error, error)
	Pause() error
	Resume() error
	Stop() error
	SetVolume(volume float64)
	Move(channelID string) error
	Disconnect() error
}

// Notifier is told about events the playback loop produces on its own
type Notifier interface {
	NowPlaying(s *Session, e *queue.Entry)
	PlaybackFailed(s *Session, e *queue.Entry, err error)
	Disconnected(s *Session, reason error)
}

// Notifiers fans events out to several notifiers
type Notifiers []Notifier

func (n Notifiers) NowPlaying(s *Session, e *queue.Entry) {
	for _, notifier := range n {
		notifier.NowPlaying(s, e)
	}
}

func (n Notifiers) PlaybackFailed(s *Session, e *queue.Entry, err error) {
	for _, notifier := range n {
		notifier.PlaybackFailed(s, e, err)
	}
}

func (n Notifiers) Disconnected(s *Session, reason error) {
	for _, notifier := range n {
		notifier.Disconnected(s, reason)
	}
}
