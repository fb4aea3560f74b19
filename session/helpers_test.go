package session

import (
	"sync"
	"testing"
	"time"

	"Nia/media"
	"Nia/queue"
)

type beginCall struct {
	url  string
	opts Options
}

// fakeSink plays nothing; tests end items with finish
type fakeSink struct {
	mu           sync.Mutex
	calls        []beginCall
	active       chan error
	beginErr     error
	paused       bool
	volume       float64
	channelID    string
	stops        int
	disconnected int
	begun        chan string
	hold         chan struct{} // When set, Disconnect blocks until it is closed
}

func newFakeSink() *fakeSink {
	return &fakeSink{begun: make(chan string, 64)}
}

func (f *fakeSink) Begin(streamURL string, opts Options) (<-chan error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.beginErr != nil {
		err := f.beginErr
		f.beginErr = nil
		f.begun <- streamURL
		return nil, err
	}
	f.calls = append(f.calls, beginCall{url: streamURL, opts: opts})
	f.active = make(chan error, 1)
	f.volume = opts.Volume
	f.paused = false
	f.begun <- streamURL
	return f.active, nil
}

// finish reports the end of the active item
func (f *fakeSink) finish(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active != nil {
		f.active <- err
		f.active = nil
	}
}

func (f *fakeSink) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
	return nil
}

func (f *fakeSink) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = false
	return nil
}

func (f *fakeSink) Stop() error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	f.finish(nil)
	return nil
}

func (f *fakeSink) SetVolume(volume float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = volume
}

func (f *fakeSink) Move(channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channelID = channelID
	return nil
}

func (f *fakeSink) Disconnect() error {
	if f.hold != nil {
		<-f.hold
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected++
	return nil
}

func (f *fakeSink) isPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakeSink) currentVolume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

func (f *fakeSink) lastCall() beginCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeSink) disconnects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

// waitBegin returns the stream URL of the next item the sink was asked to play
func waitBegin(t *testing.T, f *fakeSink) string {
	t.Helper()
	select {
	case url := <-f.begun:
		return url
	case <-time.After(2 * time.Second):
		t.Fatal("sink was never asked to play")
		return ""
	}
}

// assertNoBegin fails if the sink is asked to play anything within d
func assertNoBegin(t *testing.T, f *fakeSink, d time.Duration) {
	t.Helper()
	select {
	case url := <-f.begun:
		t.Fatalf("sink unexpectedly asked to play %s", url)
	case <-time.After(d):
	}
}

type fakeNotifier struct {
	mu           sync.Mutex
	playing      []string
	failures     []error
	disconnected []error
}

func (n *fakeNotifier) NowPlaying(s *Session, e *queue.Entry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.playing = append(n.playing, e.Item.Title)
}

func (n *fakeNotifier) PlaybackFailed(s *Session, e *queue.Entry, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, err)
}

func (n *fakeNotifier) Disconnected(s *Session, reason error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disconnected = append(n.disconnected, reason)
}

func (n *fakeNotifier) playingList() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.playing...)
}

func (n *fakeNotifier) failureList() []error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]error{}, n.failures...)
}

func (n *fakeNotifier) disconnectList() []error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]error{}, n.disconnected...)
}

func newItem(title, requesterID string) *media.Item {
	return &media.Item{
		Title:       title,
		StreamURL:   "https://stream.test/" + title,
		RequestedBy: media.Requester{ID: requesterID, Name: requesterID},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.IdleTimeout = time.Minute
	return cfg
}

func startSession(t *testing.T, cfg Config) (*Session, *fakeSink, *fakeNotifier) {
	t.Helper()
	sink := newFakeSink()
	notifier := &fakeNotifier{}
	s := New("guild-1", sink, cfg, WithNotifier(notifier))
	s.Start()
	t.Cleanup(func() { _ = s.Leave() })
	return s, sink, notifier
}
