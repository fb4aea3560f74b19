package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"Nia/media"
	"Nia/queue"

	"github.com/Strum355/log"
)

var (
	ErrAlreadyStopped = errors.New("session already stopped")
	ErrNotPlaying     = errors.New("nothing is playing right now")
	ErrNotPaused      = errors.New("playback is not paused")
	ErrAlreadyVoted   = errors.New("already voted to skip this item")
	ErrInvalidVolume  = errors.New("volume must be between 0 and 1")
	ErrPlayback       = errors.New("playback failed")
	ErrIdleTimeout    = errors.New("disconnected due to inactivity")
)

const (
	DefaultIdleTimeout = 180 * time.Second
	DefaultSkipVotes   = 3
	DefaultVolume      = 0.5
	DefaultPageSize    = 10
)

type State int

const (
	Idle State = iota
	Playing
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	case Stopped:
		return "Stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Config struct {
	IdleTimeout time.Duration // Time allowed in Idle before the session stops itself
	SkipVotes   int           // Distinct votes needed to skip someone else's item
	Volume      float64       // Initial volume
	PageSize    int           // Entries per queue page
}

func DefaultConfig() Config {
	return Config{
		IdleTimeout: DefaultIdleTimeout,
		SkipVotes:   DefaultSkipVotes,
		Volume:      DefaultVolume,
		PageSize:    DefaultPageSize,
	}
}

type Option func(*Session)

// WithNotifier sets who hears about now playing, playback errors and self-stops
func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		s.notifier = n
	}
}

// SkipResult reports the outcome of a skip request
type SkipResult struct {
	Skipped  bool // The current item is being skipped
	Votes    int  // Distinct votes counted for the current item
	Required int  // Votes needed to skip
}

// Session plays the queue of one guild through its sink
type Session struct {
	key      string
	cfg      Config
	queue    *queue.Queue
	sink     Sink
	notifier Notifier

	mu        sync.Mutex          // Protects everything below
	state     State               // Lifecycle state
	current   *queue.Entry        // Entry owned by the playback loop
	loop      bool                // Replay current on completion
	volume    float64             // Applied on every transition into Playing
	votes     map[string]struct{} // Requester IDs that voted to skip current
	abort     bool                // Current entry was skipped or stopped
	started   bool                // Playback loop was launched
	onStop    func(*Session)      // Registry removal
	interrupt chan struct{}       // Wakes the loop when current is aborted

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	done      chan struct{} // Closed when the playback loop exits
	closed    chan struct{} // Closed once shutdown has disconnected and deregistered
}

// New creates an idle session for key. Start launches its playback loop.
func New(key string, sink Sink, cfg Config, opts ...Option) *Session {
	defaults := DefaultConfig()
	if cfg.SkipVotes <= 0 {
		cfg.SkipVotes = defaults.SkipVotes
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}
	if !validVolume(cfg.Volume) {
		cfg.Volume = defaults.Volume
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		key:       key,
		cfg:       cfg,
		queue:     queue.New(),
		sink:      sink,
		state:     Idle,
		volume:    cfg.Volume,
		votes:     map[string]struct{}{},
		interrupt: make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		closed:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the playback loop. Calling it again does nothing.
func (s *Session) Start() {
	s.startOnce.Do(func() {
		s.mu.Lock()
		s.started = true
		s.mu.Unlock()
		go s.run()
	})
}

func (s *Session) fields() log.Fields {
	return log.Fields{"guild_id": s.key}
}

// run is the playback loop. It is the only goroutine that dequeues, writes current
// and calls Begin or Stop on the sink.
func (s *Session) run() {
	defer close(s.done)

	var replay *queue.Entry
	for {
		entry := replay
		if entry == nil {
			var err error
			entry, err = s.next()
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					log.WithFields(s.fields()).Info("No item queued in time, stopping session")
					_ = s.shutdown(ErrIdleTimeout)
				}
				return
			}
		}

		replay = s.play(entry)
		if s.ctx.Err() != nil {
			return
		}
	}
}

// next waits for the next entry. The idle timeout only applies when loop mode is off
// as the session goes idle.
func (s *Session) next() (*queue.Entry, error) {
	s.mu.Lock()
	loop := s.loop
	s.mu.Unlock()

	ctx := s.ctx
	if !loop && s.cfg.IdleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, s.cfg.IdleTimeout)
		defer cancel()
	}
	return s.queue.Dequeue(ctx)
}

// play renders one entry and returns it again if it should be replayed
func (s *Session) play(entry *queue.Entry) *queue.Entry {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return nil
	}
	if s.current != entry {
		clear(s.votes)
	}
	s.current = entry
	s.state = Playing
	s.abort = false
	select {
	case <-s.interrupt:
	default:
	}

	done, err := s.sink.Begin(entry.Item.StreamURL, Options{Volume: s.volume, Reconnect: true})
	if err != nil {
		s.idleLocked()
		s.mu.Unlock()
		s.failed(entry, err)
		return nil
	}
	s.mu.Unlock()

	log.WithFields(s.fields()).WithFields(log.Fields{
		"title":     entry.Item.Title,
		"requester": entry.RequestedBy.Name,
	}).Info("Now playing")
	if s.notifier != nil {
		s.notifier.NowPlaying(s, entry)
	}

	select {
	case err = <-done:
	case <-s.interrupt:
		s.stopSink()
	case <-s.ctx.Done():
		s.stopSink()
		return nil
	}

	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return nil
	}
	if err == nil && s.loop && !s.abort {
		s.mu.Unlock()
		return entry
	}
	s.idleLocked()
	s.mu.Unlock()

	if err != nil {
		s.failed(entry, err)
	}
	return nil
}

func (s *Session) idleLocked() {
	s.current = nil
	s.state = Idle
	s.abort = false
	clear(s.votes)
}

func (s *Session) stopSink() {
	if err := s.sink.Stop(); err != nil {
		log.WithFields(s.fields()).WithError(err).Error("Failed to stop sink")
	}
}

func (s *Session) failed(entry *queue.Entry, err error) {
	err = fmt.Errorf("%w: %v", ErrPlayback, err)
	log.WithFields(s.fields()).WithError(err).Error("Playback error for " + entry.Item.Title)
	if s.notifier != nil {
		s.notifier.PlaybackFailed(s, entry, err)
	}
}

// Enqueue queues a resolved item for playback
func (s *Session) Enqueue(item *media.Item) (*queue.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Stopped {
		return nil, ErrAlreadyStopped
	}
	entry := queue.NewEntry(item)
	s.queue.Enqueue(entry)
	return entry, nil
}

// Pause suspends the sink, keeping the current item
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Playing {
		return ErrNotPlaying
	}
	if err := s.sink.Pause(); err != nil {
		return err
	}
	s.state = Paused
	return nil
}

// Resume continues a paused item
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Paused {
		return ErrNotPaused
	}
	if err := s.sink.Resume(); err != nil {
		return err
	}
	s.state = Playing
	return nil
}

// Skip registers voter's request to skip the current item. The requester of the
// item skips it outright; anyone else casts one vote.
func (s *Session) Skip(voter media.Requester) (SkipResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := SkipResult{Required: s.cfg.SkipVotes}
	if s.current == nil || (s.state != Playing && s.state != Paused) {
		return result, ErrNotPlaying
	}

	if voter.ID == s.current.RequestedBy.ID {
		s.abortLocked()
		result.Skipped = true
		return result, nil
	}

	if _, voted := s.votes[voter.ID]; voted {
		result.Votes = len(s.votes)
		return result, ErrAlreadyVoted
	}

	s.votes[voter.ID] = struct{}{}
	result.Votes = len(s.votes)
	if result.Votes >= s.cfg.SkipVotes {
		s.abortLocked()
		result.Skipped = true
	}
	return result, nil
}

// abortLocked ends the current item without replaying it
func (s *Session) abortLocked() {
	clear(s.votes)
	s.abort = true
	select {
	case s.interrupt <- struct{}{}:
	default:
	}
}

// Stop clears the queue and ends the current item. The session stays alive.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Stopped {
		return ErrAlreadyStopped
	}
	s.queue.Clear()
	if s.state == Playing || s.state == Paused {
		s.abortLocked()
	}
	return nil
}

// Leave stops the playback loop, disconnects the sink and removes the session from
// its registry. Leaving twice returns ErrAlreadyStopped.
func (s *Session) Leave() error {
	return s.shutdown(nil)
}

// shutdown tears the session down. A nil reason means the caller is outside the
// playback loop and waits for it to exit.
func (s *Session) shutdown(reason error) error {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return ErrAlreadyStopped
	}
	s.state = Stopped
	s.current = nil
	clear(s.votes)
	started := s.started
	onStop := s.onStop
	s.mu.Unlock()

	s.cancel()
	if reason == nil && started {
		<-s.done
	}

	s.queue.Clear()
	if err := s.sink.Disconnect(); err != nil {
		log.WithFields(s.fields()).WithError(err).Error("Failed to disconnect sink")
	}
	if onStop != nil {
		onStop(s)
	}
	close(s.closed)

	log.WithFields(s.fields()).Info("Session stopped")
	if reason != nil && s.notifier != nil {
		s.notifier.Disconnected(s, reason)
	}
	return nil
}

func validVolume(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// SetVolume changes the volume, immediately if an item is active
func (s *Session) SetVolume(volume float64) error {
	if !validVolume(volume) {
		return ErrInvalidVolume
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Stopped {
		return ErrAlreadyStopped
	}
	s.volume = volume
	if s.state == Playing || s.state == Paused {
		s.sink.SetVolume(volume)
	}
	return nil
}

// SetLoop enables or disables replaying the current item
func (s *Session) SetLoop(loop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop = loop
}

// ToggleLoop flips loop mode and returns the new value
func (s *Session) ToggleLoop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop = !s.loop
	return s.loop
}

// Move re-parents the sink's connection to another voice channel
func (s *Session) Move(channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Stopped {
		return ErrAlreadyStopped
	}
	return s.sink.Move(channelID)
}

// Remove deletes the queued entry at a 0-based index
func (s *Session) Remove(index int) (*queue.Entry, error) {
	return s.queue.RemoveAt(index)
}

func (s *Session) Shuffle() {
	s.queue.Shuffle()
}

func (s *Session) Clear() {
	s.queue.Clear()
}

func (s *Session) Key() string {
	return s.key
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the entry being played or paused, or nil when idle
func (s *Session) Current() *queue.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) Loop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

func (s *Session) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Votes returns the number of distinct skip votes for the current item
func (s *Session) Votes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.votes)
}

func (s *Session) SkipVotesRequired() int {
	return s.cfg.SkipVotes
}

func (s *Session) Len() int {
	return s.queue.Len()
}

// QueuePage returns one 1-based page of queued entries and the number of pages
func (s *Session) QueuePage(page int) ([]*queue.Entry, int) {
	return s.queue.Page(page, s.cfg.PageSize)
}

// PageSize is the number of entries per queue page
func (s *Session) PageSize() int {
	return s.cfg.PageSize
}

// Done is closed once the playback loop has exited
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Closed is closed once the session has left its voice channel and its registry
func (s *Session) Closed() <-chan struct{} {
	return s.closed
}
