package history

import (
	"context"
	"sync"
	"time"

	"Nia/queue"
	"Nia/session"

	"github.com/Strum355/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Play is one item a guild started playing
type Play struct {
	ID            uint      `gorm:"primaryKey"`
	GuildID       string    `gorm:"index;not null"`
	Title         string    `gorm:"not null"`
	URL           string
	RequesterID   string
	RequesterName string
	PlayedAt      time.Time `gorm:"index"`
}

func newPlay(guildID string, e *queue.Entry, at time.Time) *Play {
	return &Play{
		GuildID:       guildID,
		Title:         e.Item.Title,
		URL:           e.Item.URL,
		RequesterID:   e.RequestedBy.ID,
		RequesterName: e.RequestedBy.Name,
		PlayedAt:      at.UTC(),
	}
}

type Store struct {
	db *gorm.DB
}

// NewStore migrates the plays table and returns a store backed by db
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Play{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Record(ctx context.Context, guildID string, e *queue.Entry) error {
	return s.db.WithContext(ctx).Create(newPlay(guildID, e, time.Now())).Error
}

// Recent returns the latest plays of a guild, newest first
func (s *Store) Recent(ctx context.Context, guildID string, limit int) ([]Play, error) {
	var plays []Play
	err := s.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("played_at desc").
		Limit(limit).
		Find(&plays).Error
	return plays, err
}

type recorder interface {
	Record(ctx context.Context, guildID string, e *queue.Entry) error
}

// Notifier records every item a session starts playing. Loop replays of the same
// entry are recorded once.
type Notifier struct {
	recorder recorder
	timeout  time.Duration

	mu   sync.Mutex
	last map[string]uuid.UUID // Session key to the last recorded entry
}

var _ session.Notifier = (*Notifier)(nil)

func NewNotifier(r recorder) *Notifier {
	return &Notifier{
		recorder: r,
		timeout:  5 * time.Second,
		last:     make(map[string]uuid.UUID),
	}
}

// replay reports whether e is already the last entry recorded for key, marking it otherwise
func (n *Notifier) replay(key string, e *queue.Entry) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if last, ok := n.last[key]; ok && last == e.ID {
		return true
	}
	n.last[key] = e.ID
	return false
}

func (n *Notifier) NowPlaying(s *session.Session, e *queue.Entry) {
	if n.replay(s.Key(), e) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if err := n.recorder.Record(ctx, s.Key(), e); err != nil {
		log.WithFields(log.Fields{"guild_id": s.Key()}).WithError(err).Error("Failed to record play history")
	}
}

func (n *Notifier) PlaybackFailed(*session.Session, *queue.Entry, error) {}

func (n *Notifier) Disconnected(s *session.Session, _ error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.last, s.Key())
}
