package yt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"Nia/media"

	"github.com/Strum355/log"
	"github.com/kkdai/youtube/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Resolver resolves searches and YouTube links into playable items
type Resolver struct {
	client   *youtube.Client
	redis    *redis.Client // Optional metadata cache
	cacheTTL time.Duration
	limiter  *rate.Limiter // Throttles requests to YouTube
	search   func(ctx context.Context, query string) (string, error)
}

var _ media.Resolver = (*Resolver)(nil)

// NewResolver creates a resolver. rdb may be nil to disable caching.
func NewResolver(rdb *redis.Client, cacheTTL time.Duration, limiter *rate.Limiter) *Resolver {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &Resolver{
		client:   &youtube.Client{},
		redis:    rdb,
		cacheTTL: cacheTTL,
		limiter:  limiter,
		search:   searchFirstVideoID,
	}
}

// Resolve returns the first playable match for search
func (r *Resolver) Resolve(ctx context.Context, search string, requester media.Requester) (*media.Item, error) {
	videoID, err := r.videoID(ctx, search)
	if err != nil {
		return nil, err
	}

	item, err := r.item(ctx, videoID)
	if err != nil {
		return nil, err
	}

	resolved := *item
	resolved.RequestedBy = requester
	resolved.RequestedAt = time.Now().UTC()
	return &resolved, nil
}

// isYouTubeURL reports whether search points at a YouTube host rather than merely
// mentioning it
func isYouTubeURL(search string) bool {
	search = strings.ToLower(search)
	return strings.Contains(search, "youtube.com/") || strings.Contains(search, "youtu.be/")
}

func isVideoLink(search string) bool {
	return isYouTubeURL(search) || videoIDPattern.MatchString(search)
}

func isPlaylistLink(search string) bool {
	return isYouTubeURL(search) && strings.Contains(search, "list=") && !strings.Contains(search, "v=")
}

// videoID turns a link, a bare ID, a playlist link or free text into a video ID
func (r *Resolver) videoID(ctx context.Context, search string) (string, error) {
	search = strings.TrimSpace(search)
	if search == "" {
		return "", media.ErrNotFound
	}

	if isPlaylistLink(search) {
		ids, err := r.PlaylistVideoIDs(ctx, search)
		if err != nil {
			return "", err
		}
		return ids[0], nil
	}

	if isVideoLink(search) {
		videoID, err := youtube.ExtractVideoID(search)
		if err != nil {
			return "", fmt.Errorf("%w: %v", media.ErrNotFound, err)
		}
		return videoID, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.search(ctx, search)
}

// PlaylistVideoIDs returns the IDs of the videos of a playlist, in playlist order
func (r *Resolver) PlaylistVideoIDs(ctx context.Context, playlistURL string) ([]string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	playlist, err := r.client.GetPlaylistContext(ctx, playlistURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrResolutionFailed, err)
	}

	ids := make([]string, 0, len(playlist.Videos))
	for _, entry := range playlist.Videos {
		ids = append(ids, entry.ID)
	}
	if len(ids) == 0 {
		return nil, media.ErrNotFound
	}
	return ids, nil
}

// item fetches the metadata and stream URL of a video, through the cache if enabled
func (r *Resolver) item(ctx context.Context, videoID string) (*media.Item, error) {
	key := "ytmeta:" + videoID
	if r.redis != nil {
		cached, err := r.redis.Get(ctx, key).Result()
		if err == nil && cached != "" {
			var item media.Item
			if err := json.Unmarshal([]byte(cached), &item); err == nil {
				return &item, nil
			}
		} else if err != nil && !errors.Is(err, redis.Nil) {
			log.WithError(err).Error("Failed to read metadata cache")
		}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	video, err := r.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrResolutionFailed, err)
	}

	format := bestAudioFormat(video.Formats)
	if format == nil {
		return nil, media.ErrNotFound
	}

	streamURL, err := r.client.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrResolutionFailed, err)
	}

	item := itemFromVideo(video, streamURL)

	if r.redis != nil {
		data, err := json.Marshal(item)
		if err != nil {
			log.WithError(err).Error("Failed to encode metadata for cache")
		} else if err := r.redis.Set(ctx, key, data, r.cacheTTL).Err(); err != nil {
			log.WithError(err).Error("Failed to write metadata cache")
		}
	}
	return item, nil
}

// bestAudioFormat picks the highest bitrate audio-only format, falling back to any
// format that carries audio
func bestAudioFormat(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	withAudio := formats.WithAudioChannels()
	for i := range withAudio {
		f := &withAudio[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	if best == nil && len(withAudio) > 0 {
		best = &withAudio[0]
	}
	return best
}

func itemFromVideo(video *youtube.Video, streamURL string) *media.Item {
	thumbnail := ""
	if len(video.Thumbnails) > 0 {
		thumbnail = video.Thumbnails[len(video.Thumbnails)-1].URL
	}

	uploaderURL := ""
	if video.ChannelID != "" {
		uploaderURL = "https://www.youtube.com/channel/" + video.ChannelID
	}

	return &media.Item{
		Title:       video.Title,
		Uploader:    video.Author,
		UploaderURL: uploaderURL,
		Duration:    int(video.Duration.Seconds()),
		Thumbnail:   thumbnail,
		Description: video.Description,
		Views:       video.Views,
		URL:         "https://www.youtube.com/watch?v=" + video.ID,
		StreamURL:   streamURL,
	}
}

// searchFirstVideoID asks yt-dlp for the first search result
func searchFirstVideoID(ctx context.Context, query string) (string, error) {
	cmd := exec.CommandContext(ctx, "yt-dlp", "-j", "--flat-playlist", "ytsearch1:"+query)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%w: %s", media.ErrResolutionFailed, strings.TrimSpace(stderr.String()))
	}

	ids := parseFlatPlaylist(out)
	if len(ids) == 0 {
		return "", media.ErrNotFound
	}
	return ids[0], nil
}

// parseFlatPlaylist reads the video IDs from yt-dlp's line-delimited JSON output
func parseFlatPlaylist(out []byte) []string {
	lines := bytes.Split(out, []byte("\n"))
	videoIDs := []string{}
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		var entry struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(line, &entry); err != nil || entry.ID == "" {
			continue
		}
		videoIDs = append(videoIDs, entry.ID)
	}
	return videoIDs
}
