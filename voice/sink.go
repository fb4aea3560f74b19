package voice

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"Nia/session"

	"github.com/bwmarrin/discordgo"
	"layeh.com/gopus"
)

const (
	sampleRate       = 48000
	channels         = 2
	frameSize        = 960 // 20ms at 48kHz
	maxOpusFrameSize = 4000
	sendTimeout      = time.Second
)

var ErrNotReady = errors.New("voice connection never became ready")

// Sink renders stream URLs into a Discord voice connection through ffmpeg and opus
type Sink struct {
	vc      *discordgo.VoiceConnection // Discord voice connection owned by one session
	cmd     *exec.Cmd                  // ffmpeg process converting the stream to PCM
	volume  float64                    // Scale applied to every PCM sample
	resume  chan struct{}              // Non-nil while paused, closed on resume
	stop    chan struct{}              // Closed to end the current item
	stopped bool                       // True once stop has been closed
	mu      sync.Mutex                 // Protects everything above
}

var _ session.Sink = (*Sink)(nil)

func New(vc *discordgo.VoiceConnection) *Sink {
	return &Sink{vc: vc, volume: session.DefaultVolume}
}

// ffmpegArgs builds the ffmpeg command line decoding streamURL to 48kHz stereo PCM
func ffmpegArgs(streamURL string, reconnect bool) []string {
	var args []string
	if reconnect {
		args = append(args, "-reconnect", "1", "-reconnect_streamed", "1", "-reconnect_delay_max", "5")
	}
	return append(args,
		"-i", streamURL,
		"-vn",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-loglevel", "error",
		"pipe:1",
	)
}

// Begin starts ffmpeg for streamURL and streams it to the voice connection
func (s *Sink) Begin(streamURL string, opts session.Options) (<-chan error, error) {
	s.Stop()

	cmd := exec.Command("ffmpeg", ffmpegArgs(streamURL, opts.Reconnect)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}

	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, err
	}

	stop := make(chan struct{})

	s.mu.Lock()
	s.cmd = cmd
	s.volume = opts.Volume
	s.resume = nil
	s.stop = stop
	s.stopped = false
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.stream(cmd, stdout, encoder, stop)
	}()
	return done, nil
}

// stream encodes PCM frames from ffmpeg and sends them until EOF or stop
func (s *Sink) stream(cmd *exec.Cmd, pcm io.Reader, encoder *gopus.Encoder, stop chan struct{}) error {
	defer func() {
		cmd.Process.Kill()
		cmd.Wait()
	}()

	if err := waitReady(s.vc, stop); err != nil {
		return err
	}

	s.vc.Speaking(true)
	defer s.vc.Speaking(false)

	buf := make([]int16, frameSize*channels)
	for {
		if resume := s.pauseChannel(); resume != nil {
			select {
			case <-resume:
			case <-stop:
				return nil
			}
		}

		if err := binary.Read(pcm, binary.LittleEndian, buf); err != nil {
			if isClosed(stop) {
				return nil
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}

		applyVolume(buf, s.currentVolume())

		opus, err := encoder.Encode(buf, frameSize, maxOpusFrameSize)
		if err != nil {
			return err
		}
		if len(opus) == 0 {
			continue
		}

		select {
		case s.vc.OpusSend <- opus:
		case <-time.After(sendTimeout):
			return fmt.Errorf("timeout sending opus frame")
		case <-stop:
			return nil
		}
	}
}

func waitReady(vc *discordgo.VoiceConnection, stop chan struct{}) error {
	for i := 0; i < 20 && !vc.Ready; i++ {
		select {
		case <-time.After(250 * time.Millisecond):
		case <-stop:
			return nil
		}
	}
	if !vc.Ready {
		return ErrNotReady
	}
	return nil
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// applyVolume scales PCM samples in place, clipping at the int16 range
func applyVolume(samples []int16, volume float64) {
	if volume == 1 {
		return
	}
	for i, sample := range samples {
		v := math.Round(float64(sample) * volume)
		samples[i] = int16(max(math.MinInt16, min(math.MaxInt16, v)))
	}
}

func (s *Sink) pauseChannel() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resume
}

func (s *Sink) currentVolume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// IsPaused reports whether rendering is suspended
func (s *Sink) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resume != nil
}

// Pause suspends sending frames, keeping the ffmpeg process and its position
func (s *Sink) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resume == nil {
		s.resume = make(chan struct{})
	}
	return nil
}

// Resume continues a paused item
func (s *Sink) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resume != nil {
		close(s.resume)
		s.resume = nil
	}
	return nil
}

// Stop ends the current item and kills ffmpeg
func (s *Sink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.stop == nil {
		return nil
	}
	s.stopped = true
	close(s.stop)

	if s.resume != nil {
		close(s.resume)
		s.resume = nil
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd = nil
	return nil
}

func (s *Sink) SetVolume(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = volume
}

// Move switches the same voice connection to another channel of the guild
func (s *Sink) Move(channelID string) error {
	if s.vc == nil {
		return ErrNotReady
	}
	return s.vc.ChangeChannel(channelID, false, false)
}

// Disconnect stops playback and leaves the voice channel
func (s *Sink) Disconnect() error {
	s.Stop()
	if s.vc == nil {
		return nil
	}
	return s.vc.Disconnect()
}
