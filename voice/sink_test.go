package voice

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSink_Pause(t *testing.T) {
	sink := &Sink{}

	assert.False(t, sink.IsPaused())

	sink.Pause()

	assert.True(t, sink.IsPaused())
	assert.NotNil(t, sink.resume)
}

func TestSink_Resume(t *testing.T) {
	sink := &Sink{}

	sink.Pause()
	resume := sink.resume

	assert.True(t, sink.IsPaused())

	sink.Resume()

	assert.False(t, sink.IsPaused())
	assert.Nil(t, sink.resume)
	assert.True(t, isClosed(resume))
}

func TestSink_PauseTwice(t *testing.T) {
	sink := &Sink{}

	sink.Pause()
	firstResumeChannel := sink.resume

	sink.Pause()
	secondResumeChannel := sink.resume

	assert.Equal(t, firstResumeChannel, secondResumeChannel)
	assert.True(t, sink.IsPaused())
}

func TestSink_ResumeWithoutPause(t *testing.T) {
	sink := &Sink{}

	sink.Resume()

	assert.False(t, sink.IsPaused())
}

func TestSink_Stop(t *testing.T) {
	stop := make(chan struct{})
	sink := &Sink{stop: stop}
	sink.Pause()

	sink.Stop()

	assert.True(t, sink.stopped)
	assert.True(t, isClosed(stop))
	assert.False(t, sink.IsPaused())
}

func TestSink_StopTwice(t *testing.T) {
	sink := &Sink{stop: make(chan struct{})}

	sink.Stop()
	sink.Stop() // Should not panic or cause issues

	assert.True(t, sink.stopped)
}

func TestSink_StopBeforeBegin(t *testing.T) {
	sink := New(nil)

	assert.NoError(t, sink.Stop())
	assert.NoError(t, sink.Disconnect())
	assert.ErrorIs(t, sink.Move("channel"), ErrNotReady)
}

func TestSink_SetVolume(t *testing.T) {
	sink := New(nil)

	sink.SetVolume(0.25)

	assert.Equal(t, 0.25, sink.currentVolume())
}

func TestFFmpegArgs(t *testing.T) {
	args := ffmpegArgs("https://stream.test/a", true)

	assert.Equal(t, []string{"-reconnect", "1", "-reconnect_streamed", "1", "-reconnect_delay_max", "5"}, args[:6])
	assert.Contains(t, args, "https://stream.test/a")
	assert.Equal(t, "pipe:1", args[len(args)-1])

	args = ffmpegArgs("https://stream.test/a", false)
	assert.NotContains(t, args, "-reconnect")
	assert.Equal(t, "-i", args[0])
}

func TestApplyVolume(t *testing.T) {
	tests := []struct {
		volume   float64
		input    []int16
		expected []int16
	}{
		{1, []int16{100, -100}, []int16{100, -100}},
		{0.5, []int16{100, -100, 3}, []int16{50, -50, 2}},
		{0, []int16{math.MaxInt16, math.MinInt16}, []int16{0, 0}},
		{1.5, []int16{math.MaxInt16, math.MinInt16}, []int16{math.MaxInt16, math.MinInt16}},
	}

	for _, tt := range tests {
		samples := append([]int16{}, tt.input...)
		applyVolume(samples, tt.volume)
		assert.Equal(t, tt.expected, samples)
	}
}
