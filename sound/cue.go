package sound

import (
	"math"

	"voxclip/audio"
)

const cueSampleRate = 44100

const (
	// Start cue: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// Stop cue: medium pitch, slightly longer
	stopFreq   = 900
	stopVolume = 0.5
	stopDecay  = 40

	// Error cue: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

var cueFormat = audio.Format{SampleRate: cueSampleRate, Channels: 1}

// Cues are the short tones played when recording starts, stops or fails.
type Cues struct {
	bank    *Bank
	enabled bool

	start, stop, fail Handle
}

func NewCues(bank *Bank, enabled bool) *Cues {
	c := &Cues{bank: bank, enabled: enabled}
	if !enabled {
		return c
	}
	// the 200ms tails keep short ticks from being swallowed by the first
	// server buffer
	c.start = bank.Add(tick(startFreq, 0.2, startVolume, startDecay), cueFormat)
	c.stop = bank.Add(tick(stopFreq, 0.2, stopVolume, stopDecay), cueFormat)
	c.fail = bank.Add(doubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay), cueFormat)
	return c
}

func (c *Cues) Start() error { return c.play(c.start) }
func (c *Cues) Stop() error  { return c.play(c.stop) }
func (c *Cues) Error() error { return c.play(c.fail) }

func (c *Cues) play(h Handle) error {
	if !c.enabled {
		return nil
	}
	return c.bank.Replay(h)
}

func tick(freq, duration, volume, decay float64) []byte {
	n := int(cueSampleRate * duration)
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / cueSampleRate
		envelope := math.Exp(-t * decay)
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []byte {
	beep := tick(freq, beepDur, volume, decay)
	gap := make([]byte, int(cueSampleRate*gapDur)*2)
	out := make([]byte, 0, len(beep)*2+len(gap))
	out = append(out, beep...)
	out = append(out, gap...)
	out = append(out, beep...)
	return out
}
