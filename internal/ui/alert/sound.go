package alert

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/speaker"

	"tomatoclock/internal/core/model"
)

// DefaultSampleRate is the speaker output rate.
const DefaultSampleRate = beep.SampleRate(44100)

// Tone is one segment of the completion alarm. Tones are played in order and
// must not overlap.
type Tone struct {
	Frequency float64
	// Start is the offset from the beginning of the alarm.
	Start    time.Duration
	Duration time.Duration
	Gain     float64
	Attack   time.Duration
	Release  time.Duration
}

// AlarmTones returns the completion alarm: three short beeps followed by a
// longer, softer tone.
func AlarmTones() []Tone {
	beepTone := func(frequency float64, index int) Tone {
		return Tone{
			Frequency: frequency,
			Start:     time.Duration(index) * 250 * time.Millisecond,
			Duration:  150 * time.Millisecond,
			Gain:      0.3,
			Attack:    20 * time.Millisecond,
			Release:   20 * time.Millisecond,
		}
	}
	return []Tone{
		beepTone(800, 0),
		beepTone(1000, 1),
		beepTone(800, 2),
		{
			Frequency: 600,
			Start:     800 * time.Millisecond,
			Duration:  500 * time.Millisecond,
			Gain:      0.2,
			Attack:    50 * time.Millisecond,
			Release:   100 * time.Millisecond,
		},
	}
}

// Player renders a tone sequence to an audio device.
type Player interface {
	Play(tones []Tone) error
}

// SpeakerPlayer plays tones through the default audio device. The device is
// opened on first use.
type SpeakerPlayer struct {
	sampleRate beep.SampleRate
	once       sync.Once
	initErr    error
}

// NewSpeakerPlayer creates a player at DefaultSampleRate.
func NewSpeakerPlayer() *SpeakerPlayer {
	return &SpeakerPlayer{sampleRate: DefaultSampleRate}
}

// Play queues tones on the speaker and returns without waiting for playback.
func (player *SpeakerPlayer) Play(tones []Tone) error {
	player.once.Do(func() {
		player.initErr = speaker.Init(player.sampleRate, player.sampleRate.N(50*time.Millisecond))
	})
	if player.initErr != nil {
		return fmt.Errorf("open audio device: %w", player.initErr)
	}
	streamer, err := toneSequence(player.sampleRate, tones)
	if err != nil {
		return err
	}
	speaker.Play(streamer)
	return nil
}

// Sound plays the alarm when a countdown finishes.
type Sound struct {
	player Player
	tones  []Tone
	logger *slog.Logger
}

// NewSound creates a sound alerter playing AlarmTones through player.
func NewSound(player Player, logger *slog.Logger) *Sound {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sound{player: player, tones: AlarmTones(), logger: logger}
}

// Completed plays the alarm. Playback failures are logged.
func (sound *Sound) Completed(completed, next model.Mode) {
	if err := sound.player.Play(sound.tones); err != nil {
		sound.logger.Warn("alert: alarm playback failed", "mode", completed, "err", err)
	}
}

// Completer is told about a finished countdown.
type Completer interface {
	Completed(completed, next model.Mode)
}

// Chain forwards completions to every alerter in order.
type Chain []Completer

// Completed calls each alerter.
func (chain Chain) Completed(completed, next model.Mode) {
	for _, alerter := range chain {
		if alerter != nil {
			alerter.Completed(completed, next)
		}
	}
}

func toneSequence(sampleRate beep.SampleRate, tones []Tone) (beep.Streamer, error) {
	var (
		parts  []beep.Streamer
		cursor time.Duration
	)
	for _, tone := range tones {
		if tone.Start < cursor {
			return nil, fmt.Errorf("tone at %v overlaps the previous tone", tone.Start)
		}
		if gap := tone.Start - cursor; gap > 0 {
			parts = append(parts, beep.Silence(sampleRate.N(gap)))
		}
		sine, err := generators.SineTone(sampleRate, tone.Frequency)
		if err != nil {
			return nil, fmt.Errorf("generate %.0f Hz tone: %w", tone.Frequency, err)
		}
		total := sampleRate.N(tone.Duration)
		parts = append(parts, &envelope{
			streamer: beep.Take(total, sine),
			total:    total,
			attack:   sampleRate.N(tone.Attack),
			release:  sampleRate.N(tone.Release),
			gain:     tone.Gain,
		})
		cursor = tone.Start + tone.Duration
	}
	return beep.Seq(parts...), nil
}

// envelope applies a linear attack and release around a constant gain.
type envelope struct {
	streamer beep.Streamer
	total    int
	attack   int
	release  int
	gain     float64
	position int
}

func (env *envelope) Stream(samples [][2]float64) (int, bool) {
	n, ok := env.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		level := env.level(env.position + i)
		samples[i][0] *= level
		samples[i][1] *= level
	}
	env.position += n
	return n, ok
}

func (env *envelope) Err() error {
	return env.streamer.Err()
}

func (env *envelope) level(position int) float64 {
	level := env.gain
	if env.attack > 0 && position < env.attack {
		level *= float64(position) / float64(env.attack)
	}
	if remaining := env.total - position; env.release > 0 && remaining < env.release {
		level *= float64(remaining) / float64(env.release)
	}
	return level
}
