// Package alert tells the user that a countdown finished: a desktop
// notification plus a short window title flash.
package alert

import (
	"context"
	"sync"
	"time"

	"fyne.io/fyne/v2"

	"tomatoclock/internal/core/model"
)

// DefaultFlashDuration is how long the title shows the alert text.
const DefaultFlashDuration = 5 * time.Second

// Notifier sends desktop notifications. fyne.App satisfies it.
type Notifier interface {
	SendNotification(notification *fyne.Notification)
}

// TitleFlasher temporarily replaces a window title.
type TitleFlasher interface {
	FlashTitle(text string)
	RestoreTitle()
}

// Config controls which alerts are shown.
type Config struct {
	Notifications bool
	FlashDuration time.Duration
}

// Alerter reacts to finished countdowns.
type Alerter struct {
	mu       sync.Mutex
	notifier Notifier
	title    TitleFlasher
	config   Config
	cancel   context.CancelFunc
}

// New creates an alerter. notifier and title may be nil.
func New(notifier Notifier, title TitleFlasher, config Config) *Alerter {
	if config.FlashDuration <= 0 {
		config.FlashDuration = DefaultFlashDuration
	}
	return &Alerter{notifier: notifier, title: title, config: config}
}

// Completed shows the alerts for a finished countdown of mode completed.
func (alerter *Alerter) Completed(completed, next model.Mode) {
	if alerter.notifier != nil && alerter.config.Notifications {
		alerter.notifier.SendNotification(fyne.NewNotification("TomatoClock", Message(completed)))
	}
	if alerter.title != nil {
		alerter.flash(TitleText(completed))
	}
}

// Stop cancels a running title flash and restores the title.
func (alerter *Alerter) Stop() {
	alerter.mu.Lock()
	cancel := alerter.cancel
	alerter.cancel = nil
	alerter.mu.Unlock()
	if cancel != nil {
		cancel()
		alerter.title.RestoreTitle()
	}
}

// flash shows text until FlashDuration passes or a newer flash replaces it.
func (alerter *Alerter) flash(text string) {
	alerter.mu.Lock()
	if alerter.cancel != nil {
		alerter.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	alerter.cancel = cancel
	alerter.mu.Unlock()

	alerter.title.FlashTitle(text)
	go func() {
		if !sleepWithContext(ctx, alerter.config.FlashDuration) {
			return
		}
		alerter.mu.Lock()
		current := ctx.Err() == nil
		if current {
			alerter.cancel = nil
		}
		alerter.mu.Unlock()
		if current {
			alerter.title.RestoreTitle()
		}
		cancel()
	}()
}

// Message is the notification body for a finished countdown.
func Message(completed model.Mode) string {
	switch completed {
	case model.ModeWork:
		return "Work session finished! Time for a break."
	case model.ModeShortBreak:
		return "Short break over! Back to work."
	case model.ModeLongBreak:
		return "Long break over! Ready for a new round."
	default:
		return "Timer finished."
	}
}

// TitleText is the flashed window title for a finished countdown.
func TitleText(completed model.Mode) string {
	if completed == model.ModeWork {
		return "Break time!"
	}
	return "Work time!"
}

func sleepWithContext(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
