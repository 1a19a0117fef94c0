// Package timer implements the main countdown window.
package timer

import (
	"fmt"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"tomatoclock/internal/core/model"
	"tomatoclock/internal/core/pomodoro"
)

// AppTitle is the resting window title suffix.
const AppTitle = "TomatoClock"

// Callbacks defines window action handlers.
type Callbacks struct {
	OnToggle      func()
	OnReset       func()
	OnSwitchMode  func(model.Mode)
	OnAutoAdvance func(bool)
}

var (
	workColor  = color.NRGBA{R: 229, G: 83, B: 61, A: 255}
	breakColor = color.NRGBA{R: 74, G: 144, B: 217, A: 255}
)

// Window shows the countdown and its controls.
type Window struct {
	window      fyne.Window
	callbacks   Callbacks
	clockLabel  *canvas.Text
	modeLabel   *canvas.Text
	progress    *widget.ProgressBar
	sessions    *widget.Label
	toggle      *widget.Button
	reset       *widget.Button
	modeButtons map[model.Mode]*widget.Button
	autoAdvance *widget.Check

	mu            sync.Mutex
	state         pomodoro.TimerState
	titleOverride string
	syncing       bool
}

// New creates the timer window. It starts hidden.
func New(app fyne.App, callbacks Callbacks) *Window {
	window := app.NewWindow(AppTitle)
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}

	clockLabel := canvas.NewText("00:00", workColor)
	clockLabel.Alignment = fyne.TextAlignCenter
	clockLabel.TextStyle = fyne.TextStyle{Monospace: true}
	clockLabel.TextSize = 64

	modeLabel := canvas.NewText(model.ModeWork.Label(), workColor)
	modeLabel.Alignment = fyne.TextAlignCenter
	modeLabel.TextSize = 18

	timerWindow := &Window{
		window:      window,
		callbacks:   callbacks,
		clockLabel:  clockLabel,
		modeLabel:   modeLabel,
		progress:    widget.NewProgressBar(),
		sessions:    widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{}),
		modeButtons: make(map[model.Mode]*widget.Button, len(model.Modes)),
	}
	timerWindow.progress.TextFormatter = func() string { return "" }

	modeRow := container.NewGridWithColumns(len(model.Modes))
	for _, mode := range model.Modes {
		mode := mode
		button := widget.NewButton(mode.Label(), func() {
			if timerWindow.callbacks.OnSwitchMode != nil {
				timerWindow.callbacks.OnSwitchMode(mode)
			}
		})
		timerWindow.modeButtons[mode] = button
		modeRow.Add(button)
	}

	timerWindow.toggle = widget.NewButton("Start", func() {
		if timerWindow.callbacks.OnToggle != nil {
			timerWindow.callbacks.OnToggle()
		}
	})
	timerWindow.toggle.Importance = widget.HighImportance
	timerWindow.reset = widget.NewButton("Reset", func() {
		if timerWindow.callbacks.OnReset != nil {
			timerWindow.callbacks.OnReset()
		}
	})
	timerWindow.autoAdvance = widget.NewCheck("Auto-start next session", func(checked bool) {
		if timerWindow.isSyncing() {
			return
		}
		if timerWindow.callbacks.OnAutoAdvance != nil {
			timerWindow.callbacks.OnAutoAdvance(checked)
		}
	})

	content := container.New(&stackLayout{gap: 8},
		modeRow,
		modeLabel,
		clockLabel,
		timerWindow.progress,
		container.NewGridWithColumns(2, timerWindow.toggle, timerWindow.reset),
		timerWindow.autoAdvance,
		timerWindow.sessions,
	)
	window.SetContent(container.NewPadded(content))
	window.Resize(fyne.NewSize(380, 360))
	window.SetCloseIntercept(func() {
		window.Hide()
	})

	return timerWindow
}

// Show displays the window.
func (timerWindow *Window) Show() {
	timerWindow.window.Show()
	timerWindow.window.RequestFocus()
}

// Window exposes the underlying fyne window.
func (timerWindow *Window) Window() fyne.Window {
	return timerWindow.window
}

// Update renders state. Safe to call from any goroutine.
func (timerWindow *Window) Update(state pomodoro.TimerState) {
	fyne.Do(func() {
		timerWindow.applyState(state)
	})
}

// FlashTitle replaces the window title until RestoreTitle.
func (timerWindow *Window) FlashTitle(text string) {
	timerWindow.mu.Lock()
	timerWindow.titleOverride = text
	timerWindow.mu.Unlock()
	fyne.Do(func() {
		timerWindow.window.SetTitle(text)
	})
}

// RestoreTitle returns to the countdown title.
func (timerWindow *Window) RestoreTitle() {
	timerWindow.mu.Lock()
	timerWindow.titleOverride = ""
	state := timerWindow.state
	timerWindow.mu.Unlock()
	fyne.Do(func() {
		timerWindow.window.SetTitle(Title(state))
	})
}

func (timerWindow *Window) applyState(state pomodoro.TimerState) {
	timerWindow.mu.Lock()
	timerWindow.state = state
	override := timerWindow.titleOverride
	timerWindow.mu.Unlock()

	accent := workColor
	if state.Mode.IsBreak() {
		accent = breakColor
	}

	timerWindow.clockLabel.Text = state.Clock()
	timerWindow.clockLabel.Color = accent
	timerWindow.clockLabel.Refresh()
	timerWindow.modeLabel.Text = state.Mode.Label()
	timerWindow.modeLabel.Color = accent
	timerWindow.modeLabel.Refresh()
	timerWindow.progress.SetValue(state.Progress())
	timerWindow.sessions.SetText(SessionsText(state.CompletedWorkSessions))
	timerWindow.toggle.SetText(ToggleLabel(state))

	for mode, button := range timerWindow.modeButtons {
		if mode == state.Mode {
			button.Importance = widget.MediumImportance
		} else {
			button.Importance = widget.LowImportance
		}
		if state.Running {
			button.Disable()
		} else {
			button.Enable()
		}
		button.Refresh()
	}

	timerWindow.setSyncing(true)
	timerWindow.autoAdvance.SetChecked(state.AutoAdvance)
	timerWindow.setSyncing(false)

	if override == "" {
		timerWindow.window.SetTitle(Title(state))
	}
}

func (timerWindow *Window) isSyncing() bool {
	timerWindow.mu.Lock()
	defer timerWindow.mu.Unlock()
	return timerWindow.syncing
}

func (timerWindow *Window) setSyncing(syncing bool) {
	timerWindow.mu.Lock()
	timerWindow.syncing = syncing
	timerWindow.mu.Unlock()
}

// Title is the resting window title for state.
func Title(state pomodoro.TimerState) string {
	return fmt.Sprintf("%s %s - %s", state.Clock(), state.Mode.Label(), AppTitle)
}

// ToggleLabel names the start/pause action available in state.
func ToggleLabel(state pomodoro.TimerState) string {
	if state.Running {
		return "Pause"
	}
	if state.RemainingSeconds < state.TotalSeconds && state.RemainingSeconds > 0 {
		return "Resume"
	}
	return "Start"
}

// SessionsText describes the completed work-session count.
func SessionsText(completed int) string {
	if completed == 1 {
		return "1 work session completed"
	}
	return fmt.Sprintf("%d work sessions completed", completed)
}

// stackLayout places objects top to bottom at their minimum height and full width.
type stackLayout struct {
	gap float32
}

func (layout *stackLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	y := float32(0)
	for _, object := range objects {
		if !object.Visible() {
			continue
		}
		height := object.MinSize().Height
		object.Move(fyne.NewPos(0, y))
		object.Resize(fyne.NewSize(size.Width, height))
		y += height + layout.gap
	}
}

func (layout *stackLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	width := float32(0)
	height := float32(0)
	visible := 0
	for _, object := range objects {
		if !object.Visible() {
			continue
		}
		minSize := object.MinSize()
		if minSize.Width > width {
			width = minSize.Width
		}
		height += minSize.Height
		visible++
	}
	if visible > 1 {
		height += layout.gap * float32(visible-1)
	}
	return fyne.NewSize(width, height)
}
