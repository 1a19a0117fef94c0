package preferences

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"tomatoclock/internal/core/model"
)

// Window handles the preferences UI.
type Window struct {
	window      fyne.Window
	preferences model.Preferences
	onSave      func(model.Preferences)
	work        *widget.Entry
	shortBreak  *widget.Entry
	longBreak   *widget.Entry
	autoAdvance *widget.Check
	notice      *widget.Label
}

// New creates a preferences window.
func New(app fyne.App, preferences model.Preferences, onSave func(model.Preferences)) *Window {
	window := app.NewWindow("TomatoClock Settings")

	prefs := &Window{
		window:      window,
		onSave:      onSave,
		work:        widget.NewEntry(),
		shortBreak:  widget.NewEntry(),
		longBreak:   widget.NewEntry(),
		autoAdvance: widget.NewCheck("Start the next session automatically", nil),
		notice:      widget.NewLabel(""),
	}
	prefs.notice.Wrapping = fyne.TextWrapWord
	prefs.notice.Hide()
	prefs.UpdatePreferences(preferences)

	form := container.NewVBox(
		widget.NewLabelWithStyle("Durations", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Work"), prefs.work, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Short break"), prefs.shortBreak, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Long break"), prefs.longBreak, widget.NewLabel("min")),
		prefs.autoAdvance,
		prefs.notice,
	)

	saveButton := widget.NewButton("Save", prefs.handleSave)
	cancelButton := widget.NewButton("Cancel", func() {
		window.Hide()
	})
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, form))
	window.Resize(fyne.NewSize(360, 280))
	window.SetCloseIntercept(func() {
		window.Hide()
	})

	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdatePreferences replaces window values.
func (prefs *Window) UpdatePreferences(preferences model.Preferences) {
	prefs.preferences = preferences
	form := FormFrom(preferences)
	prefs.work.SetText(form.Work)
	prefs.shortBreak.SetText(form.ShortBreak)
	prefs.longBreak.SetText(form.LongBreak)
	prefs.autoAdvance.SetChecked(form.AutoAdvance)
}

// SetNotice shows text under the form, or hides it when empty.
func (prefs *Window) SetNotice(text string) {
	prefs.notice.SetText(text)
	if text == "" {
		prefs.notice.Hide()
		return
	}
	prefs.notice.Show()
}

func (prefs *Window) form() Form {
	return Form{
		Work:        prefs.work.Text,
		ShortBreak:  prefs.shortBreak.Text,
		LongBreak:   prefs.longBreak.Text,
		AutoAdvance: prefs.autoAdvance.Checked,
	}
}

func (prefs *Window) handleSave() {
	preferences := prefs.form().Apply(prefs.preferences)
	prefs.UpdatePreferences(preferences)
	if prefs.onSave != nil {
		prefs.onSave(preferences)
	}
	prefs.window.Hide()
}
