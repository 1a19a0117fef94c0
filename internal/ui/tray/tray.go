// Package tray manages the system tray menu and icon.
package tray

import (
	"fmt"

	"fyne.io/fyne/v2"

	"tomatoclock/internal/core/model"
	"tomatoclock/internal/core/pomodoro"
)

// TrayApp is the subset of desktop.App used by the tray.
type TrayApp interface {
	SetSystemTrayMenu(menu *fyne.Menu)
	SetSystemTrayIcon(icon fyne.Resource)
}

// Icons holds the tray icons per phase.
type Icons struct {
	Work  fyne.Resource
	Break fyne.Resource
}

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnToggle      func()
	OnReset       func()
	OnSwitchMode  func(model.Mode)
	OnAutoAdvance func(bool)
	OnShowTimer   func()
	OnPreferences func()
	OnQuit        func()
}

// Manager handles system tray state.
type Manager struct {
	app         TrayApp
	icons       Icons
	callbacks   Callbacks
	statusItem  *fyne.MenuItem
	toggleItem  *fyne.MenuItem
	resetItem   *fyne.MenuItem
	modeItem    *fyne.MenuItem
	modeItems   map[model.Mode]*fyne.MenuItem
	autoItem    *fyne.MenuItem
	showItem    *fyne.MenuItem
	prefsItem   *fyne.MenuItem
	quitItem    *fyne.MenuItem
	currentIcon fyne.Resource
}

// New creates a tray manager with the provided callbacks.
func New(app TrayApp, icons Icons, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:       app,
		icons:     icons,
		callbacks: callbacks,
		modeItems: make(map[model.Mode]*fyne.MenuItem, len(model.Modes)),
	}

	manager.statusItem = fyne.NewMenuItem("Status: starting...", nil)
	manager.statusItem.Disabled = true

	manager.toggleItem = fyne.NewMenuItem("Start", func() {
		if manager.callbacks.OnToggle != nil {
			manager.callbacks.OnToggle()
		}
	})
	manager.resetItem = fyne.NewMenuItem("Reset", func() {
		if manager.callbacks.OnReset != nil {
			manager.callbacks.OnReset()
		}
	})

	children := make([]*fyne.MenuItem, 0, len(model.Modes))
	for _, mode := range model.Modes {
		mode := mode
		item := fyne.NewMenuItem(mode.Label(), func() {
			if manager.callbacks.OnSwitchMode != nil {
				manager.callbacks.OnSwitchMode(mode)
			}
		})
		manager.modeItems[mode] = item
		children = append(children, item)
	}
	manager.modeItem = fyne.NewMenuItem("Mode", nil)
	manager.modeItem.ChildMenu = fyne.NewMenu("", children...)

	manager.autoItem = fyne.NewMenuItem("Auto-start next session", nil)
	manager.autoItem.Action = func() {
		if manager.callbacks.OnAutoAdvance != nil {
			manager.callbacks.OnAutoAdvance(!manager.autoItem.Checked)
		}
	}

	manager.showItem = fyne.NewMenuItem("Show timer", func() {
		if manager.callbacks.OnShowTimer != nil {
			manager.callbacks.OnShowTimer()
		}
	})
	manager.prefsItem = fyne.NewMenuItem("Preferences", func() {
		if manager.callbacks.OnPreferences != nil {
			manager.callbacks.OnPreferences()
		}
	})
	manager.quitItem = fyne.NewMenuItem("Quit", func() {
		if manager.callbacks.OnQuit != nil {
			manager.callbacks.OnQuit()
		}
	})
	manager.quitItem.IsQuit = true

	manager.setIcon(icons.Work)
	manager.refreshMenu()
	return manager
}

// Update renders state into the menu and icon. Safe to call from any goroutine.
func (manager *Manager) Update(state pomodoro.TimerState) {
	fyne.Do(func() {
		manager.apply(state)
	})
}

func (manager *Manager) apply(state pomodoro.TimerState) {
	manager.statusItem.Label = StatusText(state)
	if state.Running {
		manager.toggleItem.Label = "Pause"
	} else {
		manager.toggleItem.Label = "Start"
	}
	manager.modeItem.Disabled = state.Running
	for mode, item := range manager.modeItems {
		item.Checked = mode == state.Mode
		item.Disabled = state.Running
	}
	manager.autoItem.Checked = state.AutoAdvance

	if state.Mode.IsBreak() {
		manager.setIcon(manager.icons.Break)
	} else {
		manager.setIcon(manager.icons.Work)
	}
	manager.refreshMenu()
}

func (manager *Manager) setIcon(icon fyne.Resource) {
	if icon == nil || icon == manager.currentIcon {
		return
	}
	manager.currentIcon = icon
	if manager.app != nil {
		manager.app.SetSystemTrayIcon(icon)
	}
}

func (manager *Manager) menu() *fyne.Menu {
	return fyne.NewMenu("TomatoClock",
		manager.statusItem,
		fyne.NewMenuItemSeparator(),
		manager.toggleItem,
		manager.resetItem,
		manager.modeItem,
		manager.autoItem,
		fyne.NewMenuItemSeparator(),
		manager.showItem,
		manager.prefsItem,
		manager.quitItem,
	)
}

func (manager *Manager) refreshMenu() {
	if manager.app != nil {
		manager.app.SetSystemTrayMenu(manager.menu())
	}
}

// StatusText summarises state for the tray status line.
func StatusText(state pomodoro.TimerState) string {
	status := fmt.Sprintf("%s %s", state.Mode.Label(), state.Clock())
	if !state.Running && state.RemainingSeconds < state.TotalSeconds {
		status = fmt.Sprintf("%s (paused)", status)
	}
	return fmt.Sprintf("Status: %s", status)
}
