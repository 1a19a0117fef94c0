package main

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"

	"tomatoclock/internal/config"
	"tomatoclock/internal/core/model"
	"tomatoclock/internal/core/pomodoro"
	"tomatoclock/internal/ui/alert"
	"tomatoclock/internal/ui/preferences"
	"tomatoclock/internal/ui/timer"
	"tomatoclock/internal/ui/tray"
	"tomatoclock/resources"
)

const appID = "com.tomatoclock.app"

func runDesktop(ctx context.Context, env *environment, settings config.Settings, svc *services) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := svc.logger
	engine := svc.engine

	fyneApp := app.NewWithID(appID)
	fyneApp.SetIcon(resources.MustIcon(resources.IconWork))

	switchMode := func(mode model.Mode) {
		if err := engine.SwitchMode(mode); err != nil {
			logger.Warn("switch mode rejected", "mode", mode, "err", err)
		}
	}

	var alerter *alert.Alerter
	startOrPause := func() {
		alerter.Stop()
		toggle(engine)
	}

	timerWindow := timer.New(fyneApp, timer.Callbacks{
		OnToggle:      startOrPause,
		OnReset:       engine.Reset,
		OnSwitchMode:  switchMode,
		OnAutoAdvance: engine.SetAutoAdvance,
	})

	prefsWindow := preferences.New(fyneApp, preferencesOf(engine.State()), func(updated model.Preferences) {
		if !svc.host.ApplyPreferences(updated) {
			fyneApp.SendNotification(fyne.NewNotification("TomatoClock", "New session lengths apply once the timer stops."))
		}
	})

	alerter = alert.New(fyneApp, timerWindow, alert.Config{Notifications: settings.Notifications})

	var trayManager *tray.Manager
	if desktopApp, ok := fyneApp.(desktop.App); ok {
		trayManager = tray.New(desktopApp, tray.Icons{
			Work:  resources.MustIcon(resources.IconWork),
			Break: resources.MustIcon(resources.IconBreak),
		}, tray.Callbacks{
			OnToggle:      startOrPause,
			OnReset:       engine.Reset,
			OnSwitchMode:  switchMode,
			OnAutoAdvance: engine.SetAutoAdvance,
			OnShowTimer:   timerWindow.Show,
			OnPreferences: func() {
				prefsWindow.UpdatePreferences(preferencesOf(engine.State()))
				prefsWindow.Show()
			},
			OnQuit: fyneApp.Quit,
		})
	} else {
		logger.Info("system tray unsupported on this platform")
		timerWindow.Window().SetCloseIntercept(fyneApp.Quit)
	}

	updates := svc.bus.Subscribe("desktop")
	completions := alert.Chain{alerter}
	if settings.Sound {
		completions = append(completions, alert.NewSound(alert.NewSpeakerPlayer(), logger))
	}

	wait := svc.start(ctx, env, settings, completions, func(applied bool) {
		if applied {
			fyne.Do(func() {
				prefsWindow.UpdatePreferences(preferencesOf(engine.State()))
			})
		}
	})

	render := func(state pomodoro.TimerState) {
		timerWindow.Update(state)
		if trayManager != nil {
			trayManager.Update(state)
		}
	}
	render(engine.State())
	go func() {
		for event := range updates {
			if event.Type == pomodoro.EventStateChanged {
				render(event.State)
			}
		}
	}()
	go func() {
		<-ctx.Done()
		fyne.Do(fyneApp.Quit)
	}()

	timerWindow.Show()
	fyneApp.Run()

	cancel()
	wait()
	return nil
}

func toggle(engine *pomodoro.Engine) {
	if engine.State().Running {
		engine.Pause()
		return
	}
	engine.Start()
}

func preferencesOf(state pomodoro.TimerState) model.Preferences {
	return model.Preferences{Durations: state.Durations, AutoAdvance: state.AutoAdvance}
}
