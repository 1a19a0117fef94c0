package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tomatoclock/internal/config"
	"tomatoclock/internal/core/pomodoro"
	"tomatoclock/internal/platform"
	"tomatoclock/internal/storage"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved timer state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := environmentFrom(cmd)
			if err != nil {
				return err
			}
			ctx := contextOf(cmd)

			store := storage.NewRedundant(
				storage.NewYAMLStore(env.settings.StorageDir),
				storage.NewSessionStore(env.settings.SessionDir),
			)
			snapshot, err := store.Load(ctx)
			if err != nil {
				env.logger.Warn("saved state unreadable", "err", err)
				snapshot = nil
			}

			state, outcome := projectSnapshot(env.settings, snapshot)
			printStatus(cmd.OutOrStdout(), state, outcome, platform.InstanceRunning(config.AppName))
			return nil
		},
	}
}

// projectSnapshot restores snapshot into a throwaway engine to apply elapsed
// time and staleness the same way a starting timer would.
func projectSnapshot(settings config.Settings, snapshot *pomodoro.Snapshot) (pomodoro.TimerState, pomodoro.RestoreOutcome) {
	engine := pomodoro.New(settings.Engine, pomodoro.SystemClock{})
	defer engine.Close()
	outcome, _ := engine.Restore(snapshot)
	return engine.State(), outcome
}

func printStatus(w io.Writer, state pomodoro.TimerState, outcome pomodoro.RestoreOutcome, instanceRunning bool) {
	label := color.New(color.FgHiBlack)
	accent := color.New(color.FgRed, color.Bold)
	if state.Mode.IsBreak() {
		accent = color.New(color.FgCyan, color.Bold)
	}

	label.Fprint(w, "Mode:       ")
	accent.Fprintln(w, state.Mode.Label())
	label.Fprint(w, "Remaining:  ")
	fmt.Fprintf(w, "%s of %s\n", state.Clock(), pomodoro.FormatClock(state.TotalSeconds))
	label.Fprint(w, "Running:    ")
	if state.Running {
		color.New(color.FgGreen).Fprintln(w, "yes")
	} else {
		color.New(color.FgYellow).Fprintln(w, "no")
	}
	label.Fprint(w, "Sessions:   ")
	fmt.Fprintf(w, "%d work sessions completed\n", state.CompletedWorkSessions)
	label.Fprint(w, "Durations:  ")
	fmt.Fprintf(w, "work %dm, short break %dm, long break %dm\n",
		state.Durations.Work, state.Durations.ShortBreak, state.Durations.LongBreak)
	label.Fprint(w, "Auto-start: ")
	fmt.Fprintln(w, onOff(state.AutoAdvance))

	switch outcome {
	case pomodoro.RestoreFresh:
		label.Fprintln(w, "No saved state; showing defaults.")
	case pomodoro.RestoreMalformed:
		color.New(color.FgYellow).Fprintln(w, "Saved state is corrupt; showing defaults.")
	case pomodoro.RestoreStale:
		label.Fprintln(w, "Saved countdown expired; showing a fresh session.")
	}
	if instanceRunning {
		label.Fprintln(w, "A TomatoClock instance is running.")
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
