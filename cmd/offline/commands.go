package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/alem-hub/offline-quest/internal/domain/progression"
	"github.com/alem-hub/offline-quest/internal/domain/shared"
	"github.com/alem-hub/offline-quest/internal/infrastructure/messaging"
	"github.com/alem-hub/offline-quest/pkg/logger"
)

// withApp собирает приложение на время одной команды.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// ══════════════════════════════════════════════════════════════════════════════
// RUN
// ══════════════════════════════════════════════════════════════════════════════

func runSession(cmd *cobra.Command, _ []string) error {
	goalID, _ := cmd.Flags().GetString("goal")
	limit, _ := cmd.Flags().GetDuration("duration")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		out := cmd.OutOrStdout()

		if rr, err := a.engine.CheckStreakRollover(ctx); err != nil {
			a.log.Warn("streak rollover failed", logger.Err(err))
		} else if rr.Broken {
			fmt.Fprintf(out, "Your %d-day streak ended. Today starts a new one.\n", rr.Previous)
		}

		ticks, err := messaging.NewChannelSubscriber(a.bus, 4, shared.EventSessionTick)
		if err != nil {
			return err
		}
		defer ticks.Close()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, sessionSignals...)
		defer signal.Stop(sigs)

		snap, err := a.engine.StartSession(goalID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Session started at %s. Put the phone away; Ctrl+C ends the session.\n",
			snap.StartTime.Format("15:04"))

		var deadline <-chan time.Time
		if limit > 0 {
			timer := time.NewTimer(limit)
			defer timer.Stop()
			deadline = timer.C
		}

	wait:
		for {
			select {
			case ev := <-ticks.Events():
				if t, ok := ev.(shared.SessionTickEvent); ok {
					fmt.Fprintf(out, "\r⏱  %s", formatElapsed(time.Duration(t.ElapsedMs)*time.Millisecond))
				}
			case sig := <-sigs:
				if handleSignal(a.engine, sig) {
					break wait
				}
			case <-deadline:
				break wait
			case <-ctx.Done():
				break wait
			}
		}
		fmt.Fprintln(out)

		// The session must be recorded even when the command context is gone.
		saveCtx := context.WithoutCancel(ctx)

		res, err := a.engine.EndSession(saveCtx)
		if err != nil {
			if !errors.Is(err, shared.ErrPersistenceFailure) {
				return err
			}
			a.log.Warn("progress not saved, retrying", logger.Err(err))
			if err := a.engine.RetryPersist(saveCtx); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: progress could not be saved: %v\n", err)
			} else {
				res.Completion.Persisted = true
			}
		}

		return render(out, outputFormat, newSessionView(res))
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

func showProfile(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(_ context.Context, a *app) error {
		return render(cmd.OutOrStdout(), outputFormat, newProfileView(a.engine))
	})
}

func showAchievements(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(_ context.Context, a *app) error {
		return render(cmd.OutOrStdout(), outputFormat, newAchievementsView(a.engine.Profile()))
	})
}

func showGoal(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(_ context.Context, a *app) error {
		return render(cmd.OutOrStdout(), outputFormat, newGoalView(a.engine))
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS / ROLLOVER
// ══════════════════════════════════════════════════════════════════════════════

func updateSettings(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		current := a.engine.Profile().Settings

		next, changed := settingsFromFlags(cmd, current)
		if changed {
			if err := a.engine.UpdateSettings(ctx, next); err != nil {
				return err
			}
			current = next
		}
		return render(cmd.OutOrStdout(), outputFormat, newSettingsView(current))
	})
}

// settingsFromFlags накладывает явно заданные флаги на текущие настройки.
func settingsFromFlags(cmd *cobra.Command, s progression.Settings) (progression.Settings, bool) {
	flags := cmd.Flags()
	changed := false

	if flags.Changed("daily-goal") {
		s.DailyGoalMinutes, _ = flags.GetInt("daily-goal")
		changed = true
	}
	if flags.Changed("notifications") {
		s.NotificationsEnabled, _ = flags.GetBool("notifications")
		changed = true
	}
	if flags.Changed("streak-reminders") {
		s.StreakReminders, _ = flags.GetBool("streak-reminders")
		changed = true
	}
	if flags.Changed("achievement-alerts") {
		s.AchievementAlerts, _ = flags.GetBool("achievement-alerts")
		changed = true
	}
	return s, changed
}

func runRollover(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		res, err := a.engine.CheckStreakRollover(ctx)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, rolloverView{
			Broken:   res.Broken,
			Previous: res.Previous,
			Current:  a.engine.Profile().CurrentStreak,
		})
	})
}

func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
