// Package main - консольный клиент Offline Quest.
//
// Клиент запускает офлайн-сессии, показывает профиль, достижения и
// прогресс дневной цели. Профиль хранится в выбранном хранилище
// (memory, sqlite, badger, redis, postgres), настройки читаются из окружения.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	outputFormat string

	rootCmd = &cobra.Command{
		Use:           "offline",
		Short:         "Offline Quest: earn XP for time spent away from the screen",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Start an offline session; Ctrl+C ends it",
		RunE:  runSession,
	}

	profileCmd = &cobra.Command{
		Use:   "profile",
		Short: "Show level, XP, streak and weekly stats",
		RunE:  showProfile,
	}

	achievementsCmd = &cobra.Command{
		Use:   "achievements",
		Short: "List achievements and their unlock state",
		RunE:  showAchievements,
	}

	goalCmd = &cobra.Command{
		Use:   "goal",
		Short: "Show today's progress towards the daily goal",
		RunE:  showGoal,
	}

	settingsCmd = &cobra.Command{
		Use:   "settings",
		Short: "Show or change profile settings",
		RunE:  updateSettings,
	}

	rolloverCmd = &cobra.Command{
		Use:   "rollover",
		Short: "Reset the streak if a day was missed",
		RunE:  runRollover,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text or yaml")

	runCmd.Flags().String("goal", "", "optional goal identifier attached to the session")
	runCmd.Flags().Duration("duration", 0, "end the session automatically after this long")

	bindSettingsFlags(settingsCmd)

	rootCmd.AddCommand(runCmd, profileCmd, achievementsCmd, goalCmd, settingsCmd, rolloverCmd)
}

func bindSettingsFlags(cmd *cobra.Command) {
	cmd.Flags().Int("daily-goal", 0, "daily goal in minutes (1-1440)")
	cmd.Flags().Bool("notifications", true, "enable notifications")
	cmd.Flags().Bool("streak-reminders", true, "enable streak reminders")
	cmd.Flags().Bool("achievement-alerts", true, "enable achievement alerts")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
