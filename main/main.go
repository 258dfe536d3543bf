package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/electroworks/ionsim/config"
	simio "github.com/electroworks/ionsim/io"
)

var (
	flagSteps     int
	flagLogLevel  string
	flagSnapshot  string
	flagSaveState string
	flagLoadState string
)

var rootCmd = &cobra.Command{
	Use:   "ionsim",
	Short: "particle-scale electrochemical cell simulator",
}

var runCmd = &cobra.Command{
	Use:   "run <scenario-file>",
	Short: "run a scenario headless",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(flagLogLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
		log := logrus.WithField("pkg", "main")

		scenario, err := config.ReadScenarioConfig(args[0])
		if err != nil {
			return err
		}
		s, err := scenario.Build()
		if err != nil {
			return err
		}

		if flagLoadState != "" {
			snap, err := simio.ReadState(flagLoadState)
			if err != nil {
				return err
			}
			s.Restore(snap)
			log.WithField("file", flagLoadState).
				WithField("frame", s.Frame()).
				Info("State restored")
		}

		steps := scenario.Scenario.Steps
		if flagSteps > 0 {
			steps = flagSteps
		}

		log.WithField("particles", s.NumBodies()).
			WithField("steps", steps).
			Info("Scenario loaded")

		report := steps / 10
		if report < 1 {
			report = 1
		}
		for i := 0; i < steps; i++ {
			s.Step()
			if (i+1)%report == 0 {
				log.WithField("frame", s.Frame()).
					WithField("time", s.Time()).
					WithField("temperature", s.Temperature()).
					Info("Progress")
			}
		}

		if flagSnapshot != "" {
			if err := os.WriteFile(flagSnapshot, []byte(config.WriteParticleFile(s)), 0666); err != nil {
				return err
			}
			log.WithField("file", flagSnapshot).Info("Final particle table written")
		}
		if flagSaveState != "" {
			if err := simio.WriteState(flagSaveState, s.Snapshot()); err != nil {
				return err
			}
			log.WithField("file", flagSaveState).Info("State saved")
		}
		return nil
	},
}

var exampleCmd = &cobra.Command{
	Use:   "example",
	Short: "print an example scenario file to stdout",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.ExampleScenarioFile)
	},
}

func main() {
	runCmd.Flags().IntVar(
		&flagSteps, "steps", 0,
		"Override the scenario's step count.",
	)
	runCmd.Flags().StringVar(
		&flagLogLevel, "log-level", "info",
		"Log level: debug, info, warn, or error.",
	)
	runCmd.Flags().StringVar(
		&flagSnapshot, "out", "",
		"Write the final particle table to this file.",
	)
	runCmd.Flags().StringVar(
		&flagSaveState, "save-state", "",
		"Write a binary state file when the run finishes.",
	)
	runCmd.Flags().StringVar(
		&flagLoadState, "load-state", "",
		"Restore from a binary state file before running.",
	)
	rootCmd.AddCommand(runCmd, exampleCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
