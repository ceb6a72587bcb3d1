package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"buscom.dev/transit"
)

var departuresCmd = &cobra.Command{
	Use:   "departures <operator> <stop_id>",
	Short: "Print today's departure board for a stop",
	Args:  cobra.ExactArgs(2),
	RunE:  departures,
}

var departuresDate string

func init() {
	departuresCmd.Flags().StringVarP(&departuresDate, "date", "d", "", "Service date (YYYYMMDD) instead of today")
}

func departures(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	manager, _, err := newManager(logger)
	if err != nil {
		return err
	}

	name, stopID := args[0], args[1]

	if departuresDate != "" {
		day, err := time.Parse("20060102", departuresDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		manager.TimeNow = func() time.Time { return day }
	}

	if err := manager.Init(context.Background(), name); err != nil {
		return err
	}

	board, err := manager.DepartureBoard(name, stopID)
	if err != nil {
		return err
	}

	for _, entry := range board {
		congestion := "-"
		if entry.Congestion != transit.NoCongestionData {
			congestion = fmt.Sprintf("%.2f", entry.Congestion)
		}
		fmt.Printf("%s %s %s (crowding %s)\n", entry.Departure.Departure, entry.RouteName, entry.Destination, congestion)
	}

	return nil
}
