package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var pollCmd = &cobra.Command{
	Use:   "poll <operator>",
	Short: "Fetch one operator's feeds once and report what was recorded",
	Args:  cobra.ExactArgs(1),
	RunE:  poll,
}

func poll(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	manager, _, err := newManager(logger)
	if err != nil {
		return err
	}

	name := args[0]
	ctx := context.Background()

	if err := manager.Init(ctx, name); err != nil {
		return err
	}
	if err := manager.Poll(ctx, name); err != nil {
		return err
	}

	fmt.Printf("polled %s\n", name)
	return nil
}
