package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <operator> <query>",
	Short: "Search an operator's stops by name",
	Args:  cobra.ExactArgs(2),
	RunE:  search,
}

func search(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	manager, _, err := newManager(logger)
	if err != nil {
		return err
	}

	name, query := args[0], args[1]

	if err := manager.Init(context.Background(), name); err != nil {
		return err
	}

	results, err := manager.Search(name, query)
	if err != nil {
		return err
	}

	for _, res := range results {
		fmt.Printf("%s %s (%f, %f)\n", res.StopID, res.Name, res.Lat, res.Lon)
		for _, route := range res.Routes {
			fmt.Printf("    %s -> %s\n", route.RouteName, route.Headsign)
		}
	}

	return nil
}
