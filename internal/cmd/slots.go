package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Inspect the shared API concurrency slots",
}

var slotsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show held vs available slots",
	Args:  cobra.NoArgs,
	RunE:  runSlotsStatus,
}

func init() {
	rootCmd.AddCommand(slotsCmd)
	slotsCmd.AddCommand(slotsStatusCmd)
}

func runSlotsStatus(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	held, max := rt.Limiter.Status()
	if held == max {
		color.Red("%d/%d slots held", held, max)
	} else {
		fmt.Printf("%d/%d slots held\n", held, max)
	}
	return nil
}
