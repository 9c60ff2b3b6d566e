package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/kestrelhq/kestrel/internal/snapshot"
	"github.com/kestrelhq/kestrel/internal/util"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Snapshot and recover conversation logs",
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create <message-log>",
	Short: "Snapshot a live message log",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotCreate,
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotList,
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show [ref]",
	Short: "Show a snapshot by id, id prefix, position, or label",
	Long: `Show resolves its argument against the snapshot listing: an exact id
wins, then an unambiguous id prefix, then a 1-based position in the
newest-first listing, then a case-insensitive label substring. With no
argument the newest snapshot is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSnapshotShow,
}

var (
	snapshotReason    string
	snapshotLabel     string
	snapshotFork      int
	snapshotSidechain int
	snapshotLimit     int
	snapshotMessages  bool
)

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotCreateCmd, snapshotListCmd, snapshotShowCmd)

	snapshotCreateCmd.Flags().StringVar(&snapshotReason, "reason", "manual", "Why the snapshot is being taken")
	snapshotCreateCmd.Flags().StringVar(&snapshotLabel, "label", "", "Human-readable label used in the snapshot id")
	snapshotCreateCmd.Flags().IntVar(&snapshotFork, "fork", 0, "Fork number of the live log")
	snapshotCreateCmd.Flags().IntVar(&snapshotSidechain, "sidechain", 0, "Sidechain number of the live log")

	snapshotListCmd.Flags().IntVar(&snapshotLimit, "limit", 0, "Maximum snapshots to list (0 uses the configured default)")

	snapshotShowCmd.Flags().BoolVar(&snapshotMessages, "messages", false, "Print the full message history")
}

func runSnapshotCreate(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	meta, err := rt.Snapshots.Create(snapshot.CreateRequest{
		MessageLogName:  args[0],
		ForkNumber:      snapshotFork,
		SidechainNumber: snapshotSidechain,
		Reason:          snapshotReason,
		Label:           snapshotLabel,
	})
	if err != nil {
		return err
	}
	color.Green("snapshot %s (%d messages)", meta.ID, meta.MessageCount)
	return nil
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	limit := snapshotLimit
	if limit <= 0 {
		limit = rt.Config.Snapshots.ListLimit
	}

	metas, err := rt.Snapshots.List(limit)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("no snapshots")
		return nil
	}
	for i, m := range metas {
		label := m.Label
		if label == "" {
			label = m.Reason
		}
		fmt.Printf("%2d. %s  %-20s %4d messages\n", i+1, m.ID, util.TruncateString(label, 20), m.MessageCount)
	}
	return nil
}

func runSnapshotShow(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ref := ""
	if len(args) == 1 {
		ref = args[0]
	}

	snap, err := rt.Snapshots.LoadMessages(ref)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	bold.Println(snap.ID)
	fmt.Printf("  created:  %s\n", snap.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  reason:   %s\n", snap.Reason)
	if snap.Label != "" {
		fmt.Printf("  label:    %s\n", snap.Label)
	}
	fmt.Printf("  source:   %s\n", snap.SourcePath)
	fmt.Printf("  messages: %d\n", snap.MessageCount)

	if snapshotMessages {
		for _, m := range snap.Messages {
			if m.ToolName != "" {
				fmt.Printf("  [%s] uses %s\n", m.Role, m.ToolName)
				continue
			}
			fmt.Printf("  [%s] %s\n", m.Role, m.Content)
		}
	}
	return nil
}
