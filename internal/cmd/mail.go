package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/kestrelhq/kestrel/internal/mailbox"
	"github.com/spf13/cobra"
)

var mailCmd = &cobra.Command{
	Use:   "mail",
	Short: "Send and read inter-agent messages",
}

var mailSendCmd = &cobra.Command{
	Use:   "send <team> <from> <to> <content>",
	Short: "Send a message to one agent",
	Args:  cobra.ExactArgs(4),
	RunE:  runMailSend,
}

var mailBroadcastCmd = &cobra.Command{
	Use:   "broadcast <team> <from> <content>",
	Short: "Send a message to every other agent on a team",
	Args:  cobra.ExactArgs(3),
	RunE:  runMailBroadcast,
}

var mailReadCmd = &cobra.Command{
	Use:   "read <team> <agent>",
	Short: "Print an agent's inbox",
	Args:  cobra.ExactArgs(2),
	RunE:  runMailRead,
}

var mailWatchCmd = &cobra.Command{
	Use:   "watch <team> <agent>",
	Short: "Follow an agent's inbox until interrupted",
	Args:  cobra.ExactArgs(2),
	RunE:  runMailWatch,
}

var (
	mailSummary string
	mailOutbox  bool
)

func init() {
	rootCmd.AddCommand(mailCmd)
	mailCmd.AddCommand(mailSendCmd, mailBroadcastCmd, mailReadCmd, mailWatchCmd)

	mailSendCmd.Flags().StringVar(&mailSummary, "summary", "", "One-line summary shown in inbox listings")
	mailReadCmd.Flags().BoolVar(&mailOutbox, "outbox", false, "Read the agent's outbox instead")
}

func runMailSend(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := rt.Mailbox.Send(args[0], args[1], args[2], mailbox.KindMessage, args[3], mailbox.Fields{
		Summary: mailSummary,
	})
	if err != nil {
		return err
	}
	color.Green("sent %s", id)
	return nil
}

func runMailBroadcast(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ids, err := rt.Mailbox.Broadcast(args[0], args[1], args[2])
	if err != nil {
		return err
	}
	color.Green("broadcast to %d recipients", len(ids))
	return nil
}

func runMailRead(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	var msgs []mailbox.Message
	if mailOutbox {
		msgs, err = rt.Mailbox.ReadOutbox(args[0], args[1])
	} else {
		msgs, err = rt.Mailbox.ReadInbox(args[0], args[1])
	}
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Println("no messages")
		return nil
	}
	for _, m := range msgs {
		printMessage(m)
	}
	return nil
}

func runMailWatch(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	cancel := rt.Mailbox.Watch(args[0], args[1], printMessage)
	defer cancel()

	color.Cyan("watching %s/%s (ctrl-c to stop)", args[0], args[1])

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}

func printMessage(m mailbox.Message) {
	header := fmt.Sprintf("[%s] %s -> %s (%s)",
		m.CreatedAt.Format("15:04:05"), m.From, m.To, m.Kind)
	if m.Kind == mailbox.KindBroadcast {
		color.Yellow("%s", header)
	} else {
		color.Cyan("%s", header)
	}
	fmt.Printf("  %s\n", m.Content)
}
