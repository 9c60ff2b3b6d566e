package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Manage agent teams",
}

var teamEnsureCmd = &cobra.Command{
	Use:   "ensure <name> [agent...]",
	Short: "Create a team if it does not exist, or fetch it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTeamEnsure,
}

var teamShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a team and its agents",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeamShow,
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all teams",
	Args:  cobra.NoArgs,
	RunE:  runTeamList,
}

var teamDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a team and its coordination state",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeamDelete,
}

var teamDeleteForce bool

func init() {
	rootCmd.AddCommand(teamCmd)
	teamCmd.AddCommand(teamEnsureCmd, teamShowCmd, teamListCmd, teamDeleteCmd)
	teamDeleteCmd.Flags().BoolVarP(&teamDeleteForce, "force", "f", false, "Delete even if unresolved tasks remain")
}

func runTeamEnsure(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	team, err := rt.Teams.Ensure(args[0], args[1:])
	if err != nil {
		return err
	}

	color.Green("team %s ready (%d agents)", team.Name, len(team.Agents))
	return nil
}

func runTeamShow(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	team, err := rt.Teams.Get(args[0])
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	bold.Println(team.Name)
	fmt.Printf("  created: %s\n", team.CreatedAt.Format("2006-01-02 15:04:05"))
	for _, agent := range team.Agents {
		fmt.Printf("  - %s\n", agent)
	}
	return nil
}

func runTeamList(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	teams, err := rt.Teams.List()
	if err != nil {
		return err
	}
	if len(teams) == 0 {
		fmt.Println("no teams")
		return nil
	}
	for _, t := range teams {
		fmt.Printf("%s  (%d agents)\n", t.Name, len(t.Agents))
	}
	return nil
}

func runTeamDelete(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.Teams.Delete(args[0], teamDeleteForce); err != nil {
		return err
	}
	color.Yellow("team %s deleted", args[0])
	return nil
}
