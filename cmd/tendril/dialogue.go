package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var dialogueCmd = &cobra.Command{
	Use:     "dialogue",
	Aliases: []string{"dlg"},
	Short:   "Manage stored dialogues",
	Long:    `List, inspect, and remove the dialogue transcripts kept by the configured store.`,
}

var dialogueLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored dialogues",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ids, err := app.Manager.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing dialogues: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No stored dialogues found.")
			return nil
		}
		fmt.Fprintln(out, "Dialogues:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var dialogueInspectCmd = &cobra.Command{
	Use:   "inspect <dialogue-id>",
	Short: "Print the goals of a dialogue, or its transcript with --transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		var v any
		if raw, _ := cmd.Flags().GetBool("transcript"); raw {
			v, err = app.Manager.Transcript(cmd.Context(), args[0])
		} else {
			v, err = app.Manager.Snapshot(cmd.Context(), args[0])
		}
		if err != nil {
			return fmt.Errorf("error loading dialogue '%s': %w", args[0], err)
		}

		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var dialogueRmCmd = &cobra.Command{
	Use:   "rm <dialogue-id>...",
	Short: "Remove one or more dialogues",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if all, _ := cmd.Flags().GetBool("all"); all {
			if args, err = app.Manager.List(cmd.Context()); err != nil {
				return err
			}
		} else if len(args) == 0 {
			return errors.New("requires at least one dialogue ID or --all")
		}

		var errs []error
		for _, id := range args {
			if err := app.Manager.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("error removing '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed dialogue '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(dialogueCmd)
	dialogueCmd.AddCommand(dialogueLsCmd)
	dialogueCmd.AddCommand(dialogueInspectCmd)
	dialogueCmd.AddCommand(dialogueRmCmd)

	dialogueInspectCmd.Flags().Bool("transcript", false, "Print the stored transcript instead of the goals")
	dialogueRmCmd.Flags().Bool("all", false, "Remove every stored dialogue")
}
