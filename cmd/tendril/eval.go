package main

import (
	"fmt"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval <script.yaml>",
	Short: "Evaluate a scripted dialogue and check its expectations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		script, err := cli.LoadScript(app.Engine, args[0])
		if err != nil {
			return err
		}
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		out := cmd.OutOrStdout()
		sum, err := cli.RunScript(ctx, app.Engine, script, out)
		if err != nil {
			return err
		}
		if !sum.OK() {
			for _, m := range sum.Mismatches {
				fmt.Fprintln(out, "FAIL", m)
			}
			return fmt.Errorf("%d of %d turns did not match", len(sum.Mismatches), sum.Turns)
		}
		fmt.Fprintf(out, "ok: %d turns\n", sum.Turns)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <script.yaml>",
	Short: "Check a scripted dialogue against the registered types",
	Long:  `Parses every turn and reports unknown types and params without evaluating anything.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		script, err := cli.LoadScript(app.Engine, args[0])
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Script is valid (%d turns).\n", len(script.Turns))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(validateCmd)
}
