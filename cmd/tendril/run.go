package main

import (
	"github.com/aretw0/tendril/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive dialogue",
	Long: `Starts a read-eval-print loop: one P-expression per line.
With --dialogue the transcript is stored and resumed on the next run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		headless, _ := cmd.Flags().GetBool("headless")
		id, _ := cmd.Flags().GetString("dialogue")
		fresh, _ := cmd.Flags().GetBool("fresh")
		jsonMode, _ := cmd.Flags().GetBool("json")
		return cli.RunSession(ctx, app, cli.SessionOptions{
			DialogueID: id,
			Fresh:      fresh,
			Headless:   headless,
			JSON:       jsonMode,
			Input:      cmd.InOrStdin(),
			Output:     cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("headless", false, "Run in headless mode (no prompts, strict IO)")
	runCmd.Flags().Bool("json", false, "Run in JSON mode (JSON Lines input/output)")
	runCmd.Flags().StringP("dialogue", "d", "", "Persist and resume the dialogue with this ID")
	runCmd.Flags().Bool("fresh", false, "Discard the stored transcript before starting")

	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
