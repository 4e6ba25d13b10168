package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the node types expressions may use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tOUT\tSIGNATURE")
		for _, t := range app.Engine.Types() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, t.OutType, t.Signature)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
}
