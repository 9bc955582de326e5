package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func newSurveysCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "surveys",
		Short: "Post-event survey tools for planners",
	}
	cmd.AddCommand(newSurveysExportCmd(opts))
	return cmd
}

func newSurveysExportCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <event-id>",
		Short: "Download the survey responses of an event as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid event id %q", args[0])
			}
			c, err := opts.newClient()
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return c.ExportSurveyCSV(cmd.Context(), id, w)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	return cmd
}
