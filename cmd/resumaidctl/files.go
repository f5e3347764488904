package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (c *cli) newFilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List stored files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := c.app.Maintenance.ListFiles(cmd.Context(), c.owner)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if c.asJSON {
				return writeJSON(out, files)
			}
			if len(files) == 0 {
				fmt.Fprintln(out, "no files")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED\tKEY")
			for _, f := range files {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Name, f.Size, f.ModifiedAt.Format(time.RFC3339), f.Key)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) newWipeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every stored file and record for the owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to wipe without --yes")
			}
			res, err := c.app.Maintenance.Wipe(cmd.Context(), c.owner)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if c.asJSON {
				return writeJSON(out, res)
			}
			fmt.Fprintf(out, "deleted %d files, %d failed, records flushed: %t\n", res.DeletedFiles, len(res.FailedFiles), res.FlushedKV)
			for _, key := range res.FailedFiles {
				fmt.Fprintf(out, "  failed: %s\n", key)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the wipe")
	return cmd
}
