package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"resumaid/internal/artifacts"
	"resumaid/internal/resumes"
)

func (c *cli) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Load a resume with its feedback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			viewKey := artifacts.ViewKey(c.owner, "cli-"+uuid.NewString())
			defer c.app.Registry.Release(viewKey)

			view, err := c.app.Loader.Load(cmd.Context(), c.owner, viewKey, args[0])
			if err != nil {
				if errors.Is(err, resumes.ErrNotFound) {
					return fmt.Errorf("resume %s not found", args[0])
				}
				return err
			}
			out := cmd.OutOrStdout()
			if c.asJSON {
				return writeJSON(out, view)
			}

			fmt.Fprintf(out, "%s  %s at %s (%s)\n", view.ID, view.JobTitle, view.CompanyName, view.Shape)
			if view.Summary == nil {
				fmt.Fprintln(out, "no feedback yet")
			} else {
				fmt.Fprintf(out, "overall %d/100  %s\n", view.Summary.OverallScore, view.Summary.Badge)
				fmt.Fprintf(out, "  %-16s %3d\n", "ATS", view.Summary.ATS.Score)
				for _, s := range view.Summary.Sections {
					fmt.Fprintf(out, "  %-16s %3d  %s\n", s.Title, s.Score, s.Badge)
				}
			}
			for _, p := range view.Problems {
				fmt.Fprintf(out, "problem: %s %s: %s\n", p.Part, p.Code, p.Message)
			}
			return nil
		},
	}
}
