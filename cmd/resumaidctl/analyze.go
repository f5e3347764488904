package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"resumaid/internal/intake"
)

func (c *cli) newAnalyzeCmd() *cobra.Command {
	var (
		file        string
		company     string
		title       string
		description string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Upload a resume and store its feedback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			sub := intake.Submission{
				FileName:       filepath.Base(file),
				Data:           data,
				CompanyName:    company,
				JobTitle:       title,
				JobDescription: description,
			}
			errOut := cmd.ErrOrStderr()
			id, err := c.app.Pipeline.Analyze(cmd.Context(), c.owner, sub, func(status string) {
				fmt.Fprintln(errOut, status)
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if c.asJSON {
				return writeJSON(out, map[string]string{"id": id})
			}
			fmt.Fprintln(out, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the resume file")
	cmd.Flags().StringVar(&company, "company", "", "company name")
	cmd.Flags().StringVar(&title, "title", "", "job title")
	cmd.Flags().StringVar(&description, "description", "", "job description")
	return cmd
}
