package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"resumaid/internal/bootstrap"
)

// loadFunc builds the application graph; the returned func releases it.
type loadFunc func(ctx context.Context) (*bootstrap.App, func(), error)

type cli struct {
	load    loadFunc
	app     *bootstrap.App
	release func()
	owner   string
	asJSON  bool
}

// close releases the loaded application, if any. Safe to call more than once.
func (c *cli) close() {
	if c.release != nil {
		c.release()
	}
	c.app, c.release = nil, nil
}

// newRootCmd builds the command tree. The returned func releases whatever the
// command loaded and must run after Execute, including when it fails, since
// cobra skips post-run hooks on error.
func newRootCmd(load loadFunc) (*cobra.Command, func()) {
	c := &cli{load: load}
	root := &cobra.Command{
		Use:           "resumaidctl",
		Short:         "Inspect and maintain stored resume reviews",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(c.owner) == "" {
				return errors.New("--owner is required")
			}
			app, release, err := c.load(cmd.Context())
			if err != nil {
				return err
			}
			c.app, c.release = app, release
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.owner, "owner", "local", "owner namespace to operate on")
	root.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print JSON output")

	root.AddCommand(
		c.newFilesCmd(),
		c.newWipeCmd(),
		c.newShowCmd(),
		c.newAnalyzeCmd(),
	)
	return root, c.close
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
