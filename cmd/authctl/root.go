package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/geocoder89/authhub/internal/client"
)

const defaultServer = "http://localhost:8080"

// globalOptions are shared by every subcommand.
type globalOptions struct {
	server      string
	sessionPath string
}

// NewRootCmd creates the root command for the authctl CLI.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "authctl",
		Short: "authctl - command line client for authhub",
		Long: `authctl talks to an authhub server. After a successful login the
returned user record is kept in a local session file until logout.`,
		SilenceUsage: true,
	}

	server := os.Getenv("AUTHHUB_SERVER")
	if server == "" {
		server = defaultServer
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", server, "authhub base URL")
	cmd.PersistentFlags().StringVar(&opts.sessionPath, "session", "", "session file path (default <user config dir>/authhub/session.json)")

	cmd.AddCommand(newRegisterCmd(opts))
	cmd.AddCommand(newLoginCmd(opts))
	cmd.AddCommand(newWhoamiCmd(opts))
	cmd.AddCommand(newProfileCmd(opts))
	cmd.AddCommand(newLogoutCmd(opts))
	cmd.AddCommand(newHealthCmd(opts))

	return cmd
}

func (o *globalOptions) client() *client.Client {
	return client.New(o.server)
}

func (o *globalOptions) session() (*client.Session, error) {
	path := o.sessionPath
	if path == "" {
		p, err := client.DefaultSessionPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	return client.LoadSession(client.NewFileStore(path))
}
