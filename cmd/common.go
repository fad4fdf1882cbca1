// Package cmd implements the fleetview subcommands.
package cmd

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/grovetools/fleetview/cli"
	"github.com/grovetools/fleetview/config"
	"github.com/grovetools/fleetview/pkg/api"
	"github.com/grovetools/fleetview/pkg/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func sessionStore() *session.Store {
	return session.NewStore("")
}

// newClient builds an API client for cfg. A nil session is allowed for
// unauthenticated calls such as login.
func newClient(cmd *cobra.Command, cfg *config.Config, sess *session.Session) (*api.Client, error) {
	return api.New(api.Options{
		BaseURL:          cfg.Server.BaseURL,
		Timeout:          cfg.Server.Timeout.Std(),
		Session:          sess,
		HeartbeatTimeout: cfg.Warehouse.HeartbeatTimeout.Std(),
		Logger:           cli.GetLogger(cmd, "api"),
	})
}

// authenticatedClient loads the config and the saved session.
func authenticatedClient(cmd *cobra.Command) (*config.Config, *session.Session, *api.Client, error) {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	sess, err := sessionStore().Load()
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := newClient(cmd, cfg, sess)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, sess, client, nil
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
