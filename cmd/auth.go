package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/grovetools/fleetview/cli"
	"github.com/grovetools/fleetview/logging"
	"github.com/grovetools/fleetview/pkg/models"
)

func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the warehouse backend",
		Long: `Exchange an email and password for a session token. The session is saved
under the fleetview state directory and used by every other command until
'fleetview logout'.`,
		Example: `# Prompt for the password
fleetview login --email ops@example.com

# Read the password from a pipe
echo "$PASSWORD" | fleetview login --email ops@example.com --password-stdin`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
	cmd.Flags().StringP("email", "e", "", "Account email")
	cmd.Flags().Bool("password-stdin", false, "Read the password from stdin")
	return cmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return err
	}
	email, _ := cmd.Flags().GetString("email")
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")

	in := bufio.NewReader(cmd.InOrStdin())
	if email == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Email: ")
		if email, err = readLine(in); err != nil {
			return err
		}
	}
	password, err := readPassword(cmd, in, fromStdin)
	if err != nil {
		return err
	}

	client, err := newClient(cmd, cfg, nil)
	if err != nil {
		return err
	}
	sess, err := client.Login(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	if err := sessionStore().Save(sess); err != nil {
		return err
	}

	if cli.GetOptions(cmd).JSONOutput {
		return printJSON(cmd.OutOrStdout(), sess.User)
	}
	pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
	pretty.Success(fmt.Sprintf("Logged in as %s", sess.User.Email))
	pretty.Field("Server", sess.Server)
	return nil
}

// readPassword reads without echo when stdin is a terminal.
func readPassword(cmd *cobra.Command, in *bufio.Reader, fromStdin bool) (string, error) {
	if !fromStdin && cmd.InOrStdin() == os.Stdin && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		data, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(data), nil
	}
	return readLine(in)
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sessionStore().Delete(); err != nil {
				return err
			}
			logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).Success("Logged out")
			return nil
		},
	}
}

type whoamiOutput struct {
	User     models.User `json:"user"`
	Server   string      `json:"server"`
	IssuedAt time.Time   `json:"issued_at"`
}

func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := sessionStore().Load()
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd.OutOrStdout(), whoamiOutput{
					User:     sess.User,
					Server:   sess.Server,
					IssuedAt: sess.IssuedAt,
				})
			}

			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			name := sess.User.Name
			if name == "" {
				name = sess.User.Email
			}
			pretty.Field("User", name)
			pretty.Field("Email", sess.User.Email)
			if sess.User.Role != "" {
				pretty.Field("Role", sess.User.Role)
			}
			pretty.Field("Server", sess.Server)
			if !sess.IssuedAt.IsZero() {
				pretty.Field("Signed in", sess.IssuedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}
