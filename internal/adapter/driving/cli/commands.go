// Package cli implements the passworderctl command tree.
package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/passworder/internal/application"
	"github.com/ericfisherdev/passworder/internal/domain/model"
)

// Vault is the subset of application.VaultService the CLI drives.
type Vault interface {
	CreateAccount(ctx context.Context, username, masterPassword string) (model.Account, error)
	Authenticate(ctx context.Context, username, masterPassword string) (model.Account, error)
	AddCredential(ctx context.Context, accountID int64, service, login, plaintextPassword, masterPassword string) (model.CredentialEntry, error)
	ListCredentials(ctx context.Context, accountID int64) ([]model.CredentialEntry, error)
	GetCredential(ctx context.Context, accountID, entryID int64) (model.CredentialEntry, error)
	RevealCredential(ctx context.Context, entry model.CredentialEntry, masterPassword string) (string, error)
	UpdateCredential(ctx context.Context, accountID, entryID int64, upd application.CredentialUpdate, masterPassword string) (model.CredentialEntry, error)
}

type commands struct {
	vault    Vault
	prompter Prompter
}

// NewRootCommand builds the passworderctl command tree over vault. Secrets are
// always read through prompter, never from flags or arguments.
func NewRootCommand(vault Vault, prompter Prompter) *cobra.Command {
	c := &commands{vault: vault, prompter: prompter}

	root := &cobra.Command{
		Use:   "passworderctl",
		Short: "Manage passworder accounts and credentials",
		Long: `Manage passworder accounts and stored credentials.

Master passwords and credential passwords are prompted without echo when
stdin is a terminal, or read one per line from stdin otherwise.`,
		SilenceUsage: true,
	}

	account := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}
	account.AddCommand(c.accountCreateCmd())

	credential := &cobra.Command{
		Use:   "credential",
		Short: "Manage stored credentials",
	}
	credential.AddCommand(
		c.credentialAddCmd(),
		c.credentialListCmd(),
		c.credentialRevealCmd(),
		c.credentialUpdateCmd(),
	)

	root.AddCommand(account, credential)
	return root
}

func (c *commands) accountCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			master, err := c.prompter.ReadSecret("Master password: ")
			if err != nil {
				return err
			}
			confirm, err := c.prompter.ReadSecret("Confirm master password: ")
			if err != nil {
				return err
			}
			if master != confirm {
				return fmt.Errorf("master passwords do not match: %w", model.ErrInvalidInput)
			}

			acct, err := c.vault.CreateAccount(cmd.Context(), args[0], master)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created account %q (id %d)\n", acct.Username, acct.ID)
			return nil
		},
	}
}

func (c *commands) credentialAddCmd() *cobra.Command {
	var user, service, login string

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a credential",
		Example: `  passworderctl credential add --user alice --service example.com --login alice@example.com`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, master, err := c.login(cmd.Context(), user)
			if err != nil {
				return err
			}

			password, err := c.prompter.ReadSecret(fmt.Sprintf("Password for %s: ", service))
			if err != nil {
				return err
			}

			entry, err := c.vault.AddCredential(cmd.Context(), acct.ID, service, login, password, master)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added credential %d for %s\n", entry.ID, entry.Service)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Account username (required)")
	cmd.Flags().StringVar(&service, "service", "", "Service the credential belongs to (required)")
	cmd.Flags().StringVar(&login, "login", "", "Login name on the service (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("login")

	return cmd
}

func (c *commands) credentialListCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List credentials (metadata only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, _, err := c.login(cmd.Context(), user)
			if err != nil {
				return err
			}

			entries, err := c.vault.ListCredentials(cmd.Context(), acct.ID)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No credentials stored.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tSERVICE\tLOGIN\tUPDATED")
			for _, e := range entries {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.ID, e.Service, e.Login, e.UpdatedAt.UTC().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Account username (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func (c *commands) credentialRevealCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "reveal <id>",
		Short: "Print a credential's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}

			acct, master, err := c.login(cmd.Context(), user)
			if err != nil {
				return err
			}

			entry, err := c.vault.GetCredential(cmd.Context(), acct.ID, id)
			if err != nil {
				return err
			}

			password, err := c.vault.RevealCredential(cmd.Context(), entry, master)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), password)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Account username (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func (c *commands) credentialUpdateCmd() *cobra.Command {
	var (
		user, service, login string
		newPassword          bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a credential's service, login or password",
		Example: `  passworderctl credential update 3 --user alice --login alice@example.org
  passworderctl credential update 3 --user alice --password`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}

			var upd application.CredentialUpdate
			if cmd.Flags().Changed("service") {
				upd.Service = &service
			}
			if cmd.Flags().Changed("login") {
				upd.Login = &login
			}

			acct, master, err := c.login(cmd.Context(), user)
			if err != nil {
				return err
			}

			if newPassword {
				password, err := c.prompter.ReadSecret("New password: ")
				if err != nil {
					return err
				}
				upd.Password = &password
			}

			entry, err := c.vault.UpdateCredential(cmd.Context(), acct.ID, id, upd, master)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated credential %d\n", entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Account username (required)")
	cmd.Flags().StringVar(&service, "service", "", "New service name")
	cmd.Flags().StringVar(&login, "login", "", "New login name")
	cmd.Flags().BoolVar(&newPassword, "password", false, "Prompt for a new password")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// login prompts for the master password of user and authenticates it.
func (c *commands) login(ctx context.Context, user string) (model.Account, string, error) {
	master, err := c.prompter.ReadSecret(fmt.Sprintf("Master password for %s: ", user))
	if err != nil {
		return model.Account{}, "", err
	}

	acct, err := c.vault.Authenticate(ctx, user, master)
	if err != nil {
		return model.Account{}, "", err
	}
	return acct, master, nil
}

func parseEntryID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid credential id %q: %w", arg, model.ErrInvalidInput)
	}
	return id, nil
}
