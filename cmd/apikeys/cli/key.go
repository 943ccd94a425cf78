package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/apikeys/pkg/apikeysdk"
)

func newKeyCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long: `Create, list, revoke and rotate API keys through a running service.

Commands authenticate with --token (or APIKEYS_TOKEN). Without a token, one is
minted from the local config for --as.`,
	}

	cmd.PersistentFlags().String("as", "", "mint a token for this owner when --token is not set")

	cmd.AddCommand(newKeyCreateCmd(o))
	cmd.AddCommand(newKeyListCmd(o))
	cmd.AddCommand(newKeyRevokeCmd(o))
	cmd.AddCommand(newKeyRotateCmd(o))

	return cmd
}

// client returns an SDK client for the configured server.
func (o *options) client(cmd *cobra.Command) (*apikeysdk.Client, error) {
	token := o.v.GetString("token")
	if token == "" {
		as, _ := cmd.Flags().GetString("as")
		if as == "" {
			return nil, fmt.Errorf("either --token or --as is required")
		}
		var err error
		if token, err = o.mintToken(as, false, 5*time.Minute); err != nil {
			return nil, fmt.Errorf("mint token: %w", err)
		}
	}
	return apikeysdk.NewClient(o.v.GetString("server"), token), nil
}

func printSecret(cmd *cobra.Command, title string, gen *apikeysdk.GeneratedKeyResponse) {
	w := out(cmd)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Key:     %s\n", gen.Secret)
	fmt.Fprintf(w, "  ID:      %s\n", gen.Key.ID)
	fmt.Fprintf(w, "  Name:    %s\n", gen.Key.Name)
	fmt.Fprintf(w, "  Scopes:  %s\n", scopeList(gen.Key.Scopes))
	if gen.Key.ExpiresAt != nil {
		fmt.Fprintf(w, "  Expires: %s\n", gen.Key.ExpiresAt.Format(time.RFC3339))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Save this key now - it cannot be retrieved again.")
}

func scopeList(scopes []string) string {
	if scopes == nil {
		return "(unrestricted)"
	}
	return strings.Join(scopes, ",")
}

// ---------- key create ----------

func newKeyCreateCmd(o *options) *cobra.Command {
	var (
		name   string
		scopes []string
		days   int
		owner  string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Generate a new API key. The raw key is shown once and cannot be retrieved again.",
		Example: `  apikeys key create --as user-1 --name "CI pipeline" --scope billing:read
  apikeys key create --token $TOKEN --name export --scope billing:read --scope reports:export --days 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client(cmd)
			if err != nil {
				return err
			}
			gen, err := c.GenerateKey(cmd.Context(), apikeysdk.GenerateKeyRequest{
				Name:       name,
				Scopes:     scopes,
				ExpiryDays: days,
				OwnerID:    owner,
			})
			if err != nil {
				return fmt.Errorf("create api key: %w", err)
			}
			printSecret(cmd, "API Key created:", gen)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "human-readable name (required)")
	cmd.Flags().StringArrayVar(&scopes, "scope", nil, "resource:action scope, repeatable")
	cmd.Flags().IntVar(&days, "days", 0, "days until expiry (default: server default)")
	cmd.Flags().StringVar(&owner, "owner", "", "issue for another owner (admin tokens only)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// ---------- key list ----------

func newKeyListCmd(o *options) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client(cmd)
			if err != nil {
				return err
			}
			keys, err := c.ListKeys(cmd.Context(), owner)
			if err != nil {
				return fmt.Errorf("list api keys: %w", err)
			}

			if len(keys) == 0 {
				fmt.Fprintln(out(cmd), "No API keys found.")
				return nil
			}

			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tKEY\tSCOPES\tACTIVE\tEXPIRES\tLAST USED")
			for _, k := range keys {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
					k.ID, k.Name, k.Preview, scopeList(k.Scopes), k.IsActive,
					formatTime(k.ExpiresAt, "never"), formatTime(k.LastUsedAt, "-"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "list another owner's keys (admin tokens only)")
	return cmd
}

func formatTime(t *time.Time, zero string) string {
	if t == nil {
		return zero
	}
	return t.Format(time.RFC3339)
}

// ---------- key revoke ----------

func newKeyRevokeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client(cmd)
			if err != nil {
				return err
			}
			if err := c.RevokeKey(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("revoke api key: %w", err)
			}
			fmt.Fprintf(out(cmd), "API key %s revoked.\n", args[0])
			return nil
		},
	}
}

// ---------- key rotate ----------

func newKeyRotateCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate <key-id>",
		Short: "Rotate an API key",
		Long:  "Revoke a key and issue a replacement with the same scopes and remaining lifetime.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client(cmd)
			if err != nil {
				return err
			}
			gen, err := c.RotateKey(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("rotate api key: %w", err)
			}
			printSecret(cmd, "API Key rotated:", gen)
			return nil
		},
	}
}
