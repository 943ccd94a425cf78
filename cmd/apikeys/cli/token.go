package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/apikeys/pkg/jwtx"
)

func newTokenCmd(o *options) *cobra.Command {
	var (
		subject string
		admin   bool
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a management token",
		Long:  "Sign a management token with the configured jwt.secret. The subject owns the keys the token manages.",
		Example: `  apikeys token --subject user-1
  apikeys token --subject ops --admin --ttl 10m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := o.mintToken(subject, admin, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "owner the token acts for (required)")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the "+jwtx.ScopeAdmin+" scope")
	cmd.Flags().DurationVar(&ttl, "ttl", jwtx.DefaultManagementTokenTTL, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func (o *options) mintToken(subject string, admin bool, ttl time.Duration) (string, error) {
	cfg, err := o.config()
	if err != nil {
		return "", err
	}
	signer, err := jwtx.NewHS256([]byte(cfg.JWT.Secret), cfg.JWT.Issuer)
	if err != nil {
		return "", err
	}

	var scopes []string
	if admin {
		scopes = []string{jwtx.ScopeAdmin}
	}
	return signer.Sign(jwtx.NewClaims(subject, scopes, ttl, "", time.Now().UTC()))
}
