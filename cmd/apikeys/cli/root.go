package cli

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/app"
)

// Execute creates the root command tree and runs it.
func Execute(version string) error {
	if version != "" && version != "dev" {
		app.BuildVersion = version
	}
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree. Each call returns independent state.
func NewRootCmd() *cobra.Command {
	o := &options{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "apikeys",
		Short: "Issue, validate and revoke scoped API keys",
		Long: `apikeys runs the API key service and talks to it.

Keys look like ak_<prefix>_<secret>. Only a keyed hash of each key is stored;
the full key is shown once, when it is created or rotated.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&o.cfgFile, "config", "", "config file (YAML)")
	cmd.PersistentFlags().String("server", "http://localhost:8080", "service base URL for client commands")
	cmd.PersistentFlags().String("token", "", "management token for client commands")
	_ = o.v.BindPFlag("server", cmd.PersistentFlags().Lookup("server"))
	_ = o.v.BindPFlag("token", cmd.PersistentFlags().Lookup("token"))
	o.v.SetEnvPrefix(app.EnvPrefix)
	o.v.AutomaticEnv()

	cmd.AddCommand(newServeCmd(o))
	cmd.AddCommand(newMigrateCmd(o))
	cmd.AddCommand(newTokenCmd(o))
	cmd.AddCommand(newKeyCmd(o))

	return cmd
}

type options struct {
	cfgFile string
	v       *viper.Viper
}

func (o *options) config() (app.Config, error) {
	return app.LoadConfig(o.cfgFile)
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
