package main

import (
	"errors"
	"os"
	"strings"

	"gateway-dashboard/src/config"
	"gateway-dashboard/src/models"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix         = "DASHBOARD"
	defaultConfigPath = "config/default.yaml"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "gateway-dashboard",
		Short:         "Operator dashboard backend for an agent gateway",
		Long:          "gateway-dashboard polls an agent gateway for session and cron activity, aggregates treasury balances, and serves both over HTTP, WebSocket and gRPC.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", defaultConfigPath, "path to config file")
	flags.String("log-level", "", "override log_level (DEBUG, INFO, WARNING, ERROR)")
	flags.String("gateway-url", "", "override gateway.url")
	v.BindPFlag("config", flags.Lookup("config"))
	v.BindPFlag("log_level", flags.Lookup("log-level"))
	v.BindPFlag("gateway.url", flags.Lookup("gateway-url"))

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(v),
		newCallCmd(v),
		newLogsCmd(v),
	)

	return rootCmd
}

// -----------------------------------------------------------------------------

// loadConfig reads the YAML file and layers flags and DASHBOARD_* variables on
// top. A missing default file is tolerated so env-only setups work.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	path := v.GetString("config")
	explicit := cmd.Flags().Changed("config") || os.Getenv(envPrefix+"_CONFIG") != ""

	data, err := os.ReadFile(path)
	if err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return config.Parse(data, viperOverrides(v))
}

// viperOverrides copies every non-empty flag or environment value into the config.
func viperOverrides(v *viper.Viper) config.Override {
	return func(c *models.MConfig) {
		setString(v, "log_level", &c.LogLevel)
		setString(v, "host", &c.Host)
		setInt(v, "port", &c.Port)
		setInt(v, "grpc_port", &c.GrpcPort)

		setString(v, "gateway.url", &c.Gateway.URL)
		setString(v, "gateway.token", &c.Gateway.Token)

		setString(v, "treasury.chain_rpc_url", &c.Treasury.ChainRPCURL)
		setString(v, "treasury.explorer_url", &c.Treasury.ExplorerURL)
		setString(v, "treasury.price_url", &c.Treasury.PriceURL)

		setString(v, "docker.socket", &c.Docker.Socket)
		setString(v, "docker.host", &c.Docker.Host)

		setString(v, "network.proxy", &c.Network.Proxy)
	}
}

func setString(v *viper.Viper, key string, dst *string) {
	if s := v.GetString(key); s != "" {
		*dst = s
	}
}

func setInt(v *viper.Viper, key string, dst *int) {
	if n := v.GetInt(key); n != 0 {
		*dst = n
	}
}
