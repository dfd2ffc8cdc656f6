package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gateway-dashboard/src/helpers"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newCallCmd(v *viper.Viper) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "call <method> [json-params]",
		Short: "Send one raw request to the gateway and print the result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}

			var params interface{}
			if len(args) == 2 {
				raw := json.RawMessage(args[1])
				if !json.Valid(raw) {
					return helpers.NewInvalidRequest("params must be valid JSON")
				}
				params = raw
			}

			result, err := setupBridge(conf.MConfig).Call(cmd.Context(), args[0], params, timeout)
			if err != nil {
				return fmt.Errorf("%s: %w", helpers.Kind(err), err)
			}

			var out bytes.Buffer
			if err := json.Indent(&out, result, "", "  "); err != nil {
				out.Reset()
				out.Write(result)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out.String())
			return err
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-call timeout (default gateway.timeout_ms)")
	return cmd
}
