package main

import (
	"fmt"

	"gateway-dashboard/src/models"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newLogsCmd(v *viper.Viper) *cobra.Command {
	var (
		tail       int
		since      string
		timestamps bool
	)

	cmd := &cobra.Command{
		Use:   "logs <container>",
		Short: "Print the demultiplexed log tail of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			if tail <= 0 {
				tail = conf.Docker.DefaultTail
			}

			lines, err := setupLogs(conf.MConfig).FetchLogs(cmd.Context(), args[0], models.MLogOptions{Tail: tail, Since: since})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, line := range lines {
				prefix := ""
				if line.Stream == models.StreamStderr {
					prefix = "[stderr] "
				}
				if timestamps && line.Timestamp != "" {
					prefix = line.Timestamp + " " + prefix
				}
				if _, err := fmt.Fprintln(out, prefix+line.Text); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&tail, "tail", 0, "number of lines (default docker.default_tail)")
	cmd.Flags().StringVar(&since, "since", "", "only lines newer than this unix timestamp or duration")
	cmd.Flags().BoolVarP(&timestamps, "timestamps", "t", false, "show runtime timestamps")
	return cmd
}
