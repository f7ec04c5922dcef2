package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dnstrail/dnstrail/config"
	"github.com/dnstrail/dnstrail/log"
)

// nolint:gochecknoglobals
var (
	configPath string
	apiHost    string
	apiPort    uint16
)

// nolint:gochecknoglobals
var rootCmd = &cobra.Command{
	Use:   "dnstrail",
	Short: "dnstrail is a DNS resolution tracer",
	Long: `A DNS resolution tracer with a TTL cache and an access gate.
Each resolution is answered with the full step/timing trace of its journey.`,
	Run: func(cmd *cobra.Command, args []string) {
		startServer(cmd, args)
	},
}

func apiURL(path string) string {
	return fmt.Sprintf("http://%s:%d%s", apiHost, apiPort, path)
}

// nolint:gochecknoinits
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&apiHost, "apiHost", "localhost", "host of dnstrail (API)")
	rootCmd.PersistentFlags().Uint16Var(&apiPort, "apiPort", 0, "port of dnstrail (API)")

	rootCmd.AddCommand(newServeCommand(),
		newQueryCommand(),
		newBlockingCommand(),
		newCacheCommand(),
		newVersionCommand())
}

func initConfig() {
	if apiPort == 0 {
		cfg, err := config.NewConfig(configPath)
		if err != nil {
			log.Log().Fatalf("unable to load configuration: %v", err)
		}

		apiPort = cfg.HTTPPort
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
