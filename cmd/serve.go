package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dnstrail/dnstrail/config"
	"github.com/dnstrail/dnstrail/evt"
	"github.com/dnstrail/dnstrail/log"
	"github.com/dnstrail/dnstrail/server"
	"github.com/dnstrail/dnstrail/util"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Args:  cobra.NoArgs,
		Short: "start dnstrail server (default command)",
		Run:   startServer,
	}
}

func startServer(_ *cobra.Command, _ []string) {
	printBanner()

	cfg, err := config.NewConfig(configPath)
	util.FatalOnError("unable to load configuration: ", err)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	srv, err := server.NewServer(&cfg)
	util.FatalOnError("can't start server: ", err)

	errCh := make(chan error)
	srv.Start(errCh)

	evt.Bus().Publish(evt.ApplicationStarted, util.Version, util.BuildTime)

	select {
	case err := <-errCh:
		log.Log().Fatal(err)
	case <-signals:
		log.Log().Info("terminating...")
		util.LogOnError("can't stop server: ", srv.Stop())
	}
}

func printBanner() {
	log.Log().Info("_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/")
	log.Log().Info("_/                                                              _/")
	log.Log().Info("_/               _/                  _/                  _/     _/")
	log.Log().Info("_/      _/_/_/  _/_/_/      _/_/_/  _/_/_/  _/  _/_/_/      _/  _/")
	log.Log().Info("_/     _/    _/  _/  _/  _/_/        _/    _/_/    _/  _/  _/   _/")
	log.Log().Info("_/    _/    _/  _/    _/    _/_/    _/    _/      _/    _/  _/  _/")
	log.Log().Info("_/     _/_/_/  _/    _/  _/_/_/      _/  _/        _/_/_/  _/   _/")
	log.Log().Info("_/                                                              _/")
	log.Log().Infof("_/  Version: %-18s Build time: %-18s  _/", util.Version, util.BuildTime)
	log.Log().Info("_/                                                              _/")
	log.Log().Info("_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/")
}
