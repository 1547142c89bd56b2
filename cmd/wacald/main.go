package main

import (
	"flag"

	"go.uber.org/fx"

	"github.com/eyalbz/wacal/internal/daemon"
)

func main() {
	configFlag := flag.String("config", "", "config file path (default ~/.wacal/config.toml)")
	socketFlag := flag.String("socket", "", "admin socket path (default ~/.wacal/daemon.sock)")
	flag.Parse()

	app := fx.New(
		daemon.Module(daemon.Params{
			ConfigPath: *configFlag,
			SocketPath: *socketFlag,
		}),
	)

	app.Run()
}
