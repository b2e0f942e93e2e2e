package main

import (
	"embed"
	"io/fs"
	"os"

	"dashgrid/internal/cli"
)

//go:embed all:frontend/dist
var assets embed.FS

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	dist, err := fs.Sub(assets, "frontend/dist")
	if err != nil {
		println("Error:", err.Error())
		os.Exit(1)
	}
	cli.SetVersion(version, commit, date)
	if err := cli.Execute(dist); err != nil {
		os.Exit(1)
	}
}
