// Command syncano calls the Syncano platform from the shell.
//
//	syncano [--config file] <resource> <verb> [flags]
//
// Results are printed as JSON. Settings come from the config file, a .env
// file and SYNCANO_* environment variables; see package config.
package main

import (
	"github.com/syncano/syncano.go/internal/cli"
)

func main() {
	cli.Execute()
}
