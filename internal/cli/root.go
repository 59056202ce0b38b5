// Package cli implements the syncano command.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	syncano "github.com/syncano/syncano.go"
	"github.com/syncano/syncano.go/pkg/config"
	zaplog "github.com/syncano/syncano.go/pkg/logger/zap"
)

// Version is set at build time.
var Version = "dev"

// app carries the global flags and the connection shared by subcommands.
type app struct {
	configFile string
	url        string
	apiKey     string
	instance   string
	codec      string
	logLevel   string
	pretty     bool

	out io.Writer
	db  *syncano.DB
	log *zaplog.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "syncano",
		Short:         "Syncano command line client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.out = cmd.OutOrStdout()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close(cmd.Context())
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "config file (YAML)")
	flags.StringVar(&a.url, "url", "", "endpoint URL, overrides "+config.EnvURL)
	flags.StringVar(&a.apiKey, "api-key", "", "API key, overrides "+config.EnvAPIKey)
	flags.StringVar(&a.instance, "instance", "", "instance name, overrides "+config.EnvInstance)
	flags.StringVar(&a.codec, "codec", "", "sync codec, json or cbor")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&a.pretty, "pretty", false, "indent JSON output")

	root.AddCommand(
		newVersionCommand(),
		newConfigCommand(a),
		newProjectCommand(a),
		newCollectionCommand(a),
		newFolderCommand(a),
		newDataCommand(a),
		newWatchCommand(a),
		newDumpCommand(a),
		newRestoreCommand(a),
	)
	return root
}

// Execute runs the command line and exits on failure.
func Execute() {
	root := NewRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "syncano %s\n", Version)
		},
	}
}

// loadConfig applies the command line overrides on the loaded config.
func (a *app) loadConfig() (*config.Config, error) {
	c, err := config.Load(a.configFile)
	if err != nil {
		return nil, err
	}
	for dst, v := range map[*string]string{
		&c.URL:       a.url,
		&c.APIKey:    a.apiKey,
		&c.Instance:  a.instance,
		&c.Codec:     a.codec,
		&c.Log.Level: a.logLevel,
	} {
		if v != "" {
			*dst = v
		}
	}
	return c, nil
}

// connect opens the connection on first use.
func (a *app) connect(ctx context.Context) (*syncano.DB, error) {
	if a.db != nil {
		return a.db, nil
	}

	c, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	a.log, err = zaplog.NewAtLevel(c.Log.Level, c.Log.Production)
	if err != nil {
		return nil, err
	}
	conf, err := c.ConnectionConfig(a.log)
	if err != nil {
		return nil, err
	}

	a.db, err = syncano.Connect(ctx, conf)
	if err != nil {
		return nil, err
	}
	return a.db, nil
}

func (a *app) close(ctx context.Context) error {
	if a.log != nil {
		defer a.log.Sync() //nolint:errcheck
	}
	if a.db == nil {
		return nil
	}
	db := a.db
	a.db = nil
	return db.Close(ctx)
}

// print writes v as JSON.
func (a *app) print(v any) error {
	var (
		data []byte
		err  error
	)
	if a.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(data))
	return err
}

// run wraps a subcommand body that needs a connection.
func (a *app) run(fn func(ctx context.Context, db *syncano.DB, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := a.connect(ctx)
		if err != nil {
			return err
		}
		out, err := fn(ctx, db, args)
		if err != nil {
			return err
		}
		if out == nil {
			return nil
		}
		return a.print(out)
	}
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadConfig()
			if err != nil {
				return err
			}
			if c.APIKey != "" {
				c.APIKey = "***"
			}
			// Printed in the config file format so it can be saved as is.
			if c.File != "" {
				fmt.Fprintf(a.out, "# %s\n", c.File)
			}
			enc := yaml.NewEncoder(a.out)
			enc.SetIndent(2)
			if err := enc.Encode(c); err != nil {
				return err
			}
			return enc.Close()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init <file>",
		Short: "Write a config file holding the default settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil {
				return fmt.Errorf("%s already exists", args[0])
			}
			c, err := config.Default()
			if err != nil {
				return err
			}
			if err := c.Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %s\n", args[0])
			return nil
		},
	})
	return cmd
}
