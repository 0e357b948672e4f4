// Command wikiengine serves a federated wiki and manipulates its page store
// from the shell.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eringen/wikiengine"
)

// version is set at build time via ldflags.
var version = "dev"

// cli carries the state every subcommand shares once PersistentPreRunE has
// run.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     wikiengine.SiteConfig
	log     *logrus.Entry
}

func newRootCmd() *cobra.Command {
	c := &cli{v: newViper()}

	root := &cobra.Command{
		Use:           "wikiengine",
		Short:         "A federated wiki server and page store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.cfgFile != "" {
				if err := readConfigFile(c.v, c.cfgFile); err != nil {
					return err
				}
			}
			c.cfg = siteConfig(c.v)

			logger := logrus.New()
			logger.SetOutput(os.Stderr)
			level, err := logrus.ParseLevel(c.cfg.LogLevel)
			if err != nil {
				logger.Warnf("unknown log level %q, using info", c.cfg.LogLevel)
				level = logrus.InfoLevel
			}
			logger.SetLevel(level)
			c.log = logrus.NewEntry(logger)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (.json, .jsonc, .yaml or .toml)")
	flags.String("data-dir", "data", "base directory for pages and the recycler")
	flags.String("storage", "", "storage backend DSN (memory:, sqlite:PATH, postgres://...)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("addr", ":3000", "listen address")
	cobra.CheckErr(bindFlags(c.v, root))

	root.AddCommand(newServeCmd(c))
	root.AddCommand(newGetCmd(c))
	root.AddCommand(newPutCmd(c))
	root.AddCommand(newDeleteCmd(c))
	root.AddCommand(newRecycleCmd(c))
	root.AddCommand(newSlugsCmd(c))
	root.AddCommand(newSitemapCmd(c))
	root.AddCommand(newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.New().Error(err)
		os.Exit(1)
	}
}
