package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/skyline93/dope/internal/config"
	"github.com/spf13/cobra"
)

var version = "0.3.0"

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "dope",
	Short: "Store key/value pairs in a hash table file",
	Long: `
dope keeps string key/value pairs in a hash table which is persisted to a CSV
file between invocations. The file can optionally be compressed and encrypted.
`,
	Version:           version,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd, globalOptions.ConfigFile)
		if err != nil {
			return err
		}
		globalOptions.Config = cfg
		globalOptions.stdout = cmd.OutOrStdout()

		if cfg.Debug {
			log.SetLevel(log.DebugLevel)
		}
		log.Debugf("using table %v", cfg.File)
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(0)
	},
}

func init() {
	log.SetLevel(log.WarnLevel)

	f := cmdRoot.PersistentFlags()
	f.StringVarP(&globalOptions.Config.File, "file", "f", "dope.csv", "table `file` to operate on")
	f.StringVar(&globalOptions.ConfigFile, "config", "", "read settings from this YAML `file` instead of searching for dope.yaml")
	f.Uint32Var(&globalOptions.Config.Capacity, "capacity", 13, "initial number of buckets of the loaded table")
	f.StringVar(&globalOptions.Config.Compression, "compression", "off", "compression mode for saved tables (auto|off|max)")
	f.StringVar(&globalOptions.Config.PasswordFile, "password-file", "", "read the table password from `file` (default: $DOPE_PASSWORD)")
	f.DurationVar(&globalOptions.Config.LockTimeout, "lock-timeout", globalOptions.Config.LockTimeout, "how long to wait for a locked table")
	f.BoolVar(&globalOptions.Config.Debug, "debug", false, "print debug messages")
}

func main() {
	if err := cmdRoot.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
