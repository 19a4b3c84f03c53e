package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	storeMemory = "memory"
	storeSQLite = "sqlite"
)

// Flags holds the process-level settings. Game tunables come from
// config.FromEnv.
type Flags struct {
	bind       string
	port       int
	store      string
	dbPath     string
	exportFile string
	publicURL  string
	hostUser   string
	hostPass   string
	verbose    bool
}

func (f *Flags) validate() error {
	if f.port < 1 || f.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", f.port)
	}
	switch f.store {
	case storeMemory:
	case storeSQLite:
		if f.dbPath == "" {
			return errors.New("--db-path is required with --store=sqlite")
		}
	default:
		return fmt.Errorf("unknown store %q (want memory or sqlite)", f.store)
	}
	if (f.hostUser == "") != (f.hostPass == "") {
		return errors.New("both --host-user and --host-pass must be provided together")
	}
	return nil
}

func newCmd(flags *Flags) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PARODY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "parodyparty",
		Short:   "Server for a lyric-parody party game.",
		Args:    cobra.ExactArgs(0),
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), flags)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&flags.bind, "bind", "b", "0.0.0.0", "address to bind to (env: PARODY_BIND)")
	fs.IntVarP(&flags.port, "port", "p", 8080, "port to listen on (env: PARODY_PORT)")
	fs.StringVar(&flags.store, "store", storeMemory, "session store backend: memory or sqlite (env: PARODY_STORE)")
	fs.StringVar(&flags.dbPath, "db-path", "parodyparty.db", "sqlite database file (env: PARODY_DB_PATH)")
	fs.StringVar(&flags.exportFile, "export-file", "", "append round transcripts to this file (env: PARODY_EXPORT_FILE)")
	fs.StringVar(&flags.publicURL, "public-url", "", "address encoded in join QR codes (env: PARODY_PUBLIC_URL)")
	fs.StringVar(&flags.hostUser, "host-user", "", "basic auth user for host routes (env: PARODY_HOST_USER)")
	fs.StringVar(&flags.hostPass, "host-pass", "", "basic auth password for host routes (env: PARODY_HOST_PASS)")
	fs.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging (env: PARODY_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("parodyparty {{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
