package main

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/danmuck/wirecodec/internal/config"
	"github.com/danmuck/wirecodec/internal/logging"
	"github.com/danmuck/wirecodec/internal/observability"
	"github.com/danmuck/wirecodec/internal/protocol"
	"github.com/danmuck/wirecodec/internal/protocol/schema"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app holds the state shared by every subcommand of one invocation.
type app struct {
	configPath  string
	schemaPath  string
	structName  string
	hex         bool
	showMetrics bool

	cfg config.Config
	set *schema.Set
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Default()}
	root := &cobra.Command{
		Use:          "wirectl",
		Short:        "Encode, decode and inspect tagged binary messages",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if !a.showMetrics {
				return nil
			}
			return a.logMetrics()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default ./"+config.DefaultPath+" when present)")
	flags.StringVarP(&a.schemaPath, "schema", "s", "", "schema file, overrides [schema].path")
	flags.StringVarP(&a.structName, "struct", "t", "", "struct kind, overrides [schema].root")
	flags.BoolVar(&a.hex, "hex", false, "read and write encoded messages as hex text")
	flags.BoolVar(&a.showMetrics, "metrics", false, "log codec counters when the command finishes")

	root.AddCommand(
		newEncodeCmd(a),
		newDecodeCmd(a),
		newSchemaCmd(a),
		newInitCmd(),
	)
	return root
}

// loadConfig reads the config file and points the global logger at logOut.
func (a *app) loadConfig(logOut io.Writer) error {
	path := a.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		}
	}
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	logCfg := a.cfg.Log.Logging(logging.ProfileRuntime)
	logCfg.Out = logOut
	logging.ApplyWithEnv(logCfg)
	log.Debug().Str("config", path).Interface("limits", a.cfg.Limits).Msg("wirectl config loaded")
	return nil
}

func (a *app) limits() protocol.Limits {
	return a.cfg.Limits.CodecLimits()
}

func (a *app) schemaSet() (*schema.Set, error) {
	if a.set != nil {
		return a.set, nil
	}
	path := strings.TrimSpace(a.schemaPath)
	if path == "" {
		path = a.cfg.Schema.Path
	}
	if path == "" {
		return nil, errors.New("no schema file: pass --schema or set [schema].path")
	}
	set, err := schema.LoadFile(path)
	if err != nil {
		return nil, err
	}
	a.set = set
	return set, nil
}

// root resolves the struct kind a command works on.
func (a *app) root() (*schema.Struct, error) {
	set, err := a.schemaSet()
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(a.structName)
	if name == "" {
		name = a.cfg.Schema.Root
	}
	if name == "" {
		names := set.Names()
		if len(names) != 1 {
			return nil, errors.Newf("schema defines %d structs; pass --struct", len(names))
		}
		name = names[0]
	}
	desc, ok := set.Lookup(name)
	if !ok {
		return nil, errors.Newf("schema has no struct %q", name)
	}
	return desc, nil
}

func (a *app) logMetrics() error {
	samples, err := observability.CounterSamples()
	if err != nil {
		return err
	}
	logger := observability.Logger("metrics")
	for _, s := range samples {
		if !strings.HasPrefix(s.Name, "wirecodec_") {
			continue
		}
		logger.Info().
			Str("metric", s.Name).
			Str("op", s.Labels["op"]).
			Str("struct", s.Labels["struct"]).
			Str("result", s.Labels["result"]).
			Float64("value", s.Value).
			Msg("counter")
	}
	return nil
}
