package main

import (
	"flag"

	"github.com/cockroachdb/errors"
	"github.com/danmuck/wirecodec/internal/config"
	"github.com/danmuck/wirecodec/internal/logging"
	"github.com/danmuck/wirecodec/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime()

	kind := flag.String("kind", config.KindWirectl, "template kind: wirectl|schema")
	output := flag.String("output", "", "output path for the template")
	validate := flag.Bool("validate", false, "validate an existing file")
	input := flag.String("input", "", "path for validation (defaults to per-kind path)")
	force := flag.Bool("force", false, "overwrite existing file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		if err := validateFile(*kind, path); err != nil {
			log.Fatal().Err(err).Str("kind", *kind).Str("path", path).Msg("validation failed")
		}
		log.Info().Str("kind", *kind).Str("path", path).Msg("validated")
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal().Err(err).Msg("write template")
	}
	log.Info().Str("kind", *kind).Str("path", target).Msg("wrote template")
}

func validateFile(kind, path string) error {
	switch kind {
	case config.KindWirectl:
		_, err := config.Load(path)
		return err
	case config.KindSchema:
		set, err := schema.LoadFile(path)
		if err != nil {
			return err
		}
		log.Info().Strs("structs", set.Names()).Msg("schema structs")
		return nil
	default:
		return errors.Newf("unknown kind: %s", kind)
	}
}

func defaultPath(kind string) string {
	switch kind {
	case config.KindWirectl:
		return config.DefaultPath
	case config.KindSchema:
		return "schema.toml"
	}
	log.Fatal().Str("kind", kind).Msg("unknown kind")
	return ""
}
