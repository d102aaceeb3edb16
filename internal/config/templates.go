package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	KindWirectl = "wirectl"
	KindSchema  = "schema"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindWirectl:
		return wirectlTemplate, nil
	case KindSchema:
		return schemaTemplate, nil
	default:
		return "", fmt.Errorf("unknown template kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("file already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const wirectlTemplate = `[limits]
max_size = 16777216
max_list = 65536
max_depth = 64

[log]
level = "info"
no_color = false
timestamp = true

[schema]
path = "schema.toml"
root = "point"
`

const schemaTemplate = `[[struct]]
name = "point"
  [[struct.field]]
  name = "x"
  index = 0
  type = "int64"
  [[struct.field]]
  name = "y"
  index = 1
  type = "int64"
  [[struct.field]]
  name = "label"
  index = 2
  type = "text"
  [[struct.field]]
  name = "tags"
  index = 3
  type = "text"
  list = true
  [[struct.field]]
  name = "seen"
  index = 4
  type = "timestamp"
  [[struct.field]]
  name = "next"
  index = 5
  type = "point"
`
