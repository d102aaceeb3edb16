package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/danmuck/wirecodec/internal/observability"
	"github.com/danmuck/wirecodec/internal/protocol"
	"github.com/danmuck/wirecodec/internal/protocol/schema"
	"github.com/danmuck/wirecodec/internal/transcode"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newDecodeCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "decode [files...]",
		Short: "Decode binary messages to JSON or CBOR",
		Long: `Decodes one message per file (or one from stdin when no file is given).
Files are decoded concurrently; output keeps argument order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := transcode.ParseFormat(format)
			if err != nil {
				return err
			}
			desc, err := a.root()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				input, err := readInput(cmd, nil)
				if err != nil {
					return err
				}
				out, err := a.decodeOne(input, desc, f)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}

			results, err := a.decodeFiles(cmd.Context(), args, desc, f)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, out := range results {
				if _, err := w.Write(out); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(transcode.FormatJSON), "output format: json|cbor")
	return cmd
}

func (a *app) decodeFiles(ctx context.Context, paths []string, desc *schema.Struct, f transcode.Format) ([][]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([][]byte, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			out, err := a.decodeOne(data, desc, f)
			if err != nil {
				return errors.Wrapf(err, "decode %s", path)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *app) decodeOne(data []byte, desc *schema.Struct, f transcode.Format) ([]byte, error) {
	if a.hex {
		raw, err := hex.DecodeString(string(bytes.TrimSpace(data)))
		if err != nil {
			return nil, errors.Wrap(err, "hex input")
		}
		data = raw
	}

	start := time.Now()
	m, err := protocol.Unmarshal(data, desc, a.limits())
	observability.RecordUnmarshal(desc.Name(), len(data), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	out, err := transcode.Encode(m, f)
	if err != nil {
		return nil, err
	}
	if f == transcode.FormatJSON {
		out = append(out, '\n')
	}
	return out, nil
}
