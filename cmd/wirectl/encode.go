package main

import (
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/danmuck/wirecodec/internal/observability"
	"github.com/danmuck/wirecodec/internal/protocol"
	"github.com/danmuck/wirecodec/internal/transcode"
	"github.com/spf13/cobra"
)

func newEncodeCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "encode [file]",
		Short: "Encode a JSON or CBOR document as a binary message",
		Long: `Reads one document (from file, or stdin when omitted) shaped like the
struct kind's fields and writes its binary encoding to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := transcode.ParseFormat(format)
			if err != nil {
				return err
			}
			desc, err := a.root()
			if err != nil {
				return err
			}
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			m, err := transcode.Decode(input, desc, f)
			if err != nil {
				return err
			}

			start := time.Now()
			out, err := protocol.Marshal(m, a.limits())
			observability.RecordMarshal(desc.Name(), len(out), time.Since(start), err)
			if err != nil {
				return err
			}
			logger := observability.Logger("encode")
			logger.Debug().
				Str("struct", desc.Name()).
				Int("bytes", len(out)).
				Msg("message encoded")

			w := cmd.OutOrStdout()
			if a.hex {
				_, err = io.WriteString(w, hex.EncodeToString(out)+"\n")
				return err
			}
			_, err = w.Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(transcode.FormatJSON), "input format: json|cbor")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return data, errors.Wrap(err, "read stdin")
	}
	data, err := os.ReadFile(args[0])
	return data, errors.Wrapf(err, "read %s", args[0])
}
