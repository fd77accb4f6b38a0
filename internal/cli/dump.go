package cli

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dap4/internal/chunk"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	NoDMR bool
}

// DumpResult is the JSON form of a decoded response.
type DumpResult struct {
	Chunks    []ChunkInfo `json:"chunks"`
	ByteOrder string      `json:"byte_order"`
	DMR       string      `json:"dmr,omitempty"`
	Body      string      `json:"body"`
	Error     string      `json:"error,omitempty"`
}

// ChunkInfo describes one chunk header.
type ChunkInfo struct {
	Flags  string `json:"flags"`
	Length int    `json:"length"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump <response-file>",
		Short: "Decode a chunked DAP4 response",
		Long: `Decode a chunked DAP4 response written by generate.

Prints the chunk headers, the DMR and a hex dump of the data part. A
response terminated by an ERROR chunk is printed up to the error and the
command exits with status 1.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoDMR, "no-dmr", false, "the response has no DMR part")

	return cmd
}

func runDump(opts *DumpOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		return formatter.fail(ExitCommandError, &LoadError{Code: ErrCodeReadFailed, Message: err.Error()})
	}

	resp, readErr := chunk.ReadResponse(bytes.NewReader(data), !opts.NoDMR)
	var respErr *chunk.ResponseError
	if readErr != nil && !errors.As(readErr, &respErr) {
		return formatter.fail(ExitCommandError, &LoadError{Code: ErrCodeReadFailed, Message: readErr.Error()})
	}

	result := DumpResult{
		ByteOrder: byteOrderName(resp.Order),
		DMR:       resp.DMR,
		Body:      hex.EncodeToString(resp.Body),
	}
	for _, c := range resp.Chunks {
		result.Chunks = append(result.Chunks, ChunkInfo{Flags: flagNames(c.Flags), Length: len(c.Data)})
	}
	if respErr != nil {
		result.Error = respErr.Message
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else if err := writeDump(formatter, result, resp.Body); err != nil {
		return err
	}

	if respErr != nil {
		if formatter.Format != "json" {
			return formatter.fail(ExitFailure, respErr)
		}
		return WrapExitError(ExitFailure, ErrCodeResponse, respErr)
	}
	return nil
}

func writeDump(formatter *OutputFormatter, result DumpResult, body []byte) error {
	w := formatter.Writer
	fmt.Fprintf(w, "%d chunk(s), %s-endian\n\n", len(result.Chunks), result.ByteOrder)

	table := newTable(w, "#", "Flags", "Length")
	for i, c := range result.Chunks {
		if err := table.Append([]string{strconv.Itoa(i), c.Flags, strconv.Itoa(c.Length)}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if result.DMR != "" {
		fmt.Fprintf(w, "\n--- dmr\n%s\n", strings.TrimSuffix(result.DMR, "\n"))
	}
	fmt.Fprintf(w, "\n--- data (%d bytes)\n", len(body))
	_, err := fmt.Fprint(w, hex.Dump(body))
	return err
}

// flagNames renders chunk flags as "END|LITTLE_ENDIAN". A plain data chunk
// is "DATA".
func flagNames(flags byte) string {
	var names []string
	if flags&chunk.FlagEnd != 0 {
		names = append(names, "END")
	}
	if flags&chunk.FlagError != 0 {
		names = append(names, "ERROR")
	}
	if flags&chunk.FlagLittleEndian != 0 {
		names = append(names, "LITTLE_ENDIAN")
	}
	if len(names) == 0 {
		return "DATA"
	}
	return strings.Join(names, "|")
}

func byteOrderName(order binary.ByteOrder) string {
	if order == binary.LittleEndian {
		return "little"
	}
	return "big"
}
