package commands

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/jacobtread/rme3/internal/bytesize"
	"github.com/jacobtread/rme3/internal/cli/output"
	"github.com/jacobtread/rme3/internal/protocol/packet"
	"github.com/jacobtread/rme3/internal/protocol/tdf"
	"github.com/spf13/cobra"
)

var (
	decodeHex      bool
	decodeOutput   string
	decodeMaxSize  string
	decodeMaxDepth int
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file|-]",
	Short: "Decode captured Blaze packets",
	Long: `Decode one or more framed Blaze packets and print their headers and
TDF content.

Input is read from the named file, or from stdin when the argument is "-" or
omitted. With --hex the input is hex text (whitespace, "0x" prefixes and
":" separators are ignored) instead of raw bytes.

A packet whose content fails to decode is reported and decoding continues
with the next one; a broken frame stops decoding.

Examples:
  # Decode a raw capture
  rme3 decode capture.bin

  # Decode a hex dump from the clipboard
  pbpaste | rme3 decode --hex

  # Emit JSON for further processing
  rme3 decode capture.bin --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().BoolVar(&decodeHex, "hex", false, "Input is hex text rather than raw bytes")
	decodeCmd.Flags().StringVarP(&decodeOutput, "output", "o", "table", "Output format (table|json|yaml)")
	decodeCmd.Flags().StringVar(&decodeMaxSize, "max-size", "16Mi", "Largest packet content accepted")
	decodeCmd.Flags().IntVar(&decodeMaxDepth, "max-depth", tdf.DefaultMaxDepth, "Deepest nesting accepted")
}

// DecodedPacket is one packet of decode output.
type DecodedPacket struct {
	Component   string      `json:"component" yaml:"component"`
	Command     string      `json:"command" yaml:"command"`
	Error       uint16      `json:"error" yaml:"error"`
	QType       string      `json:"qtype" yaml:"qtype"`
	Kind        string      `json:"kind" yaml:"kind"`
	ID          uint16      `json:"id" yaml:"id"`
	Length      int         `json:"length" yaml:"length"`
	Content     []tdf.Entry `json:"content,omitempty" yaml:"content,omitempty"`
	DecodeError string      `json:"decode_error,omitempty" yaml:"decode_error,omitempty"`

	fields []tdf.Labeled
}

// DecodeResult is the decode output for a whole input.
type DecodeResult []DecodedPacket

// RenderText implements output.Document.
func (r DecodeResult) RenderText(w io.Writer) error {
	for i, p := range r {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintf(w, "Packet #%d\n", i+1)
		err := output.KeyValueTable(w, [][2]string{
			{"Component", p.Component},
			{"Command", p.Command},
			{"Error", fmt.Sprintf("0x%04x", p.Error)},
			{"QType", p.QType + " (" + p.Kind + ")"},
			{"ID", fmt.Sprintf("%d", p.ID)},
			{"Length", fmt.Sprintf("%d", p.Length)},
		})
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(w)
		switch {
		case p.DecodeError != "":
			_, _ = fmt.Fprintf(w, "decode failed: %s\n", p.DecodeError)
		case len(p.fields) == 0:
			_, _ = fmt.Fprintln(w, "(empty)")
		default:
			_, _ = io.WriteString(w, tdf.Format(p.fields))
		}
	}
	return nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(decodeOutput)
	if err != nil {
		return err
	}
	maxSize, err := bytesize.ParseByteSize(decodeMaxSize)
	if err != nil {
		return fmt.Errorf("invalid --max-size: %w", err)
	}
	if maxSize.Uint64() > packet.MaxContentLength {
		maxSize = bytesize.ByteSize(packet.MaxContentLength)
	}

	in, name, err := openDecodeInput(cmd, args)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if decodeHex {
		if data, err = parseHex(data); err != nil {
			return err
		}
	}

	result, err := decodePackets(data, uint32(maxSize.Uint64()), tdf.WithMaxDepth(decodeMaxDepth))
	if len(result) > 0 {
		if perr := output.NewPrinter(cmd.OutOrStdout(), format).Print(result); perr != nil {
			return perr
		}
	}
	if err != nil {
		return fmt.Errorf("%s: packet #%d: %w", name, len(result)+1, err)
	}
	if len(result) == 0 {
		return fmt.Errorf("%s: no packets found", name)
	}
	return nil
}

func openDecodeInput(cmd *cobra.Command, args []string) (io.ReadCloser, string, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), "stdin", nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("failed to open input: %w", err)
	}
	return f, args[0], nil
}

// parseHex accepts hex dumps as commonly copied from packet captures.
func parseHex(text []byte) ([]byte, error) {
	s := strings.ReplaceAll(string(text), "0x", "")
	s = strings.ReplaceAll(s, "0X", "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ':' || r == ',' {
			return -1
		}
		return r
	}, s)

	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}

// decodePackets reads framed packets from data until it is exhausted. The
// packets decoded before a framing error are returned with the error.
func decodePackets(data []byte, maxContent uint32, opts ...tdf.Option) (DecodeResult, error) {
	r := bytes.NewReader(data)
	var result DecodeResult

	for {
		p, err := packet.Read(r, maxContent)
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return result, err
		}

		d := DecodedPacket{
			Component: fmt.Sprintf("0x%04x", p.Component),
			Command:   fmt.Sprintf("0x%04x", p.Command),
			Error:     p.Error,
			QType:     fmt.Sprintf("0x%04x", p.QType),
			Kind:      kindName(p.Kind()),
			ID:        p.ID,
			Length:    len(p.Content),
		}

		fields, err := p.Decode(opts...)
		if err != nil {
			d.DecodeError = err.Error()
		} else {
			d.fields = fields
			d.Content = tdf.NativeFields(fields)
		}
		result = append(result, d)
	}
}

func kindName(kind uint16) string {
	switch kind {
	case packet.QTypeMessage:
		return "message"
	case packet.QTypeReply:
		return "reply"
	case packet.QTypeNotify:
		return "notify"
	case packet.QTypeErrorReply:
		return "error_reply"
	default:
		return fmt.Sprintf("0x%04x", kind)
	}
}
