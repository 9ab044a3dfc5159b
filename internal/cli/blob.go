package cli

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/editions/internal/blobstore"
	"github.com/roach88/editions/internal/host"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
)

// BlobWriteOptions holds flags for blob write.
type BlobWriteOptions struct {
	*RootOptions
	File          string
	Hex           string
	Addresses     []string
	AddressesFile string
}

// NewBlobCommand creates the blob command group.
func NewBlobCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blob",
		Short: "Write and read content-addressed blobs",
	}
	cmd.AddCommand(newBlobWriteCommand(opts))
	cmd.AddCommand(newBlobReadCommand(opts))
	return cmd
}

func newBlobWriteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BlobWriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Store a blob and print its pointer",
		Long: `Store bytes as an immutable blob. The pointer is a CIDv1 derived from the
writer and the content, so writing the same bytes again returns the same
pointer.

Exactly one source is required. --addresses and --addresses-file store a
recipient list (one identity per line in the file) for mint-batch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			callArgs, err := opts.callArgs()
			if err != nil {
				return err
			}
			return runCall(cmd, rootOpts, host.MethodBlobWrite, ident.Zero, callArgs)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "read raw bytes from a file")
	cmd.Flags().StringVar(&opts.Hex, "hex", "", "hex-encoded bytes")
	cmd.Flags().StringSliceVar(&opts.Addresses, "addresses", nil, "recipient identities")
	cmd.Flags().StringVar(&opts.AddressesFile, "addresses-file", "", "file with one recipient identity per line")

	return cmd
}

func (o *BlobWriteOptions) callArgs() (ir.IRObject, error) {
	sources := 0
	for _, set := range []bool{o.File != "", o.Hex != "", len(o.Addresses) > 0, o.AddressesFile != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, NewExitError(ExitCommandError, "exactly one of --file, --hex, --addresses or --addresses-file is required")
	}

	switch {
	case o.File != "":
		data, err := os.ReadFile(o.File)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "read --file", err)
		}
		return ir.IRObject{"data": ir.IRString(hex.EncodeToString(data))}, nil

	case o.Hex != "":
		if _, err := host.DecodeHex(o.Hex); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --hex", err)
		}
		return ir.IRObject{"data": ir.IRString(o.Hex)}, nil
	}

	lines := o.Addresses
	if o.AddressesFile != "" {
		var err error
		if lines, err = readLines(o.AddressesFile); err != nil {
			return nil, WrapExitError(ExitCommandError, "read --addresses-file", err)
		}
	}
	addrs := make(ir.IRArray, 0, len(lines))
	for i, line := range lines {
		addr, err := parseIdentity(line)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid recipient %d", i+1), err)
		}
		addrs = append(addrs, ir.Addr(addr))
	}
	return ir.IRObject{"addresses": addrs}, nil
}

// readLines returns the non-empty lines of path, skipping # comments.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// blobView is the output of blob read.
type blobView struct {
	Pointer   string   `json:"pointer"`
	Size      int      `json:"size"`
	Offset    int      `json:"offset"`
	Data      string   `json:"data"`
	Addresses []string `json:"addresses,omitempty"`
}

func (v blobView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d bytes)", v.Pointer, v.Size)
	if v.Addresses != nil {
		for i, a := range v.Addresses {
			fmt.Fprintf(&b, "\n%6d  %s", i+v.Offset/blobstore.AddressWidth, a)
		}
		return b.String()
	}
	b.WriteString("\n")
	b.WriteString(v.Data)
	return b.String()
}

func newBlobReadCommand(opts *RootOptions) *cobra.Command {
	var (
		offset, length int
		decode         bool
	)

	cmd := &cobra.Command{
		Use:   "read <pointer>",
		Short: "Read a blob or a byte range of it",
		Long: `Read a blob by pointer. --offset and --length select a byte range; a range
past the end fails with READ_OUT_OF_BOUNDS. --addresses decodes the bytes as
a recipient list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(cmd, opts)
			ptr, err := blobstore.ParsePointer(args[0])
			if err != nil {
				return f.Fail(ExitCommandError, "INVALID_POINTER", err.Error(), nil)
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			blobs := s.host.Blobs()
			size, err := blobs.Size(ctx, ptr)
			if err != nil {
				return failFault(f, err)
			}
			if length == 0 && offset <= size {
				length = size - offset
			}
			data, err := blobs.ReadRange(ctx, ptr, offset, length)
			if err != nil {
				return failFault(f, err)
			}

			view := blobView{Pointer: ptr.String(), Size: size, Offset: offset, Data: hex.EncodeToString(data)}
			if decode {
				addrs, err := blobstore.DecodeAddresses(data)
				if err != nil {
					return failFault(f, err)
				}
				view.Addresses = make([]string, 0, len(addrs))
				for _, a := range addrs {
					view.Addresses = append(view.Addresses, a.Hex())
				}
			}
			return f.Success(view)
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "first byte to read")
	cmd.Flags().IntVar(&length, "length", 0, "bytes to read (0 = to the end)")
	cmd.Flags().BoolVar(&decode, "addresses", false, "decode as a recipient list")
	return cmd
}
