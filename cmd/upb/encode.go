package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/upb-go/upb/arena"
	"github.com/upb-go/upb/codec"
	"github.com/upb-go/upb/encoding/protojson"
	"github.com/upb-go/upb/internal/layout"
	"github.com/upb-go/upb/internal/status"
	"github.com/upb-go/upb/message"
)

type encodeFlags struct {
	fileDescriptorSet string
	message           string
}

func (f *encodeFlags) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.fileDescriptorSet, "file-descriptor-set", "", "path to a serialized FileDescriptorSet")
	fs.StringVar(&f.message, "message", "", "fully-qualified message type to encode as")
}

func newEncodeCommand() *cobra.Command {
	flags := &encodeFlags{}
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "read canonical JSON from stdin and print its wire encoding as hex",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(cmd, flags)
		},
	}
	flags.Bind(cmd.Flags())
	cmd.MarkFlagRequired("file-descriptor-set")
	cmd.MarkFlagRequired("message")
	return cmd
}

func runEncode(cmd *cobra.Command, flags *encodeFlags) error {
	fdsRaw, err := os.ReadFile(flags.fileDescriptorSet)
	if err != nil {
		return err
	}
	symtab, err := loadSymTab(fdsRaw)
	if err != nil {
		return err
	}
	md, ok := symtab.LookupMessage(flags.message)
	if !ok {
		return status.New(status.SchemaViolation, "unknown message type %q", flags.message)
	}
	factory := layout.NewFactory()
	l, err := factory.Layout(md)
	if err != nil {
		return err
	}

	jsonBytes, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return err
	}

	msg := message.New(l, arena.New())
	opts := protojson.UnmarshalOptions{Resolver: symtab, Factory: factory}
	if err := opts.Unmarshal(jsonBytes, msg); err != nil {
		return err
	}

	wireBytes, err := codec.Encode(msg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(wireBytes))
	return nil
}
