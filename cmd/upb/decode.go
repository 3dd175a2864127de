package main

import (
	"encoding/hex"
	"fmt"
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

type decodeFlags struct {
	fileDescriptorSet string
	message           string
}

func (f *decodeFlags) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.fileDescriptorSet, "file-descriptor-set", "", "path to a serialized FileDescriptorSet")
	fs.StringVar(&f.message, "message", "", "fully-qualified message type to decode as")
}

func newDecodeCommand() *cobra.Command {
	flags := &decodeFlags{}
	cmd := &cobra.Command{
		Use:   "decode <hex-bytes>",
		Short: "decode wire bytes against a compiled message layout and print canonical JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, flags, args[0])
		},
	}
	flags.Bind(cmd.Flags())
	cmd.MarkFlagRequired("file-descriptor-set")
	cmd.MarkFlagRequired("message")
	return cmd
}

func runDecode(cmd *cobra.Command, flags *decodeFlags, hexBytes string) error {
	raw, err := os.ReadFile(flags.fileDescriptorSet)
	if err != nil {
		return err
	}
	symtab, err := loadSymTab(raw)
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

	wireBytes, err := hex.DecodeString(hexBytes)
	if err != nil {
		return err
	}

	msg := message.New(l, arena.New())
	if err := codec.Decode(wireBytes, msg); err != nil {
		return err
	}

	out, err := protojson.MarshalOptions{Resolver: symtab, Factory: factory}.Marshal(msg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
