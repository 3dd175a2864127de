// Command upb is a small CLI that exercises the library end to end:
// decoding and encoding messages against a compiled FileDescriptorSet,
// and describing the layouts that set resolves to. It is a demo
// surface grounded on bufbuild-buf's cobra command-tree shape, not a
// component of the library itself.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/upb-go/upb/descriptor"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "upb",
		Short:         "inspect and convert protobuf wire/JSON payloads against a compiled descriptor set",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				l, _ := zap.NewDevelopment()
				descriptor.SetLogger(l.Sugar())
			}
		},
	}
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "log descriptor-build warnings")
	root.AddCommand(newDecodeCommand())
	root.AddCommand(newEncodeCommand())
	root.AddCommand(newDescribeCommand())
	return root
}
