package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/internal/layout"
)

type describeFlags struct {
	fileDescriptorSet string
}

func (f *describeFlags) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.fileDescriptorSet, "file-descriptor-set", "", "path to a serialized FileDescriptorSet")
}

func newDescribeCommand() *cobra.Command {
	flags := &describeFlags{}
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "dump each file's top-level messages/enums in a FileDescriptorSet, with their compiled layouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd, flags)
		},
	}
	flags.Bind(cmd.Flags())
	cmd.MarkFlagRequired("file-descriptor-set")
	return cmd
}

func runDescribe(cmd *cobra.Command, flags *describeFlags) error {
	raw, err := os.ReadFile(flags.fileDescriptorSet)
	if err != nil {
		return err
	}
	symtab, err := loadSymTab(raw)
	if err != nil {
		return err
	}
	factory := layout.NewFactory()
	out := cmd.OutOrStdout()

	for _, file := range symtab.Files() {
		fmt.Fprintf(out, "file %s (package %s, syntax %s)\n", file.Name(), file.Package(), file.Syntax())
		for _, md := range file.Messages() {
			if err := describeMessage(out, factory, md, 1); err != nil {
				return err
			}
		}
		for _, ed := range file.Enums() {
			describeEnum(out, ed, 1)
		}
	}
	return nil
}

func describeMessage(out io.Writer, factory *layout.Factory, md *descriptor.MessageDef, indent int) error {
	l, err := factory.Layout(md)
	if err != nil {
		return err
	}
	pad := indentString(indent)
	wkt := ""
	if md.WellKnownType() != descriptor.WKTUnspecified {
		wkt = fmt.Sprintf(" [well-known: %v]", md.WellKnownType())
	}
	mapEntry := ""
	if md.IsMapEntry() {
		mapEntry = " [map entry]"
	}
	fmt.Fprintf(out, "%smessage %s%s%s (slots=%d hasbits=%d)\n", pad, md.FullName(), wkt, mapEntry, l.SlotCount, l.HasbitCount)
	for _, fl := range l.Fields {
		presence := "implicit"
		switch {
		case fl.IsOneof():
			presence = "oneof"
		case !fl.IsImplicit():
			presence = fmt.Sprintf("hasbit=%d", fl.HasbitIndex())
		}
		fmt.Fprintf(out, "%s  field %s #%d type=%v slot=%d presence=%s\n",
			pad, fl.Def.Name(), fl.Def.Number(), fl.Def.Type(), fl.SlotIndex, presence)
	}
	return nil
}

func describeEnum(out io.Writer, ed *descriptor.EnumDef, indent int) {
	pad := indentString(indent)
	fmt.Fprintf(out, "%senum %s\n", pad, ed.FullName())
	for i := 0; i < ed.Len(); i++ {
		fmt.Fprintf(out, "%s  %s = %d\n", pad, ed.ValueName(i), ed.ValueNumber(i))
	}
}

func indentString(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += "  "
	}
	return s
}
