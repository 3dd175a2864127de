package main

import (
	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/internal/status"
	"github.com/upb-go/upb/wire"
)

// fnFDSetFile is FileDescriptorSet's single field number: repeated
// FileDescriptorProto file = 1.
const fnFDSetFile = 1

// splitFileDescriptorSet walks a serialized FileDescriptorSet and returns
// the raw bytes of each embedded FileDescriptorProto, in the order they
// appear in the set (the usual protoc compiler_plugin.proto convention
// is to list dependencies before dependents, which is also what
// descriptor.SymTab.AddFile requires).
func splitFileDescriptorSet(b []byte) ([][]byte, error) {
	var files [][]byte
	for len(b) > 0 {
		num, typ, n, err := wire.ConsumeTag(b)
		if err != nil {
			return nil, err
		}
		b = b[n:]
		if num == fnFDSetFile && typ == wire.Bytes {
			v, m, err := wire.ConsumeBytes(b)
			if err != nil {
				return nil, err
			}
			files = append(files, v)
			b = b[m:]
			continue
		}
		m, err := wire.ConsumeFieldValue(typ, b, 0)
		if err != nil {
			return nil, err
		}
		b = b[m:]
	}
	return files, nil
}

// loadSymTab builds a descriptor.SymTab from a serialized FileDescriptorSet.
func loadSymTab(raw []byte) (*descriptor.SymTab, error) {
	files, err := splitFileDescriptorSet(raw)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, status.New(status.InvalidInput, "file descriptor set contains no files")
	}
	s := descriptor.NewSymTab()
	for _, f := range files {
		if _, err := s.AddFile(f); err != nil {
			return nil, err
		}
	}
	return s, nil
}
