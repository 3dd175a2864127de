package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	typeInt32  = 5
	typeString = 9
	labelOpt   = 1
)

func writeFDSet(t *testing.T) string {
	t.Helper()
	fields := [][]byte{
		buildField("name", 1, typeString, labelOpt),
		buildField("count", 2, typeInt32, labelOpt),
	}
	file := buildFile("t.proto", "p", "proto3", [][]byte{buildMessage("M", fields)})
	fds := buildFileDescriptorSet(file)

	dir := t.TempDir()
	path := filepath.Join(dir, "t.fds")
	require.NoError(t, os.WriteFile(path, fds, 0o644))
	return path
}

func TestEncodeThenDecodeRoundtrip(t *testing.T) {
	fdsPath := writeFDSet(t)

	encodeCmd := newRootCommand()
	var encodeOut bytes.Buffer
	encodeCmd.SetOut(&encodeOut)
	encodeCmd.SetIn(strings.NewReader(`{"name":"hi","count":3}`))
	encodeCmd.SetArgs([]string{"encode", "--file-descriptor-set", fdsPath, "--message", "p.M"})
	require.NoError(t, encodeCmd.Execute())

	hexBytes := strings.TrimSpace(encodeOut.String())
	require.NotEmpty(t, hexBytes)

	decodeCmd := newRootCommand()
	var decodeOut bytes.Buffer
	decodeCmd.SetOut(&decodeOut)
	decodeCmd.SetArgs([]string{"decode", "--file-descriptor-set", fdsPath, "--message", "p.M", hexBytes})
	require.NoError(t, decodeCmd.Execute())

	require.JSONEq(t, `{"name":"hi","count":3}`, strings.TrimSpace(decodeOut.String()))
}

func TestDescribePrintsFieldsAndSlots(t *testing.T) {
	fdsPath := writeFDSet(t)

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"describe", "--file-descriptor-set", fdsPath})
	require.NoError(t, cmd.Execute())

	text := out.String()
	require.Contains(t, text, "message p.M")
	require.Contains(t, text, "field name #1")
	require.Contains(t, text, "field count #2")
}

func TestDecodeRejectsUnknownMessage(t *testing.T) {
	fdsPath := writeFDSet(t)

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"decode", "--file-descriptor-set", fdsPath, "--message", "p.DoesNotExist", ""})
	require.Error(t, cmd.Execute())
}
