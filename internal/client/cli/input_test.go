package cli

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSimpleText(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("hello world\n"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	if err != nil || got != "hello world" {
		t.Fatalf("got %q, err=%v", got, err)
	}
	if out.String() != "Name?\n> " {
		t.Fatalf("unexpected prompt %q", out.String())
	}
}

func TestGetSimpleTextEOF(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("lastline"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	if err != nil || got != "lastline" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetSimpleTextEmptyEOF(t *testing.T) {
	in := bufio.NewReader(strings.NewReader(""))
	var out bytes.Buffer
	_, err := GetSimpleText(in, "Name?", &out)
	require.Error(t, err)
}

func TestGetPassword(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()

	readPassword = func(int) ([]byte, error) { return []byte("secret1"), nil }
	var out bytes.Buffer
	pw, err := GetPassword("Enter password", &out)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret1"), pw)
	assert.Equal(t, "Enter password: \n", out.String())

	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }
	_, err = GetPassword("Enter password", &out)
	require.Error(t, err)
}

// 1x1 PNG
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
}

func TestLoadAvatar(t *testing.T) {
	old := readFile
	defer func() { readFile = old }()

	readFile = func(string) ([]byte, error) { return tinyPNG, nil }
	f, err := LoadAvatar("/tmp/me.png")
	require.NoError(t, err)
	assert.Equal(t, "me.png", f.Name)
	assert.Equal(t, "image/png", f.ContentType)

	readFile = func(string) ([]byte, error) { return []byte("plain text"), nil }
	_, err = LoadAvatar("/tmp/notes.txt")
	assert.ErrorContains(t, err, "not an image")

	readFile = func(string) ([]byte, error) { return nil, nil }
	_, err = LoadAvatar("/tmp/empty.png")
	assert.ErrorContains(t, err, "empty")

	readFile = func(string) ([]byte, error) { return nil, os.ErrNotExist }
	_, err = LoadAvatar("/tmp/none.png")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestYes(t *testing.T) {
	assert.True(t, yes("", true))
	assert.False(t, yes("", false))
	assert.True(t, yes(" Y ", false))
	assert.True(t, yes("yes", false))
	assert.False(t, yes("no", true))
}
