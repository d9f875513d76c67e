package hashpw

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/abateiq-edge/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTerminal(t *testing.T, tty bool, answers ...string) {
	t.Helper()
	origRead, origTTY := readPassword, isTerminal
	t.Cleanup(func() { readPassword, isTerminal = origRead, origTTY })

	isTerminal = func(int) bool { return tty }
	readPassword = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more input")
		}
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}
}

func fastHash(t *testing.T) {
	t.Helper()
	orig := createHash
	t.Cleanup(func() { createHash = orig })
	createHash = func(pw string) (string, error) {
		return cryptox.CreateStoredHashWithIterations(pw, 1000)
	}
}

func TestRun_Pipe(t *testing.T) {
	withTerminal(t, false)
	fastHash(t)

	var out bytes.Buffer
	require.NoError(t, Run(strings.NewReader("s3cret pass\n"), &out, &bytes.Buffer{}))

	hash := strings.TrimSpace(out.String())
	assert.True(t, cryptox.VerifyPassword("s3cret pass", hash))
}

func TestRun_PipeWithoutNewline(t *testing.T) {
	withTerminal(t, false)
	fastHash(t)

	var out bytes.Buffer
	require.NoError(t, Run(strings.NewReader("abc"), &out, &bytes.Buffer{}))
	assert.True(t, cryptox.VerifyPassword("abc", strings.TrimSpace(out.String())))
}

func TestRun_EmptyInput(t *testing.T) {
	withTerminal(t, false)

	err := Run(strings.NewReader("\n"), &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrEmptyPassword)

	err = Run(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestRun_Terminal(t *testing.T) {
	withTerminal(t, true, "hunter22", "hunter22")
	fastHash(t)

	var out, prompts bytes.Buffer
	require.NoError(t, Run(strings.NewReader(""), &out, &prompts))
	assert.Contains(t, prompts.String(), "Password: ")
	assert.Contains(t, prompts.String(), "Repeat password: ")
	assert.True(t, cryptox.VerifyPassword("hunter22", strings.TrimSpace(out.String())))
}

func TestRun_TerminalMismatch(t *testing.T) {
	withTerminal(t, true, "one", "two")

	err := Run(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}
