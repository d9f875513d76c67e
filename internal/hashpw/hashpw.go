// Package hashpw implements the operator tool that produces stored
// password hashes for seeding auth_users by hand.
package hashpw

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/abateiq-edge/internal/common"
	"github.com/dmitrijs2005/abateiq-edge/internal/cryptox"
	"golang.org/x/term"
)

// Test seams for terminal access.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
	createHash   = cryptox.CreateStoredHash
)

var (
	ErrEmptyPassword    = errors.New("empty password")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// getPassword prints prompt to w and reads a password from the terminal
// without echo.
func getPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// readLine reads a single line, tolerating a missing trailing newline.
func readLine(reader *bufio.Reader) ([]byte, error) {
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

// Run reads a password and writes its stored hash to out. On a terminal
// the password is prompted for twice without echo; otherwise the first
// line of in is used.
func Run(in io.Reader, out, prompts io.Writer) error {
	var (
		pw  []byte
		err error
	)

	if isTerminal(int(os.Stdin.Fd())) {
		pw, err = getPassword(prompts, "Password: ")
		if err != nil {
			return err
		}
		defer common.WipeByteArray(pw)

		confirm, err := getPassword(prompts, "Repeat password: ")
		if err != nil {
			return err
		}
		defer common.WipeByteArray(confirm)

		if string(pw) != string(confirm) {
			return ErrPasswordMismatch
		}
	} else {
		pw, err = readLine(bufio.NewReader(in))
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		defer common.WipeByteArray(pw)
	}

	if len(pw) == 0 {
		return ErrEmptyPassword
	}

	hash, err := createHash(string(pw))
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
