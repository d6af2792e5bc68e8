package cli

import (
	"bufio"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"golang.org/x/term"
)

var (
	ErrEmptyInput       = errors.New("value required")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// PromptText writes "label: " to w and returns the next line from reader with
// surrounding whitespace removed. A last line without a newline is accepted;
// an empty answer is returned as "".
func PromptText(reader *bufio.Reader, label string, w io.Writer) (string, error) {
	if _, err := fmt.Fprintf(w, "%s: ", label); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PromptRequired is PromptText that rejects an empty answer.
func PromptRequired(reader *bufio.Reader, label string, w io.Writer) (string, error) {
	s, err := PromptText(reader, label, w)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("%s: %w", strings.ToLower(label), ErrEmptyInput)
	}
	return s, nil
}

// PromptPassword reads a password from the terminal without echo. The caller
// owns the returned slice and should wipe it after use.
func PromptPassword(w io.Writer, label string) ([]byte, error) {
	if _, err := fmt.Fprintf(w, "%s: ", label); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	if len(pw) == 0 {
		return nil, fmt.Errorf("password: %w", ErrEmptyInput)
	}
	return pw, nil
}

// PromptNewPassword asks for a password twice and returns it only when both
// entries match.
func PromptNewPassword(w io.Writer) ([]byte, error) {
	pw, err := PromptPassword(w, "Password")
	if err != nil {
		return nil, err
	}
	confirm, err := PromptPassword(w, "Repeat password")
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if subtle.ConstantTimeCompare(pw, confirm) != 1 {
		common.WipeByteArray(pw)
		return nil, ErrPasswordMismatch
	}
	return pw, nil
}
