package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"holidayd/internal/auth"
)

var hashPasswordCmd = LeafCommand{
	Use:   "hash-password",
	Short: "Hash a password for basic_auth.password_hash (Argon2id)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHashPassword(cmd, stdinPasswordReader(cmd))
	},
}.Build()

type passwordReader func(prompt string) (string, error)

// stdinPasswordReader reads without echo from a terminal and line by line
// otherwise, so the command also works in pipes.
func stdinPasswordReader(cmd *cobra.Command) passwordReader {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		return func(prompt string) (string, error) {
			_, _ = fmt.Fprint(cmd.ErrOrStderr(), prompt)
			b, err := term.ReadPassword(fd)
			_, _ = fmt.Fprintln(cmd.ErrOrStderr())
			return string(b), err
		}
	}
	return linePasswordReader(cmd.InOrStdin())
}

func linePasswordReader(r io.Reader) passwordReader {
	br := bufio.NewReader(r)
	return func(string) (string, error) {
		line, err := br.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}

func runHashPassword(cmd *cobra.Command, read passwordReader) error {
	password, err := read("Enter password:   ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}
	confirm, err := read("Confirm password: ")
	if err != nil {
		return fmt.Errorf("read password confirmation: %w", err)
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(w, hash)
	_, _ = fmt.Fprintln(w, Silent("# config.yaml:"))
	_, _ = fmt.Fprintln(w, Silent("# basic_auth:"))
	_, _ = fmt.Fprintln(w, Silent("#   username: admin"))
	_, _ = fmt.Fprintf(w, "%s\n", Silent(fmt.Sprintf("#   password_hash: %q", hash)))
	return nil
}
