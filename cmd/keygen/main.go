// Command keygen prints a random access-token secret and writes an Ed25519
// key pair for refresh tokens.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/gophsession/internal/server/keys"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dir := fs.String("o", ".", "output directory for the key pair")
	name := fs.String("n", "refresh", "base file name for the key pair")
	force := fs.Bool("f", false, "overwrite existing files")
	if err := fs.Parse(args); err != nil {
		return err
	}

	privPEM, pubPEM, err := keys.GenerateRefreshKeyPair()
	if err != nil {
		return err
	}

	privPath := filepath.Join(*dir, *name+".pem")
	pubPath := filepath.Join(*dir, *name+".pub.pem")

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if *force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	if err := writeFile(privPath, privPEM, flags, 0o600); err != nil {
		return err
	}
	if err := writeFile(pubPath, pubPEM, flags, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "access_token_secret: %s\n", keys.GenerateAccessSecret())
	fmt.Fprintf(stdout, "refresh_private_key: %s\n", privPath)
	fmt.Fprintf(stdout, "refresh_public_key:  %s\n", pubPath)
	return nil
}

func writeFile(path string, data []byte, flags int, perm os.FileMode) error {
	f, err := os.OpenFile(path, flags, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
