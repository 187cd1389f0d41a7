// Command keygen encrypts a Lighter API private key into the JSON blob
// accepted by the encrypted_key_path credential field.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/avolkov/fillscope/internal/crypto"
)

func main() {
	keyHex := flag.String("key", "", "hex-encoded API private key (or set FILLSCOPE_RAW_KEY)")
	password := flag.String("password", "", "encryption password (or set FILLSCOPE_KEY_PASSWORD)")
	outPath := flag.String("out", "api_key.enc.json", "output file path")
	flag.Parse()

	key := *keyHex
	if key == "" {
		key = os.Getenv("FILLSCOPE_RAW_KEY")
	}
	pass := *password
	if pass == "" {
		pass = os.Getenv("FILLSCOPE_KEY_PASSWORD")
	}

	if key == "" || pass == "" {
		fmt.Fprintln(os.Stderr, "keygen: both a key and a password are required")
		flag.Usage()
		os.Exit(2)
	}

	blob, err := crypto.EncryptKey(key, pass)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*outPath, blob, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "keygen: write %s: %v\n", *outPath, err)
		os.Exit(1)
	}

	fmt.Printf("encrypted key written to %s\n", *outPath)
}
