package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/coneflip/overlay-server-go/internal/util"
)

const (
	bcryptCost      = 12
	minSecretLength = 16
)

// Usage:
//
//	go run scripts/hash-secret.go <secret>   hash a secret for ADMIN_SECRET_HASH
//	go run scripts/hash-secret.go -          read the secret from stdin
//	go run scripts/hash-secret.go -generate  print a random secret and its hash
//	go run scripts/hash-secret.go -key       print a random ENCRYPTION_KEY
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: go run scripts/hash-secret.go <secret> | - | -generate | -key\n")
		os.Exit(1)
	}

	switch arg := os.Args[1]; arg {
	case "-key":
		fmt.Println(mustRandomHex())
	case "-generate":
		secret := mustRandomHex()
		fmt.Printf("ADMIN_SECRET=%s\n", secret)
		fmt.Printf("ADMIN_SECRET_HASH=%s\n", mustHash(secret))
	case "-":
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fail(fmt.Errorf("read secret: %w", err))
		}
		fmt.Println(mustHash(strings.TrimSpace(line)))
	default:
		fmt.Println(mustHash(arg))
	}
}

func mustHash(secret string) string {
	if len(secret) < minSecretLength {
		fail(fmt.Errorf("secret must be at least %d characters", minSecretLength))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		fail(err)
	}
	return string(hash)
}

// mustRandomHex returns 32 random bytes as hex, the ENCRYPTION_KEY format.
func mustRandomHex() string {
	v, err := util.GenerateToken()
	if err != nil {
		fail(err)
	}
	return v
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
