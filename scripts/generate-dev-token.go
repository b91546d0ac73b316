//go:build ignore

// Prints a signed session token for local testing against a running API.
//
//	go run scripts/generate-dev-token.go -id 1001 -name Jane -guild
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"wl-portal/internal/auth"
	"wl-portal/internal/models"
)

func main() {
	_ = godotenv.Load()

	id := flag.String("id", "", "applicant or staff id (token subject)")
	name := flag.String("name", "", "display name")
	guild := flag.Bool("guild", true, "mark the identity as a guild member")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}
	if *id == "" {
		fmt.Fprintln(os.Stderr, "-id is required")
		os.Exit(1)
	}

	token, err := auth.IssueToken(secret, os.Getenv("AUTH_ISSUER"), models.Applicant{
		ID:          *id,
		DisplayName: *name,
		InGuild:     *guild,
	}, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
