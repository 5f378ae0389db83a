// Package main provides a CLI tool for generating proofshare credentials:
// requester bearer tokens, API secrets with their bcrypt hashes, and Ed25519
// envelope-signing seeds. Tokens signed with the dev key will NOT work in
// production.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	id "proofshare/pkg/domain"
	"proofshare/pkg/secrets"
)

const (
	// Dev signing key - matches config.go when SHARE_JWT_SIGNING_KEY is not set
	devSigningKey = "dev-secret-key-change-in-production"

	defaultTokenTTL = 15 * time.Minute
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	ExpiresIn string            `json:"expires_in,omitempty"`
	Claims    map[string]any    `json:"claims,omitempty"`
	Usage     map[string]string `json:"usage"`
}

type secretOutput struct {
	Secret string            `json:"secret"`
	Hash   string            `json:"hash"`
	Usage  map[string]string `json:"usage"`
}

func main() {
	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	secretCmd := flag.NewFlagSet("secret", flag.ExitOnError)
	signingCmd := flag.NewFlagSet("signing-key", flag.ExitOnError)

	tokenDID := tokenCmd.String("did", "did:example:requester", "Requester DID used as the token subject")
	tokenKey := tokenCmd.String("key", devSigningKey, "HMAC signing key (must match SHARE_JWT_SIGNING_KEY)")
	tokenTTL := tokenCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	tokenJSON := tokenCmd.Bool("json", false, "Output as JSON")

	secretJSON := secretCmd.Bool("json", false, "Output as JSON")

	signingJSON := signingCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "token":
		tokenCmd.Parse(os.Args[2:])
		generateToken(*tokenDID, *tokenKey, *tokenTTL, *tokenJSON)
	case "secret":
		secretCmd.Parse(os.Args[2:])
		generateSecret(*secretJSON)
	case "signing-key":
		signingCmd.Parse(os.Args[2:])
		generateSigningSeed(*signingJSON)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`keygen - Generate proofshare credentials

WARNING: Tokens signed with the dev key will NOT work in production.
         Only use for local development and testing.

Usage:
  keygen <command> [flags]

Commands:
  token        Generate a requester bearer token (JWT)
  secret       Generate an API secret plus its bcrypt hash
  signing-key  Generate an Ed25519 envelope-signing seed

Examples:
  # Generate a bearer token for a requester
  keygen token -did "did:web:verifier.example.com"

  # Generate a token with a custom TTL
  keygen token -ttl 1h

  # Generate an API secret and the hash to store in SHARE_API_SECRET_HASH
  keygen secret

  # Generate a seed for SHARE_SIGNING_KEY
  keygen signing-key

  # Output as JSON
  keygen token -json

Use "keygen <command> -h" for more information about a command.`)
}

func generateToken(didInput, signingKey string, ttl time.Duration, jsonOutput bool) {
	did, err := id.ParseDID(didInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid DID: %s\n", didInput)
		os.Exit(1)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": did.String(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			Type:      "bearer_token",
			ExpiresIn: ttl.String(),
			Claims: map[string]any{
				"sub": did.String(),
			},
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
		return
	}

	fmt.Println("Requester Bearer Token (JWT)")
	fmt.Println("============================")
	fmt.Printf("Subject:    %s\n", did)
	fmt.Printf("Expires In: %s\n", ttl)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/share/sessions")
}

func generateSecret(jsonOutput bool) {
	secret, err := secrets.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating secret: %v\n", err)
		os.Exit(1)
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing secret: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(secretOutput{
			Secret: secret,
			Hash:   hash,
			Usage: map[string]string{
				"env": "SHARE_API_SECRET_HASH=<hash>",
			},
		})
		return
	}

	fmt.Println("API Secret")
	fmt.Println("==========")
	fmt.Printf("Secret: %s\n", secret)
	fmt.Printf("Hash:   %s\n", hash)
	fmt.Println()
	fmt.Println("Store the hash in SHARE_API_SECRET_HASH; hand the secret to the requester.")
}

func generateSigningSeed(jsonOutput bool) {
	seed, err := secrets.GenerateSigningSeed()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating signing seed: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(map[string]string{
			"seed":  seed,
			"usage": "SHARE_SIGNING_KEY=<seed> SHARE_ENABLE_SIGNING=true",
		})
		return
	}

	fmt.Println("Envelope Signing Seed (Ed25519)")
	fmt.Println("===============================")
	fmt.Printf("Seed: %s\n", seed)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  SHARE_ENABLE_SIGNING=true SHARE_SIGNING_KEY=" + seed)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
