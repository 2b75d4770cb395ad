//go:build ignore

// This script generates a bearer token for a devchain gateway started with jwt_secret.
// Run with: go run scripts/generate-jwt.go -secret <jwt_secret>

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/satoshispalace/contest-harness/pkg/gateway"
)

func main() {
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "HS256 secret shared with the gateway")
	subject := flag.String("sub", "harness", "Token subject")
	ttl := flag.Duration("ttl", time.Hour, "Token lifetime")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "Error: -secret or JWT_SECRET is required")
		os.Exit(1)
	}

	token, err := gateway.NewBearerToken([]byte(*secret), *subject, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Devchain Gateway Bearer Token ===")
	fmt.Println()
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Use it with:")
	fmt.Printf("  curl -H 'Authorization: Bearer %s' ...\n", token)
}
