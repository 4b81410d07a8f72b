// Command tokengen issues a bearer token for a user id, signed with the
// configured JWT secret. It is meant for local development and smoke tests.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/phrazzld/focus-api/internal/config"
	"github.com/phrazzld/focus-api/internal/service/auth"
)

func main() {
	userID := flag.String("user", "", "User id to place in the token subject (required)")
	secret := flag.String("secret", "", "JWT secret; defaults to FOCUS_AUTH_JWT_SECRET")
	lifetime := flag.Int("minutes", 60, "Token lifetime in minutes")
	flag.Parse()

	if *secret == "" {
		*secret = os.Getenv("FOCUS_AUTH_JWT_SECRET")
	}

	if err := issue(os.Stdout, *userID, *secret, *lifetime); err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}
}

func issue(w io.Writer, userID, secret string, minutes int) error {
	svc, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            secret,
		TokenLifetimeMinutes: minutes,
	})
	if err != nil {
		return err
	}

	token, err := svc.GenerateToken(context.Background(), userID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
