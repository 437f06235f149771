// Command token issues operator access tokens and bcrypt password hashes for
// the jwt.operators setting.
// Usage:
//
//	go run ./cmd/token issue OPERATOR
//	go run ./cmd/token hash PASSWORD
package main

import (
	"fmt"
	"log"
	"os"

	"personashield/internal/config"
	"personashield/internal/service"
)

const usage = "Usage: token [issue OPERATOR|hash PASSWORD]"

func main() {
	if len(os.Args) < 3 {
		fmt.Println(usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "issue":
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		tok, err := service.NewAuthService(cfg.JWT).IssueToken(os.Args[2])
		if err != nil {
			log.Fatalf("failed to issue token: %v", err)
		}
		fmt.Println(tok.AccessToken)
		log.Printf("token for %s expires at %s", os.Args[2], tok.ExpiresAt.Format("2006-01-02 15:04:05 MST"))

	case "hash":
		hash, err := service.HashPassword(os.Args[2])
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}
		fmt.Println(hash)

	default:
		fmt.Printf("unknown command: %s\n", os.Args[1])
		fmt.Println(usage)
		os.Exit(1)
	}
}
