// Command token signs a bearer token for local use against the API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"rail-booking/internal/auth"
)

func main() {
	user := flag.Int64("user", 0, "user id to embed (required)")
	staff := flag.Bool("staff", false, "grant staff access")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}
	if *user <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	tok, err := auth.Sign([]byte(secret), *user, *staff, *ttl)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	fmt.Println(tok)
}
