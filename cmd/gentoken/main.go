// cmd/gentoken/main.go: prints a signed bearer token for local testing.
// Usage: go run ./cmd/gentoken -customer demo-customer
//        go run ./cmd/gentoken -staff
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"pickupshop/internal/config"
	"pickupshop/internal/middleware"
)

func main() {
	customer := flag.String("customer", "", "customer id carried by the token")
	staff := flag.Bool("staff", false, "issue a staff token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET must be set")
		os.Exit(1)
	}

	role := middleware.RoleCustomer
	if *staff {
		role = middleware.RoleStaff
	} else if *customer == "" {
		fmt.Fprintln(os.Stderr, "either -customer or -staff is required")
		os.Exit(2)
	}

	token, err := middleware.IssueToken(cfg.JWTSecret, *customer, role, time.Duration(cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
