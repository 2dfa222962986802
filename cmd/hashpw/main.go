// Command hashpw produces the bcrypt hash expected in ADMIN_PASSWORD_HASH.
package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/order-service/internal/auth"
)

func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.Parse()

	password := flag.Arg(0)
	if password == "" {
		fmt.Fprintln(os.Stderr, "usage: hashpw [-cost N] <password>")
		os.Exit(2)
	}

	hash, err := auth.HashPassword(password, *cost)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashing failed:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
