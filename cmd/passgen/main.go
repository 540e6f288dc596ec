package main

import (
	"flag"
	"fmt"

	"clinic-scheduling/internal/auth"

	"github.com/rs/zerolog/log"
)

var pass = flag.String("pass", "", "Password to encrypt")

func main() {
	flag.Parse()
	if *pass == "" {
		log.Fatal().Msg("no password was given")
	}

	passHash, err := auth.EncryptPassword(*pass)
	if err != nil {
		log.Fatal().Err(err).Msg("could not encrypt the password")
	}

	fmt.Println(passHash)
}
