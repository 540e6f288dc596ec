package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

var (
	dir  = flag.String("dir", "", "Directory where the keys will be stored")
	bits = flag.Int("bits", 2048, "Size of the RSA key")
)

// writePEM writes the given block to the file, readable only by its owner.
func writePEM(filename string, block *pem.Block) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		log.Fatal().Err(err).Str("file", filename).Msg("could not create the key file")
	}
	if err = pem.Encode(file, block); err != nil {
		log.Fatal().Err(err).Str("file", filename).Msg("could not encode the key")
	}
	if err = file.Close(); err != nil {
		log.Fatal().Err(err).Str("file", filename).Msg("could not close the key file")
	}
}

func main() {
	flag.Parse()
	if *dir == "" {
		log.Fatal().Msg("no directory was given")
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		log.Fatal().Err(err).Msg("could not generate the key")
	}

	publicKey, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		log.Fatal().Err(err).Msg("could not marshal the public key")
	}

	writePEM(filepath.Join(*dir, "private.pem"), &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	writePEM(filepath.Join(*dir, "public.pem"), &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicKey,
	})

	log.Info().Str("dir", *dir).Msg("keys generated")
}
