package main

import (
	"fmt"
	"os"

	"storage-visual/internal/infra/config"
)

// runEncrypt prints an "enc:" value for the config file, encrypted with
// VISUAL_CONFIG_KEY.
func runEncrypt(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: visual encrypt VALUE")
	}
	passphrase := os.Getenv("VISUAL_CONFIG_KEY")
	if passphrase == "" {
		return fmt.Errorf("VISUAL_CONFIG_KEY is not set")
	}
	enc, err := config.EncryptValue(args[0], passphrase)
	if err != nil {
		return err
	}
	fmt.Println("enc:" + enc)
	return nil
}
