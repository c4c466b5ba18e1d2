// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/scanlinkhq/scanlink/internal/config"
	"github.com/scanlinkhq/scanlink/internal/server"
	"github.com/scanlinkhq/scanlink/internal/vault"
)

func main() {
	cmd := &cli.Command{
		Name:   "scanlink",
		Usage:  "Trackable QR redirect service",
		Flags:  config.Flags(),
		Action: server.Run,
		Commands: []*cli.Command{
			{
				Name:  "genkey",
				Usage: "Generate a cache encryption key for the cache.key setting",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					key, err := vault.GenerateKey()
					if err != nil {
						return err
					}
					fmt.Println(key)
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
