// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

// jaxd runs a bucket peer: it serves shared buckets to remote peers and
// keeps local replicas in sync.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jax-protocol/jax-fs/config"
	"github.com/jax-protocol/jax-fs/crypto"
	"github.com/jax-protocol/jax-fs/peer"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "jaxd",
		Short:         "jaxd is a peer-to-peer encrypted bucket daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (YAML)")

	loadConfig := func() (config.Config, error) {
		if configPath == "" {
			return config.DefaultConfig(), nil
		}
		return config.Load(configPath)
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the identity key and data directories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if _, err := crypto.LoadIdentity(cfg.IdentityPath); err == nil {
				return fmt.Errorf("identity already exists at %s", cfg.IdentityPath)
			}
			for _, dir := range []string{cfg.BlobStorePath, filepath.Dir(cfg.LogPath), filepath.Dir(cfg.IdentityPath)} {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			identity, err := crypto.GenerateIdentity()
			if err != nil {
				return err
			}
			if err := identity.Save(cfg.IdentityPath); err != nil {
				return err
			}
			pub := identity.Public()
			cmd.Printf("identity %x written to %s\n", pub[:], cfg.IdentityPath)
			return nil
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the peer until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := log.New("component", "jaxd")

			p, err := peer.New(cfg, logger, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := p.Start(ctx); err != nil {
				p.Stop()
				return err
			}
			for _, addr := range p.Addrs() {
				logger.Info("listening", "addr", addr)
			}
			<-ctx.Done()
			logger.Info("shutting down")
			return p.Stop()
		},
	}

	root.AddCommand(initCmd, serveCmd)
	return root
}
