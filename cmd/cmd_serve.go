// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/munhwamap/munhwamap/api"
	"github.com/munhwamap/munhwamap/profile"
	"github.com/munhwamap/munhwamap/seoul"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "지도 API 서버를 실행한다",
	RunE: func(_ *cobra.Command, _ []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		events := seoul.NewEventRepository(db)
		if err := events.CreateSchema(); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}

		profileRepo := profile.NewRepository(db)
		if err := profileRepo.CreateSchema(); err != nil {
			return fmt.Errorf("creating profile schema: %w", err)
		}

		// The calendar endpoint queries the open-data API live; it is
		// disabled when no key is configured.
		var daily api.DailyFetcher

		client, err := newSeoulClient()
		if err != nil {
			log.Printf("Serve - %v, calendar endpoint disabled", err)
		} else {
			daily = client
		}

		server := api.NewServer(events, profileRepo, daily)

		log.Printf("Serve - listening on %s", serveAddr)

		return server.Run(serveAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(
		&serveAddr,
		"addr",
		"localhost:8080",
		"리슨 주소",
	)
}
