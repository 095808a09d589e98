// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/munhwamap/munhwamap/seoul"
)

const databaseFile = "munhwamap.duckdb"

func openDatabase() (*sql.DB, error) {
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", filepath.Join(dbPath, databaseFile))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}

func newSeoulClient() (*seoul.Client, error) {
	return seoul.NewClient(&seoul.ClientOptions{
		APIKey:              os.Getenv("SEOUL_OPENAPI_KEY"),
		UserAgent:           fmt.Sprintf("munhwamap/%s (+https://github.com/munhwamap/munhwamap)", Version),
		EnableHTTPTrace:     fetchHTTPTrace,
		EnableHTTPBodyTrace: fetchHTTPBodyTrace,
	})
}

var (
	fetchPageSize      int
	fetchMaxRows       int
	fetchStopBefore    string
	fetchHTTPTrace     bool
	fetchHTTPBodyTrace bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "문화행사 데이터를 페이지 단위로 수집해 적재한다",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		repo := seoul.NewEventRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}

		client, err := newSeoulClient()
		if err != nil {
			return err
		}

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(-1,
				progressbar.OptionSetDescription("Fetching events"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		events, err := client.FetchAll(ctx, seoul.FetchAllOptions{
			PageSize:   fetchPageSize,
			HardLimit:  fetchMaxRows,
			StopBefore: fetchStopBefore,
			OnPage: func(info seoul.PageInfo) {
				if bar != nil {
					_ = bar.Set(info.Total)
				}
			},
		})

		if bar != nil {
			_ = bar.Finish()
		}

		if err != nil {
			return fmt.Errorf("fetching events: %w", err)
		}

		inserted, err := repo.UpsertEvents(events)
		if err != nil {
			return fmt.Errorf("storing events: %w", err)
		}

		log.Printf(
			"Fetch phase - %d pages, %d raw rows, %d kept, %d duplicates",
			client.Metrics.Pages,
			client.Metrics.TotalRows,
			client.Metrics.Kept,
			client.Metrics.Duplicates,
		)
		log.Printf("Store phase - %d new events of %d fetched", inserted, len(events))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().IntVar(
		&fetchPageSize,
		"page-size",
		seoul.DefaultPageSize,
		"요청당 가져올 행 수",
	)
	fetchCmd.Flags().IntVar(
		&fetchMaxRows,
		"max-rows",
		seoul.DefaultHardLimit,
		"수집할 행사 수의 상한",
	)
	fetchCmd.Flags().StringVar(
		&fetchStopBefore,
		"stop-before",
		"",
		"이 날짜(YYYY-MM-DD) 이전에 끝나는 페이지가 나오면 수집을 중단",
	)
	fetchCmd.Flags().BoolVar(
		&fetchHTTPTrace,
		"http-trace",
		false,
		"HTTP 요청/응답 헤더를 로그로 남긴다",
	)
	fetchCmd.Flags().BoolVar(
		&fetchHTTPBodyTrace,
		"http-body-trace",
		false,
		"HTTP 본문까지 로그로 남긴다",
	)
}
