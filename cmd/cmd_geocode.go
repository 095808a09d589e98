// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/munhwamap/munhwamap/geo"
	"github.com/munhwamap/munhwamap/seoul"
)

var (
	geocodeLimit  int
	geocodePacing time.Duration
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "좌표가 없는 행사의 장소를 지오코딩한다",
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

		cache := geo.NewSQLCache(db)
		if err := cache.CreateSchema(); err != nil {
			return fmt.Errorf("creating cache schema: %w", err)
		}

		// Without a Kakao key the resolver still works, it just goes
		// straight to district centroids.
		var searcher geo.PlaceSearcher

		kakao, err := geo.NewKakaoLocalClient(os.Getenv("KAKAO_REST_API_KEY"))
		if err != nil {
			log.Printf("Geocode - %v, falling back to district centroids", err)
		} else {
			searcher = kakao
		}

		resolver := geo.NewResolver(searcher, cache, geo.ResolverOptions{Pacing: geocodePacing})

		events, err := repo.MissingCoordinates(geocodeLimit)
		if err != nil {
			return fmt.Errorf("listing ungeocoded events: %w", err)
		}

		if len(events) == 0 {
			log.Print("Geocode - nothing to do")

			return nil
		}

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(events),
				progressbar.OptionSetDescription("Geocoding venues"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		reqs := make([]geo.Request, 0, len(events))
		for _, event := range events {
			reqs = append(reqs, geo.Request{
				Venue:    event.Venue,
				District: event.District,
				Title:    event.Title,
				Existing: event.Point,
			})
		}

		byMethod := make(map[geo.Method]int)

		resolutions, err := resolver.ResolveBatch(ctx, reqs, func(i int, res geo.Resolution) error {
			if err := repo.SaveCoordinates(events[i].ID, res.Point, string(res.Method)); err != nil {
				return fmt.Errorf("saving coordinates for %s: %w", events[i].ID, err)
			}

			byMethod[res.Method]++

			if bar != nil {
				_ = bar.Add(1)
			}

			return nil
		})

		if bar != nil {
			_ = bar.Finish()
		}

		if err != nil {
			return err
		}

		log.Printf(
			"Geocode phase - %d resolved: %d cache, %d keyword, %d address, %d district, %d fallback",
			len(resolutions),
			byMethod[geo.MethodCache],
			byMethod[geo.MethodKeyword],
			byMethod[geo.MethodAddress],
			byMethod[geo.MethodDistrict],
			byMethod[geo.MethodFallback],
		)

		return ctx.Err()
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
	geocodeCmd.Flags().IntVar(
		&geocodeLimit,
		"limit",
		0,
		"처리할 행사 수의 상한 (0은 무제한)",
	)
	geocodeCmd.Flags().DurationVar(
		&geocodePacing,
		"pacing",
		150*time.Millisecond,
		"지오코딩 요청 사이의 대기 시간",
	)
}
