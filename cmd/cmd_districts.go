// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/munhwamap/munhwamap/geo"
)

var districtsCmd = &cobra.Command{
	Use:   "districts",
	Short: "지원하는 자치구와 중심 좌표를 나열한다",
	RunE: func(_ *cobra.Command, _ []string) error {
		a, b := strings.Repeat("─", 10), strings.Repeat("─", 22)
		fmt.Println("서울특별시 자치구:")
		fmt.Printf("╭─%-10s─┬─%-22s╮\n", a, b)
		fmt.Printf("│ %-10s │ %-22s│\n", "자치구", "중심 좌표")
		fmt.Printf("├─%-10s─┼─%-22s┤\n", a, b)

		for _, name := range geo.DistrictNames() {
			p, _ := geo.DistrictCentroid(name)
			fmt.Printf("│ %-10s │ %9.4f, %9.4f  │\n", name, p.Lat, p.Lng)
		}

		fmt.Printf("╰─%-10s─┴─%-22s╯\n", a, b)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(districtsCmd)
}
