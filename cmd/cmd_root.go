// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})

	// .env is optional; real environment variables win
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(
		&dbPath,
		"db-path",
		"db",
		"상태를 저장할 기본 디렉터리",
	)
}

var rootCmd = &cobra.Command{
	Use:   "munhwamap",
	Short: "서울시 문화행사 지도 데이터 파이프라인",
	Long: `
munhwamap은 서울 열린데이터광장의 문화행사 정보를 수집하고, 장소 좌표를
지오코딩해 DuckDB에 적재한 뒤 지도용 API로 제공한다.
`,
}

var dbPath string

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
