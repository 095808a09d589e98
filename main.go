// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/munhwamap/munhwamap/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
