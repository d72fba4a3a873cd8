// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command amqpwire dials an AMQP 0-9-1 broker and drives the wire engine
// far enough to exercise a real handshake, for manual testing and
// debugging of the engine package against a live broker.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/packetd/amqpwire/common"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "amqpwire",
	Short: "Client-side AMQP 0-9-1 wire transport engine",
}

func init() {
	info := common.GetBuildInfo()
	version := info.Version
	if version == "" {
		version = common.Version
	}
	rootCmd.Version = version

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print frames as JSON instead of a human-readable summary")
	rootCmd.SetVersionTemplate(fmt.Sprintf("amqpwire %s (%s, built %s)\n", version, info.GitHash, info.Time))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
