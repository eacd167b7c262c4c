// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/ferrywire/ferrywire/internal/cli"

func main() {
	cli.Execute()
}
