// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/ferrywire/ferrywire/internal/config"
	"github.com/spf13/cobra"
)

func TestApplyFlagOverridesOnlyChangedFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(serveCmd.Flags())

	if err := cmd.Flags().Set("port", "8080"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("cb", "http://consumer:3000/hook"); err != nil {
		t.Fatal(err)
	}
	serveFlags.port = 8080
	serveFlags.callback = "http://consumer:3000/hook"

	cfg := config.Config{
		WcfHost:  "backend.internal",
		WcfPort:  10086,
		HTTPHost: "127.0.0.1",
		HTTPPort: 9999,
	}
	applyFlagOverrides(cmd, &cfg)

	if cfg.HTTPPort != 8080 {
		t.Fatalf("expected port override 8080, got %d", cfg.HTTPPort)
	}
	if cfg.CallbackURL != "http://consumer:3000/hook" {
		t.Fatalf("expected callback override, got %q", cfg.CallbackURL)
	}
	if cfg.WcfHost != "backend.internal" {
		t.Fatalf("untouched wcf_host changed to %q", cfg.WcfHost)
	}
	if cfg.WcfPort != 10086 {
		t.Fatalf("untouched wcf_port changed to %d", cfg.WcfPort)
	}
	if cfg.HTTPHost != "127.0.0.1" {
		t.Fatalf("untouched http_host changed to %q", cfg.HTTPHost)
	}
}

func TestServeCommandRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	if !names["serve"] {
		t.Fatal("serve command not registered")
	}
	if !names["version"] {
		t.Fatal("version command not registered")
	}
}
