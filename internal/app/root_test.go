package app

import (
	"testing"
)

func TestRootCommand(t *testing.T) {
	// Test that root command is properly configured
	if RootCmd.Use != "vhdm" {
		t.Errorf("expected Use to be 'vhdm', got '%s'", RootCmd.Use)
	}

	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if RootCmd.Long == "" {
		t.Error("expected Long description to be set")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	// Test that every lifecycle subcommand is registered
	commands := RootCmd.Commands()

	expectedCommands := []string{
		"create <path>",
		"attach <path>",
		"format <path>",
		"mount <path>",
		"unmount <path>",
		"detach <path>",
		"resize <path>",
		"delete <path>",
		"list",
		"history",
		"sync",
		"status",
		"watch",
		"restore [snapshot-id]",
	}
	foundCommands := make(map[string]bool)

	for _, cmd := range commands {
		foundCommands[cmd.Use] = true
	}

	for _, expected := range expectedCommands {
		if !foundCommands[expected] {
			t.Errorf("expected command '%s' to be registered", expected)
		}
	}
}

func TestRootCommandHasPersistentFlags(t *testing.T) {
	// Test that --db flag is available
	flag := RootCmd.PersistentFlags().Lookup("db")
	if flag == nil {
		t.Error("expected --db flag to be registered")
	}

	if flag != nil && flag.Usage == "" {
		t.Error("expected --db flag to have usage text")
	}

	if RootCmd.PersistentFlags().Lookup("verbose") == nil {
		t.Error("expected --verbose flag to be registered")
	}
}
