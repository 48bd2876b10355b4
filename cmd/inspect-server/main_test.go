package main

import "testing"

func TestMigrateCmdSubcommands(t *testing.T) {
	cmd := migrateCmd()
	if cmd.Use != "migrate" {
		t.Fatalf("use = %q", cmd.Use)
	}

	want := map[string]bool{"up": false, "status": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Use]; ok {
			want[sub.Use] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestServeCmd(t *testing.T) {
	cmd := serveCmd()
	if cmd.Use != "serve" {
		t.Fatalf("use = %q", cmd.Use)
	}
	if cmd.RunE == nil {
		t.Error("serve has no run function")
	}
}
