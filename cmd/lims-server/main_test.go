package main

import "testing"

func TestMigrateCmd_Subcommands(t *testing.T) {
	cmd := migrateCmd()
	want := map[string]bool{"up": false, "status": false, "down": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("migrate %s subcommand missing", name)
		}
	}
}

func TestMigrateDown_IsAWarningOnly(t *testing.T) {
	cmd := migrateCmd()
	for _, sub := range cmd.Commands() {
		if sub.Name() != "down" {
			continue
		}
		// Must not touch the database, so it runs without config.
		if err := sub.RunE(sub, nil); err != nil {
			t.Errorf("migrate down should only print a warning, got %v", err)
		}
		return
	}
	t.Fatal("down subcommand missing")
}

func TestReportCmd_RejectsUnknownMeasure(t *testing.T) {
	cmd := reportCmd()
	if err := cmd.RunE(cmd, []string{"no-such-measure"}); err == nil {
		t.Error("expected error for unknown measure")
	}
}
