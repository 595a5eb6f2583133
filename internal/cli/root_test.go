package cli

import "testing"

func TestRootCommandRegistersAllSubcommands(t *testing.T) {
	want := []string{"server", "client", "doctor", "version"}

	for _, name := range want {
		found := false

		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true

				break
			}
		}

		if !found {
			t.Errorf("expected subcommand %q to be registered", name)
		}
	}
}
