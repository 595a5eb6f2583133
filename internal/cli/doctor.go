package cli

import (
	"fmt"

	"github.com/e-grid/e-grid/internal/busipc"
	"github.com/e-grid/e-grid/internal/config"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration validity and IPC service discoverability",
	RunE: func(cmd *cobra.Command, _ []string) error {
		result := config.LoadWithValidation(configPath)

		if result.ValidationError != nil {
			cmd.Printf("configuration: INVALID (%v)\n", result.ValidationError)
		} else {
			cmd.Println("configuration: OK")
			cmd.Println(result.Config.String())
		}

		bus := busipc.NewBus(busipc.BufferSizes{
			Large:  result.Config.IPC.LargeBufferCapacity,
			Medium: result.Config.IPC.MediumBufferCapacity,
			Small:  result.Config.IPC.SmallBufferCapacity,
		}, nil)

		if bus.Discoverable() {
			cmd.Println("ipc services: all 8 fixed services constructible")

			for _, name := range busipc.AllServices {
				cmd.Printf("  - %s\n", name)
			}
		} else {
			cmd.Println("ipc services: one or more services failed to construct")
		}

		fmt.Fprintln(cmd.OutOrStdout(), "run 'e_grid server' to start the tracker, or 'e_grid client' to attach a live feed")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
