package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ryanboscobanze/speech-companion/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	Long: `List every device with at least one input channel. The index is the
value for audio.device_id in the configuration file; -1 uses the system
default input.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()

		devices, err := audio.ListDevices()
		if err != nil {
			return err
		}

		if len(devices) == 0 {
			fmt.Println("No input devices found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DEVICE\tCHANNELS\tSAMPLE RATE")
		for _, d := range devices {
			fmt.Fprintf(w, "%s\t%d\t%.0f\n", d.Label(), d.MaxInputChannels, d.DefaultSampleRate)
		}
		return w.Flush()
	},
}
