package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"p21print/internal/transport"
)

func statusCmd() *cobra.Command {
	var (
		device  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query the printer's status and battery level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tr, err := transport.Open(device)
			if err != nil {
				return err
			}
			defer tr.Close()

			ack, err := tr.QueryStatus(timeout)
			if err != nil {
				return err
			}
			fmt.Printf("printer ready, battery %d%%\n", ack.Battery)
			return nil
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", envString("P21_DEVICE", "/dev/rfcomm0"), "serial device the printer is bound to")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "response timeout")
	return cmd
}

func portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List candidate serial devices",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			ports, err := transport.ListPorts()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Println("no serial ports found (is the printer bound to an rfcomm device?)")
				return nil
			}
			for _, p := range ports {
				fmt.Println(p)
			}
			return nil
		},
	}
}
