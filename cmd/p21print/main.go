package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"p21print/internal/logger"
)

var version = "dev"

var verbose bool

func main() {
	// Optional .env with P21_DEVICE / P21_DENSITY defaults.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "p21print",
		Short: "Print labels on a Nelko P21 thermal printer",
		Long: `p21print renders text, images or QR codes as 1-bit labels and sends
them to a Nelko P21 over its Bluetooth serial port (e.g. /dev/rfcomm0).

The printer must already be paired and bound to a device node by the
operating system; see "p21print ports" for candidates.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return logger.Setup(verbose)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		textCmd(),
		imageCmd(),
		qrCmd(),
		statusCmd(),
		portsCmd(),
	)

	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// envString returns an environment override or the fallback.
func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt returns a numeric environment override or the fallback.
func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
