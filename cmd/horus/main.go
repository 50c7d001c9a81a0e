package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/horusctf/horus/internal/config"
)

// DefaultConfigFile is used when neither flag nor environment specify
// config file.
const DefaultConfigFile = "horus.json"

var testCtx, testCancel = context.WithCancel(context.Background())

// getConfig reads config with filename from '--config' flag.
//
// Missing config file means default config.
func getConfig(cmd *cobra.Command) (config.Config, error) {
	flagFilename, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	if len(flagFilename) > 0 {
		return config.LoadFromFile(flagFilename)
	}
	return config.Load(os.Getenv(config.ConfigEnv), DefaultConfigFile)
}

func versionMain(cmd *cobra.Command, _ []string) {
	cmd.Println("horus version:", config.Version)
}

func newRootCmd() *cobra.Command {
	rootCmd := cobra.Command{
		Use:           "horus",
		Short:         "Console client for Horus CTF platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Run:   versionMain,
		Short: "Prints information about version",
	})
	addAuthCommands(&rootCmd)
	addStudentCommands(&rootCmd)
	rootCmd.AddCommand(newAdminCmd())
	return &rootCmd
}

// main is a main entry point.
//
// Every command authenticates with session from config or with
// configured credentials. Admin commands silently show dashboard for
// users without admin privileges.
func main() {
	ctx, cancel := signal.NotifyContext(testCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !isReported(err) {
			rootCmd.PrintErrln("Error:", err)
		}
		os.Exit(1)
	}
}
