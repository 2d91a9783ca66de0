package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"lpr-service/internal/config"
	"lpr-service/internal/logger"
)

var (
	cfg *config.Config
	log zerolog.Logger
)

var RootCmd = &cobra.Command{
	Use:   "lpr",
	Short: "Brazilian license plate recognition",
	Long: `Reads frames from a video file or webcam, recognises Mercosul and legacy
Brazilian plates (including two-line motorcycle plates), records each plate
once per cooldown window and serves the detection history over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("pretty") {
			loaded.Log.Pretty, _ = cmd.Flags().GetBool("pretty")
		}

		cfg = loaded
		log = logger.New(cfg.Log.Level, cfg.Log.Pretty)
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().String("config", os.Getenv("LPR_CONFIG"), "Path to a YAML config file")
	RootCmd.PersistentFlags().String("log-level", "info", "The logging level for the command")
	RootCmd.PersistentFlags().Bool("pretty", false, "Human readable console logs")
}
