package main

import (
	"github.com/spf13/cobra"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultEnvFile    = ".env"
	serviceName       = "speech-companion"
	serviceVersion    = "1.0.0"
)

var (
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Real-time speech assistant",
	Long: `speech-companion records the microphone in 10 second windows, transcribes
each window with AssemblyAI or a local Whisper model, and shows every
utterance with its concepts, difficult word definitions, LLM suggestions
and recall support.

Credentials are read from the environment or the --env file:
  OPENROUTER_KEY, GROQ_KEY, GEMINI_KEY, ASSEMBLYAI_API_KEY`,
	Version:       serviceVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAssistant,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", defaultEnvFile, "Path to a .env file with API keys")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(historyCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
