package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	envFile string
	Version = "0.4.0"
)

func showBanner() {
	greenColor := color.New(color.FgGreen, color.Bold)

	banner := []string{
		"╔══════════════════════════════════════════════════════════════╗",
		"║   ███╗   ███╗ ██████╗  ██████╗██╗  ██╗██████╗ ███╗   ███╗██╗   ║",
		"║   ████╗ ████║██╔═══██╗██╔════╝██║ ██╔╝██╔══██╗████╗ ████║██║   ║",
		"║   ██╔████╔██║██║   ██║██║     █████╔╝ ██║  ██║██╔████╔██║██║   ║",
		"║   ██║╚██╔╝██║██║   ██║██║     ██╔═██╗ ██║  ██║██║╚██╔╝██║██║   ║",
		"║   ██║ ╚═╝ ██║╚██████╔╝╚██████╗██║  ██╗██████╔╝██║ ╚═╝ ██║███████╗",
		"║   ╚═╝     ╚═╝ ╚═════╝  ╚═════╝╚═╝  ╚═╝╚═════╝ ╚═╝     ╚═╝╚══════╝",
		"║                                                              ║",
		"║        🧪 Reversible mock DML for real tables 🧪              ║",
		"╚══════════════════════════════════════════════════════════════╝",
	}

	for _, line := range banner {
		greenColor.Println(line)
	}

	fmt.Print("                        ")
	color.New(color.FgCyan, color.Bold).Print("Version: ")
	color.New(color.FgYellow, color.Bold).Printf("%s\n", Version)
}

var rootCmd = &cobra.Command{
	Use:   "mockdml",
	Short: "Generate reversible INSERT/UPDATE test data for an existing table",
	Long: `
mockdml populates or mutates rows of a target table for testing. Rows are
drawn from a source table or query, taken from the target itself, or
synthesized, while keeping foreign keys valid and never reusing a key
within one run.

Every run backs up the rows it touches and writes a restore script.

Database Support:
- PostgreSQL
- MySQL
- SQLite`,

	Run: func(cmd *cobra.Command, args []string) {
		showVersion, _ := cmd.Flags().GetBool("version")
		if showVersion {
			fmt.Printf("mockdml version %s\n", Version)
			os.Exit(0)
		}

		if len(args) == 0 {
			showBanner()
			fmt.Println()
			cmd.Help()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./mockdml.config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file holding the database URL (default .env)")
	rootCmd.PersistentFlags().BoolP("force", "f", false, "Skip confirmations")

	rootCmd.Flags().BoolP("version", "v", false, "Show CLI version")
}

func initConfig() {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			color.Yellow("⚠️  Could not load %s: %v", envFile, err)
		}
	} else {
		godotenv.Load(".env")
		godotenv.Load(".env.local")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("mockdml.config")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			color.Red("❌ Failed to read config: %v", err)
		}
	}
}
