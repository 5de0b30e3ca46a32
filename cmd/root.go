/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "0.1.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "subtran",
	Short: "Multi-source subtitle translation resolver",
	Long: `subtran translates subtitle segments by querying several independent
translation/LLM backends in parallel, reconciling their candidates through an
LLM arbiter, optionally running a quality-critic revision pass, and
guaranteeing that markup, bracketed cues and speaker labels survive the
round trip.

Supported backends: Google Translate, MyMemory, Ollama, OpenAI, OpenRouter

Use "subtran subtitle --help" for batch translation options.`,
	Version: version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.subtran.yaml)")
}

// initConfig resolves configuration once at startup: config file first, then
// SUBTRAN_* environment overrides. The pipeline core only ever sees the
// typed records built from it in common.go.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".subtran")
		}
	}

	viper.SetEnvPrefix("SUBTRAN")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
