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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/valpere/subtran/internal"
	"github.com/valpere/subtran/internal/detector"
)

var (
	translateOpts pipelineOptions

	sourceLang string
	targetLang string
	showTrace  bool
)

var translateCmd = &cobra.Command{
	Use:   "translate [text]",
	Short: "Translate one line through the resolution pipeline",
	Long: `Translate a single line of text using multiple backends in parallel,
arbitrating their candidates into one result.

Available adapters:
  - google      Google Translate (requires credentials)
  - mymemory    MyMemory (free, 5000 chars/day)
  - ollama      Ollama LLM (self-hosted)
  - openai      OpenAI-compatible chat endpoint (requires API key)
  - openrouter  OpenRouter LLM (requires API key)

Use multiple adapters: --services google,ollama,openrouter`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := args[0]
		ctx := context.Background()

		if sourceLang == "auto" {
			det := detector.New()
			if detected, ok := det.DetectISO(text); ok {
				sourceLang = detected
				fmt.Fprintf(os.Stderr, "Detected source language: %s\n", sourceLang)
			}
		}

		p, err := buildPipeline(translateOpts)
		if err != nil {
			return err
		}

		seg := internal.Segment{
			ID:         uuid.New().String(),
			SourceText: text,
			SourceLang: sourceLang,
			TargetLang: targetLang,
		}

		outcome := p.Translate(ctx, seg)
		fmt.Println(outcome.FinalText)

		if showTrace {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			if err := enc.Encode(outcome.Trace); err != nil {
				return fmt.Errorf("failed to render trace: %w", err)
			}
		}
		if outcome.Trace.HasFlag(internal.FlagFailed) {
			return fmt.Errorf("all translation backends failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)

	addPipelineFlags(translateCmd, &translateOpts)
	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "auto", "source language code")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "en", "target language code")
	translateCmd.Flags().BoolVar(&showTrace, "trace", false, "print the pipeline trace to stderr")
}

// addPipelineFlags registers the flags shared by translate and subtitle.
func addPipelineFlags(cmd *cobra.Command, opts *pipelineOptions) {
	cmd.Flags().StringSliceVar(&opts.services, "services", []string{"mymemory", "ollama"}, "adapters to query, in priority order")
	cmd.Flags().StringSliceVar(&opts.priority, "priority", nil, "fallback priority order (defaults to --services order)")
	cmd.Flags().BoolVar(&opts.useArbiter, "arbiter", false, "arbitrate candidates with an LLM")
	cmd.Flags().StringVar(&opts.arbiterBackend, "arbiter-backend", "ollama", "arbiter backend kind (ollama|openai)")
	cmd.Flags().StringVar(&opts.arbiterModel, "arbiter-model", "llama3.2", "arbiter model name")
	cmd.Flags().StringVar(&opts.arbiterURL, "arbiter-url", "", "arbiter backend base URL")
	cmd.Flags().StringVar(&opts.arbiterKey, "arbiter-key", "", "arbiter backend API key")
	cmd.Flags().StringVar(&opts.trustedAdapter, "trusted", "", "adapter treated as the high-trust candidate")
	cmd.Flags().IntVar(&opts.conservativeness, "conservativeness", 3, "arbitration policy 1 (trust) to 5 (free correction)")
	cmd.Flags().BoolVar(&opts.useCritic, "critic", false, "run the quality-critic revision pass")
	cmd.Flags().StringVar(&opts.criticBackend, "critic-backend", "ollama", "critic backend kind (ollama|openai)")
	cmd.Flags().StringVar(&opts.criticModel, "critic-model", "llama3.2", "critic model name")
	cmd.Flags().StringVar(&opts.criticURL, "critic-url", "", "critic backend base URL")
	cmd.Flags().StringVar(&opts.criticKey, "critic-key", "", "critic backend API key")
	cmd.Flags().BoolVar(&opts.checkLanguage, "check-language", false, "flag final texts not in the target language")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-adapter call timeout")
	cmd.Flags().IntVar(&opts.maxRetries, "max-retries", 3, "attempts per adapter call")
	cmd.Flags().Float64Var(&opts.rateLimit, "rate-limit", 0, "max adapter requests per second (0 = unlimited)")
}
