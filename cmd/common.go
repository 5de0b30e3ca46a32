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
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/valpere/subtran/internal/adapter"
	"github.com/valpere/subtran/internal/arbiter"
	"github.com/valpere/subtran/internal/collector"
	"github.com/valpere/subtran/internal/critic"
	"github.com/valpere/subtran/internal/detector"
	"github.com/valpere/subtran/internal/llm"
	"github.com/valpere/subtran/internal/pipeline"
)

// defaultDBPath places the translation memory next to the user config.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "subtran.db"
	}
	return filepath.Join(home, ".subtran.db")
}

// serviceConfigFor builds the typed, pre-validated options record for one
// adapter from the resolved configuration. This happens exactly once per
// adapter; the core never re-reads configuration per call.
func serviceConfigFor(name string) adapter.ServiceConfig {
	sub := viper.Sub("adapters." + name)
	if sub == nil {
		return adapter.ServiceConfig{}
	}
	var cfg adapter.ServiceConfig
	if err := sub.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration for adapter %s: %v\n", name, err)
		return adapter.ServiceConfig{}
	}
	return cfg
}

// buildAdapters constructs the enabled adapters in the given order.
func buildAdapters(names []string) ([]adapter.TranslationService, error) {
	var list []adapter.TranslationService
	for _, name := range names {
		cfg := serviceConfigFor(name)
		switch name {
		case "google":
			list = append(list, adapter.NewGoogleService(cfg))
		case "mymemory":
			list = append(list, adapter.NewMyMemoryService(cfg))
		case "ollama":
			list = append(list, adapter.NewOllamaService(cfg))
		case "openai":
			list = append(list, adapter.NewOpenAIService(cfg))
		case "openrouter":
			list = append(list, adapter.NewOpenRouterService(cfg))
		default:
			fmt.Fprintf(os.Stderr, "Unknown adapter: %s, skipping\n", name)
		}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no valid adapters configured")
	}
	return list, nil
}

// buildLLMClient constructs the prompt-completion backend for the arbiter
// or the critic. kind selects between the generate-style Ollama client and
// the chat-style OpenAI client.
func buildLLMClient(kind, model, baseURL, apiKey string) (llm.Client, error) {
	switch kind {
	case "ollama", "":
		return llm.NewOllamaClient(model, baseURL, 120*time.Second), nil
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("openai backend requires an API key")
		}
		return llm.NewOpenAIClient(apiKey, model, baseURL, 1024), nil
	default:
		return nil, fmt.Errorf("unknown LLM backend: %s", kind)
	}
}

// pipelineOptions gathers the flag values shared by translate and subtitle.
type pipelineOptions struct {
	services         []string
	priority         []string
	useArbiter       bool
	arbiterBackend   string
	arbiterModel     string
	arbiterURL       string
	arbiterKey       string
	trustedAdapter   string
	conservativeness int
	useCritic        bool
	criticBackend    string
	criticModel      string
	criticURL        string
	criticKey        string
	checkLanguage    bool
	timeout          time.Duration
	maxRetries       int
	rateLimit        float64
}

// buildPipeline wires the whole resolution pipeline from CLI options.
func buildPipeline(opts pipelineOptions) (*pipeline.Pipeline, error) {
	adapters, err := buildAdapters(opts.services)
	if err != nil {
		return nil, err
	}

	retry := adapter.DefaultRetryConfig()
	if opts.maxRetries > 0 {
		retry.MaxRetries = opts.maxRetries
	}
	if opts.rateLimit > 0 {
		retry.Limiter = rate.NewLimiter(rate.Limit(opts.rateLimit), 1)
	}

	col := collector.New(adapters, collector.Config{
		Timeout: opts.timeout,
		Retry:   retry,
	})

	var arb *arbiter.Arbiter
	if opts.useArbiter {
		client, err := buildLLMClient(opts.arbiterBackend, opts.arbiterModel, opts.arbiterURL, opts.arbiterKey)
		if err != nil {
			return nil, fmt.Errorf("arbiter: %w", err)
		}
		arb = arbiter.New(client, arbiter.Options{
			Conservativeness: opts.conservativeness,
			TrustedAdapter:   opts.trustedAdapter,
		})
	}

	var crit *critic.Critic
	if opts.useCritic {
		client, err := buildLLMClient(opts.criticBackend, opts.criticModel, opts.criticURL, opts.criticKey)
		if err != nil {
			return nil, fmt.Errorf("critic: %w", err)
		}
		crit = critic.New(client)
	}

	var det *detector.Detector
	if opts.checkLanguage {
		det = detector.New()
	}

	return pipeline.New(col, adapters, arb, crit, det, pipeline.Config{
		Priority:        opts.priority,
		FallbackTimeout: opts.timeout,
		Retry:           retry,
	}), nil
}
