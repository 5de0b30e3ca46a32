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
	"sync"

	"github.com/spf13/cobra"

	"github.com/valpere/subtran/internal"
	"github.com/valpere/subtran/internal/pipeline"
	"github.com/valpere/subtran/internal/store"
)

var (
	subtitleOpts pipelineOptions

	subSourceLang string
	subTargetLang string
	subDBPath     string
	subNoCache    bool
	subParallel   int
)

// segmentFile is the hand-off format from the external subtitle store: the
// language pair plus the ordered segments of one subtitle file.
type segmentFile struct {
	SourceLang string             `json:"source_lang"`
	TargetLang string             `json:"target_lang"`
	MediaHints string             `json:"media_hints,omitempty"`
	Segments   []internal.Segment `json:"segments"`
}

var subtitleCmd = &cobra.Command{
	Use:   "subtitle [files...]",
	Short: "Translate subtitle segment files through the resolution pipeline",
	Long: `Translate one or more subtitle segment files. Each file's segments are
processed strictly in source order; several files can run in parallel with
--parallel. Outcomes (final text plus the full pipeline trace) are written
next to each input as <file>.out.json.

The translation memory database is consulted before running the pipeline and
updated afterwards; --no-cache bypasses it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		var db *store.Store
		if !subNoCache && subDBPath != "" {
			var err error
			db, err = store.New(subDBPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()
		}

		p, err := buildPipeline(subtitleOpts)
		if err != nil {
			return err
		}

		jobs := make([]pipeline.FileJob, 0, len(args))
		for _, path := range args {
			segments, err := loadSegments(ctx, path, db)
			if err != nil {
				return err
			}
			jobs = append(jobs, pipeline.FileJob{Name: path, Segments: segments})
		}

		outcomes := make(map[string][]internal.TranslationOutcome, len(jobs))
		var mu sync.Mutex

		err = runJobs(ctx, p, db, jobs, func(file string, outcome internal.TranslationOutcome) error {
			mu.Lock()
			outcomes[file] = append(outcomes[file], outcome)
			mu.Unlock()
			fmt.Fprintf(os.Stderr, "%s: segment %s done (flags: %v)\n", file, outcome.SegmentID, outcome.Trace.Flags)
			return nil
		})
		if err != nil {
			return err
		}

		for _, job := range jobs {
			if err := writeOutcomes(job.Name+".out.json", outcomes[job.Name]); err != nil {
				return err
			}
		}
		return nil
	},
}

// runJobs routes each segment through the memory cache when available and
// through the pipeline otherwise, persisting traces and memory as it goes.
func runJobs(ctx context.Context, p *pipeline.Pipeline, db *store.Store, jobs []pipeline.FileJob, consume func(string, internal.TranslationOutcome) error) error {
	if db != nil {
		for j := range jobs {
			remaining := jobs[j].Segments[:0]
			for _, seg := range jobs[j].Segments {
				cached, found, err := db.GetCachedTranslation(ctx, seg.SourceText, seg.SourceLang, seg.TargetLang)
				if err != nil || !found {
					remaining = append(remaining, seg)
					continue
				}
				outcome := memoryOutcome(seg, cached)
				if err := consume(jobs[j].Name, outcome); err != nil {
					return err
				}
			}
			jobs[j].Segments = remaining
		}
	}

	return p.RunBulk(ctx, jobs, subParallel, func(file string, outcome internal.TranslationOutcome) error {
		if db != nil {
			seg := findSegment(jobs, file, outcome.SegmentID)
			if !outcome.Trace.HasFlag(internal.FlagFailed) {
				if err := db.SaveToMemory(ctx, seg.SourceText, seg.SourceLang, seg.TargetLang, outcome.FinalText, outcome.Trace.FirstPassSource); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to update translation memory: %v\n", err)
				}
			}
			if err := db.SaveTrace(ctx, seg.SourceText, outcome.Trace); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to persist trace: %v\n", err)
			}
		}
		return consume(file, outcome)
	})
}

// memoryOutcome builds the outcome for a translation served from memory.
// The trace is complete, with empty stage fields and the memory flag set.
func memoryOutcome(seg internal.Segment, finalText string) internal.TranslationOutcome {
	trace := internal.PipelineTrace{
		SegmentID:  seg.ID,
		Candidates: []internal.Candidate{},
		FinalText:  finalText,
		Flags:      []string{internal.FlagMemoryHit},
	}
	return internal.TranslationOutcome{SegmentID: seg.ID, FinalText: finalText, Trace: trace}
}

func findSegment(jobs []pipeline.FileJob, file, segmentID string) internal.Segment {
	for _, job := range jobs {
		if job.Name != file {
			continue
		}
		for _, seg := range job.Segments {
			if seg.ID == segmentID {
				return seg
			}
		}
	}
	return internal.Segment{ID: segmentID}
}

// loadSegments reads a segment file and fills in the per-segment defaults:
// language pair, media hints, and the stored glossary for the pair.
func loadSegments(ctx context.Context, path string, db *store.Store) ([]internal.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read segment file: %w", err)
	}

	var file segmentFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse segment file %s: %w", path, err)
	}

	sourceLang := file.SourceLang
	if subSourceLang != "" {
		sourceLang = subSourceLang
	}
	targetLang := file.TargetLang
	if subTargetLang != "" {
		targetLang = subTargetLang
	}
	if targetLang == "" {
		return nil, fmt.Errorf("%s: no target language in file or flags", path)
	}

	var glossary []internal.GlossaryEntry
	if db != nil {
		glossary, err = db.GetGlossaryEntries(ctx, sourceLang, targetLang)
		if err != nil {
			return nil, fmt.Errorf("failed to load glossary: %w", err)
		}
	}

	for i := range file.Segments {
		seg := &file.Segments[i]
		if seg.ID == "" {
			seg.ID = fmt.Sprintf("%s#%d", path, i+1)
		}
		if seg.SourceLang == "" {
			seg.SourceLang = sourceLang
		}
		if seg.TargetLang == "" {
			seg.TargetLang = targetLang
		}
		if seg.MediaHints == "" {
			seg.MediaHints = file.MediaHints
		}
		if len(seg.Glossary) == 0 {
			seg.Glossary = glossary
		}
	}
	return file.Segments, nil
}

func writeOutcomes(path string, outcomes []internal.TranslationOutcome) error {
	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal outcomes: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	return nil
}

func init() {
	rootCmd.AddCommand(subtitleCmd)

	addPipelineFlags(subtitleCmd, &subtitleOpts)
	subtitleCmd.Flags().StringVar(&subSourceLang, "source", "", "override source language code")
	subtitleCmd.Flags().StringVar(&subTargetLang, "target", "", "override target language code")
	subtitleCmd.Flags().StringVar(&subDBPath, "db", defaultDBPath(), "translation memory database path")
	subtitleCmd.Flags().BoolVar(&subNoCache, "no-cache", false, "bypass the translation memory")
	subtitleCmd.Flags().IntVar(&subParallel, "parallel", 1, "files translated concurrently")
}
