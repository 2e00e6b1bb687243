package main

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nestboard/listing-cli/internal/model"
	"github.com/nestboard/listing-cli/internal/store"
)

var (
	batchInput       string
	batchOutput      string
	batchConcurrency int
	batchRate        float64
	batchSave        bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the extraction pipeline over a JSONL stream of envelopes",
	Long:  "Reads one RawContentEnvelope per line, extracts concurrently under a rate limit, and writes one result envelope per line in input order.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		in, err := os.Open(batchInput)
		if err != nil {
			return eris.Wrapf(err, "open input %s", batchInput)
		}
		defer in.Close()

		out := os.Stdout
		if batchOutput != "" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrapf(err, "create output %s", batchOutput)
			}
			defer f.Close()
			out = f
		}

		var st store.Store
		if batchSave {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.Concurrency
		}
		rps := batchRate
		if rps <= 0 {
			rps = cfg.Batch.RatePerSecond
		}

		// The pipeline carries no retry or rate policy of its own; pacing
		// upstream calls is this caller's job.
		limiter := rate.NewLimiter(rate.Limit(rps), 1)
		p := initPipeline()

		var envelopes []model.RawContentEnvelope
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var env model.RawContentEnvelope
			if err := json.Unmarshal(line, &env); err != nil {
				return eris.Wrapf(err, "decode envelope at line %d", len(envelopes)+1)
			}
			envelopes = append(envelopes, env)
		}
		if err := scanner.Err(); err != nil {
			return eris.Wrap(err, "read input")
		}

		results := make([]*model.ExtractionRunResult, len(envelopes))
		var mu sync.Mutex
		succeeded := 0

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for i, env := range envelopes {
			g.Go(func() error {
				if err := limiter.Wait(gCtx); err != nil {
					return err
				}
				result := p.Extract(gCtx, env)
				results[i] = result

				if st != nil {
					run := model.NewRun(uuid.New().String(), env.SourceURL, result)
					if saveErr := st.SaveRun(gCtx, run); saveErr != nil {
						zap.L().Warn("batch: failed to save run",
							zap.Int("index", i),
							zap.Error(saveErr),
						)
					}
				}

				if result.Success {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "batch extract")
		}

		enc := json.NewEncoder(out)
		for _, result := range results {
			if err := enc.Encode(result); err != nil {
				return eris.Wrap(err, "write result")
			}
		}

		zap.L().Info("batch: complete",
			zap.Int("envelopes", len(envelopes)),
			zap.Int("succeeded", succeeded),
			zap.Int("failed", len(envelopes)-succeeded),
		)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "JSONL file of envelopes (required)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "JSONL output file (default stdout)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "concurrent extractions (default from config)")
	batchCmd.Flags().Float64Var(&batchRate, "rate", 0, "completion requests per second (default from config)")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "persist each run to the store")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}
