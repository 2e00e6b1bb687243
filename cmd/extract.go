package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nestboard/listing-cli/internal/model"
)

var (
	extractInput string
	extractSave  bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run the extraction pipeline on a single content envelope",
	Long:  "Reads a RawContentEnvelope JSON document from a file (or stdin with --input -), runs one extraction round trip, and prints the result envelope.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("extract"); err != nil {
			return err
		}

		env, err := readEnvelope(extractInput)
		if err != nil {
			return err
		}

		p := initPipeline()
		result := p.Extract(ctx, *env)

		if extractSave {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}

			run := model.NewRun(uuid.New().String(), env.SourceURL, result)
			if err := st.SaveRun(ctx, run); err != nil {
				zap.L().Warn("extract: failed to save run", zap.Error(err))
			} else {
				zap.L().Info("extract: run saved", zap.String("run_id", run.ID))
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// readEnvelope decodes a RawContentEnvelope from a file path, or from stdin
// when path is "-".
func readEnvelope(path string) (*model.RawContentEnvelope, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open envelope %s", path)
		}
		defer f.Close()
		r = f
	}

	var env model.RawContentEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, eris.Wrap(err, "decode envelope")
	}
	return &env, nil
}

func init() {
	extractCmd.Flags().StringVar(&extractInput, "input", "-", "envelope JSON file, or - for stdin")
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "persist the run to the store")
	rootCmd.AddCommand(extractCmd)
}
