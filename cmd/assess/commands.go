package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/dementia-risk/pkg/preprocess"
	"github.com/synaptica-ai/dementia-risk/pkg/serving"
	"github.com/synaptica-ai/dementia-risk/pkg/serving/assessment"
	"github.com/synaptica-ai/dementia-risk/pkg/serving/predictor"
	"gopkg.in/yaml.v3"
)

var (
	recordFile  string
	artifactDir string
	modelName   string
	backend     string
	jsonOutput  bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a record file and print the verdict",
	Long:  `Reads a JSON or YAML record (field name -> value), runs the preprocessing pipeline and the configured classifier, and prints the verdict.`,
	Args:  cobra.NoArgs,
	RunE:  runScore,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the form fields and category vocabularies",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Print how each field of a record becomes a feature",
	Args:  cobra.NoArgs,
	RunE:  runExplain,
}

func init() {
	for _, c := range []*cobra.Command{scoreCmd, explainCmd} {
		c.Flags().StringVarP(&recordFile, "file", "f", "", "record file (.json, .yaml or .yml; - for JSON on stdin)")
		c.MarkFlagRequired("file")
	}
	scoreCmd.Flags().StringVar(&artifactDir, "artifact", "", "model artifact directory (overrides MODEL_ARTIFACT_DIR)")
	scoreCmd.Flags().StringVar(&modelName, "model", "", "model name (overrides MODEL_NAME)")
	scoreCmd.Flags().StringVar(&backend, "backend", "", "classifier backend: artifact, remote or onnx (overrides CLASSIFIER_BACKEND)")
	scoreCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
}

// loadRecord reads a record from a JSON or YAML file, picked by extension.
func loadRecord(path string, stdin io.Reader) (preprocess.Record, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	raw := map[string]interface{}{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		var rec preprocess.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return rec, nil
	}
	return preprocess.NewRecord(raw)
}

func runScore(cmd *cobra.Command, args []string) error {
	if artifactDir != "" {
		cfg.ModelArtifactDir = artifactDir
	}
	if modelName != "" {
		cfg.ModelName = modelName
	}
	if backend != "" {
		cfg.ClassifierBackend = backend
	}

	record, err := loadRecord(recordFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	pre, err := serving.NewPreprocessor(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	clf, err := predictor.New(ctx, serving.ClassifierOptions(cfg))
	if err != nil {
		return err
	}
	if closer, ok := clf.(io.Closer); ok {
		defer closer.Close()
	}

	svc := assessment.New(pre, clf, assessment.Options{
		Threshold: cfg.RiskThreshold,
		ModelName: cfg.ModelName,
		Backend:   cfg.ClassifierBackend,
		Source:    "assess-cli",
	})
	result := svc.Assess(ctx, record)

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, result.Message)
		if result.Probability != nil {
			fmt.Fprintf(out, "probability: %.4f (threshold %.2f)\n", *result.Probability, svc.Threshold())
		}
	}
	if result.ErrorKind != "" {
		return fmt.Errorf("assessment failed (%s)", result.ErrorKind)
	}
	return nil
}

func runSchema(cmd *cobra.Command, args []string) error {
	vocab, err := preprocess.LoadVocabularies(cfg.VocabularyPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d fields, in feature order:\n", preprocess.FeatureCount)
	for i, col := range preprocess.Columns() {
		line := fmt.Sprintf("%2d  %-26s %s", i, col.Name, col.Kind)
		if v, ok := vocab.Lookup(col.Name); ok {
			codes := make([]string, 0, v.Len())
			for code, value := range v.Values() {
				codes = append(codes, fmt.Sprintf("%d=%s", code, value))
			}
			line += "  " + strings.Join(codes, ", ")
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func runExplain(cmd *cobra.Command, args []string) error {
	record, err := loadRecord(recordFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	pre, err := serving.NewPreprocessor(cfg)
	if err != nil {
		return err
	}
	trace, err := pre.Explain(record)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(trace)
}
