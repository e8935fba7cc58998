package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/predator4hack/ai-shark-sub001/internal/company"
	"github.com/predator4hack/ai-shark-sub001/internal/extract"
	"github.com/predator4hack/ai-shark-sub001/internal/llm"
	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/internal/prompt"
	"github.com/predator4hack/ai-shark-sub001/internal/synth"
)

const stepMetadata = "metadata"

var (
	metadataDeck   string
	metadataImages []string
)

var metadataCmd = &cobra.Command{
	Use:   "metadata <company>",
	Short: "Extract company metadata from a pitch deck",
	Long:  "Reads a pitch deck (.pdf, .docx, .md, .txt) and optional slide images, extracts company metadata with Claude, and merges it into metadata.json.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if metadataDeck == "" {
			return eris.New("metadata: --deck is required")
		}
		images := make([]llm.Image, 0, len(metadataImages))
		for _, p := range metadataImages {
			img, err := llm.LoadImage(p)
			if err != nil {
				return err
			}
			images = append(images, img)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "metadata")
		if err != nil {
			return err
		}
		defer env.Close()

		return env.track(ctx, args[0], "metadata", func(ctx context.Context) error {
			meta, err := extractMetadata(ctx, env, args[0], metadataDeck, images)
			if err != nil {
				_ = env.Workspace.MarkStep(args[0], stepMetadata, model.StepFailed, err.Error())
				return err
			}
			path, _ := env.Workspace.Path(args[0], company.MetadataFile)
			fmt.Fprintln(os.Stdout, path)
			zap.L().Info("metadata updated",
				zap.String("company", meta.Company),
				zap.String("sector", meta.Sector),
				zap.Int("founders", len(meta.Founders)),
			)
			return nil
		})
	},
}

// deckMetadata is the shape requested by the metadata_extraction template.
type deckMetadata struct {
	Founders []model.Founder `json:"founders"`
}

// extractMetadata analyzes the deck at deckPath and merges the result into
// the company's metadata.json.
func extractMetadata(ctx context.Context, env *pipelineEnv, companyName, deckPath string, images []llm.Image) (model.CompanyMetadata, error) {
	if _, err := env.Workspace.Ensure(companyName); err != nil {
		return model.CompanyMetadata{}, err
	}
	text, err := env.Loader.Load(ctx, deckPath)
	if err != nil {
		return model.CompanyMetadata{}, err
	}

	res, err := env.Synth.Analyze(ctx, synth.Request{
		Template: prompt.MetadataExtraction,
		Company:  companyName,
		Content:  text,
		Images:   images,
	})
	if err != nil {
		return model.CompanyMetadata{}, err
	}
	if res.IsError() {
		return model.CompanyMetadata{}, eris.Errorf("metadata: analysis failed: %s", res.String(synth.KeyError))
	}

	patch := metadataPatch(companyName, res)
	if abs, err := filepath.Abs(deckPath); err == nil {
		patch.Extra[extract.MetaDeckPath] = abs
	}

	meta, err := env.Workspace.UpdateMetadata(companyName, patch)
	if err != nil {
		return model.CompanyMetadata{}, err
	}
	detail := fmt.Sprintf("deck %s, %d images", filepath.Base(deckPath), len(images))
	if err := env.Workspace.MarkStep(companyName, stepMetadata, model.StepCompleted, detail); err != nil {
		return model.CompanyMetadata{}, err
	}
	return meta, nil
}

// metadataPatch maps an analysis result onto a metadata record. Placeholder
// values such as "unknown" are dropped so they never override stored data.
func metadataPatch(companyName string, res synth.Result) model.CompanyMetadata {
	known := func(key string) string {
		v := res.String(key)
		if synth.NewFieldUnion(v).Len() == 0 {
			return ""
		}
		return v
	}

	patch := model.CompanyMetadata{
		Company: companyName,
		Sector:  known("sector"),
		Stage:   known("stage"),
		Website: known("website"),
		Extra:   map[string]any{},
	}
	for _, key := range []string{"headquarters", "funding_ask", "summary"} {
		if v := known(key); v != "" {
			patch.Extra[key] = v
		}
	}

	var parsed deckMetadata
	if err := res.Decode(&parsed); err != nil {
		zap.L().Warn("metadata: founders not decodable", zap.String("company", companyName), zap.Error(err))
	}
	for _, f := range parsed.Founders {
		if synth.NewFieldUnion(f.Name).Len() == 0 {
			continue
		}
		if synth.NewFieldUnion(f.Role).Len() == 0 {
			f.Role = ""
		}
		patch.Founders = append(patch.Founders, f)
	}
	return patch
}

func init() {
	metadataCmd.Flags().StringVar(&metadataDeck, "deck", "", "pitch deck file (.pdf, .docx, .md, .txt)")
	metadataCmd.Flags().StringArrayVar(&metadataImages, "image", nil, "slide image sent to the vision model (repeatable)")
	rootCmd.AddCommand(metadataCmd)
}
