// Package llm is the completion-service facade used by every pipeline stage.
// It hides the Anthropic message shape behind a single prompt-in, text-out
// call and provides helpers for pulling JSON out of model replies.
package llm

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/predator4hack/ai-shark-sub001/internal/config"
	"github.com/predator4hack/ai-shark-sub001/internal/cost"
	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
	"github.com/predator4hack/ai-shark-sub001/pkg/anthropic"
)

// ErrEmptyResponse is returned when the model replies with no text. It is
// wrapped as transient so retry policies try again.
var ErrEmptyResponse = eris.New("llm: empty completion")

// Completer turns a prompt into completion text.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Image is an attachment sent to the vision model. When Data is empty the
// file at Path is read at call time.
type Image struct {
	Path      string
	MediaType string
	Data      []byte
}

// Request is a single completion call.
type Request struct {
	System    string
	Prompt    string
	Images    []Image
	Model     string // overrides the configured model when set
	MaxTokens int64
	Operation string // log label, e.g. "synth.analyze"
}

// Response is the text of a completion plus its usage.
type Response struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
}

// Client implements Completer over the Anthropic Messages API.
type Client struct {
	api         anthropic.Client
	model       string
	visionModel string
	maxTokens   int64
	costs       *cost.Calculator
}

// NewClient creates a Client. costs may be nil, in which case cost is not
// estimated.
func NewClient(api anthropic.Client, cfg config.AnthropicConfig, costs *cost.Calculator) *Client {
	vision := cfg.VisionModel
	if vision == "" {
		vision = cfg.Model
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{
		api:         api,
		model:       cfg.Model,
		visionModel: vision,
		maxTokens:   maxTokens,
		costs:       costs,
	}
}

// Complete sends req and returns the concatenated text blocks of the reply.
// API errors keep the transient/fatal classification of the client.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
		if len(req.Images) > 0 {
			model = c.visionModel
		}
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	images := make([]anthropic.Image, 0, len(req.Images))
	for _, img := range req.Images {
		loaded, err := img.load()
		if err != nil {
			return nil, err
		}
		images = append(images, anthropic.Image{MediaType: loaded.MediaType, Data: loaded.Data})
	}

	start := time.Now()
	resp, err := c.api.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: req.Prompt,
			Images:  images,
		}},
	})
	if err != nil {
		return nil, err
	}

	out := &Response{
		Text:         ExtractText(resp),
		Model:        model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	if c.costs != nil {
		out.CostUSD = c.costs.Claude(model, out.InputTokens, out.OutputTokens)
		c.costs.Add(req.Operation, out.CostUSD)
	}

	zap.L().Info("llm: completion",
		zap.String("operation", req.Operation),
		zap.String("model", model),
		zap.Int("images", len(images)),
		zap.Int64("input_tokens", out.InputTokens),
		zap.Int64("output_tokens", out.OutputTokens),
		zap.Float64("cost_usd", out.CostUSD),
		zap.Duration("elapsed", time.Since(start)),
	)
	if resp.Truncated() {
		zap.L().Warn("llm: completion hit max_tokens",
			zap.String("operation", req.Operation),
			zap.Int64("max_tokens", maxTokens),
		)
	}

	if strings.TrimSpace(out.Text) == "" {
		return nil, resilience.NewTransientError(eris.Wrapf(ErrEmptyResponse, "llm: %s", req.Operation), 0)
	}
	return out, nil
}

// ExtractText joins the text blocks of resp.
func ExtractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" || block.Type == "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var mediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// LoadImage reads an image file and detects its media type from the
// extension. Unsupported extensions and unreadable files are fatal.
func LoadImage(path string) (Image, error) {
	return Image{Path: path}.load()
}

func (img Image) load() (Image, error) {
	if len(img.Data) > 0 {
		if img.MediaType == "" {
			img.MediaType = mediaTypes[strings.ToLower(filepath.Ext(img.Path))]
		}
		if img.MediaType == "" {
			return Image{}, resilience.NewFatalError(eris.New("llm: image media type unknown"), 0)
		}
		return img, nil
	}

	mt := img.MediaType
	if mt == "" {
		var ok bool
		mt, ok = mediaTypes[strings.ToLower(filepath.Ext(img.Path))]
		if !ok {
			return Image{}, resilience.NewFatalError(eris.Errorf("llm: unsupported image type %q", filepath.Ext(img.Path)), 0)
		}
	}
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return Image{}, resilience.NewFatalError(eris.Wrapf(err, "llm: read image %s", img.Path), 0)
	}
	return Image{Path: img.Path, MediaType: mt, Data: data}, nil
}
