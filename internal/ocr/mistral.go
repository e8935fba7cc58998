package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

const (
	mistralOCREndpoint  = "https://api.mistral.ai/v1/ocr"
	defaultMistralModel = "mistral-ocr-latest"

	// Mistral rejects documents above this size.
	maxMistralBytes = 50 << 20
)

// MistralOCR reads scanned decks through the Mistral OCR API, which
// returns one markdown block per page.
type MistralOCR struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// MistralOption configures a MistralOCR.
type MistralOption func(*MistralOCR)

// WithEndpoint overrides the OCR endpoint URL.
func WithEndpoint(url string) MistralOption {
	return func(m *MistralOCR) { m.endpoint = url }
}

// NewMistralOCR returns a MistralOCR for model, or mistral-ocr-latest when
// model is empty.
func NewMistralOCR(apiKey, model string, opts ...MistralOption) *MistralOCR {
	if model == "" {
		model = defaultMistralModel
	}
	m := &MistralOCR{
		apiKey:   apiKey,
		model:    model,
		endpoint: mistralOCREndpoint,
		client:   &http.Client{Timeout: 3 * time.Minute},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type ocrRequest struct {
	Model              string      `json:"model"`
	Document           ocrDocument `json:"document"`
	IncludeImageBase64 bool        `json:"include_image_base64"`
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type ocrResponse struct {
	Pages []struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

// ExtractText uploads the PDF inline as a data URL and returns the page
// markdown in page order.
func (m *MistralOCR) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return "", resilience.NewFatalError(eris.Wrapf(err, "ocr: read PDF %s", pdfPath), 0)
	}
	if len(data) > maxMistralBytes {
		return "", resilience.NewFatalError(eris.Errorf("ocr: %s is %d bytes, mistral accepts at most %d", pdfPath, len(data), maxMistralBytes), 0)
	}

	body, err := json.Marshal(ocrRequest{
		Model: m.model,
		Document: ocrDocument{
			Type:        "document_url",
			DocumentURL: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "ocr: marshal mistral request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "ocr: create mistral request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", resilience.NewTransientError(eris.Wrap(err, "ocr: mistral API call"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resilience.NewTransientError(eris.Wrap(err, "ocr: read mistral response"), 0)
	}
	if resp.StatusCode != http.StatusOK {
		return "", resilience.ClassifyResponse(
			eris.Errorf("ocr: mistral API returned %d: %s", resp.StatusCode, raw), resp)
	}

	var out ocrResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", resilience.NewTransientError(eris.Wrap(err, "ocr: decode mistral response"), 0)
	}

	sort.SliceStable(out.Pages, func(i, j int) bool { return out.Pages[i].Index < out.Pages[j].Index })
	pages := make([]string, len(out.Pages))
	for i, p := range out.Pages {
		pages[i] = p.Markdown
	}
	return joinPages(pages), nil
}
