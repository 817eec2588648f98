// Package genai talks to the remote quiz/image generator over its JSON API.
// The generator is an opaque collaborator: requests either produce
// quiz-shaped data (or image bytes) or fail with an error the caller
// surfaces; there is no automatic retry here.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"quizly-service/internal/app"
	"quizly-service/internal/domain"
)

// ImageSize selects the rendered resolution of a generated image.
type ImageSize string

const (
	Image1K ImageSize = "1K"
	Image2K ImageSize = "2K"
	Image4K ImageSize = "4K"
)

// Client calls a Gemini-style generateContent endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	imageModel string
}

// Config carries the generator connection settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	ImageModel string
	Timeout    time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
	}
}

type generatePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string       `json:"responseMimeType,omitempty"`
	ImageConfig      *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	ImageSize   string `json:"imageSize"`
	AspectRatio string `json:"aspectRatio"`
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// GenerateQuiz asks the generator for quiz content on a topic, a source
// document, or both, and decodes the structured JSON reply into a draft.
func (c *Client) GenerateQuiz(ctx context.Context, req app.GenerateRequest) (domain.Draft, error) {
	if req.Topic == "" && req.Document == nil {
		return domain.Draft{}, fmt.Errorf("generate quiz: topic or document required")
	}

	countPrompt := "Generate between 5 to 10 questions, depending on the depth of the content."
	if req.QuestionCount > 0 {
		countPrompt = "Generate exactly " + strconv.Itoa(req.QuestionCount) + " questions."
	}

	var parts []generatePart
	if req.Document != nil {
		parts = append(parts, generatePart{InlineData: &inlineData{
			MimeType: req.Document.MimeType,
			Data:     req.Document.Base64Data,
		}})
		prompt := "Analyze the attached document and create a challenging quiz based on its key concepts. "
		if req.Topic != "" {
			prompt = fmt.Sprintf("Analyze the attached document and create a challenging quiz focusing on the topic: %q. ", req.Topic)
		}
		parts = append(parts, generatePart{Text: prompt + countPrompt + " Make sure one option is correct per question."})
	} else {
		parts = append(parts, generatePart{Text: fmt.Sprintf(
			"Create a challenging and interesting quiz about: %s. %s Make sure one option is correct.",
			req.Topic, countPrompt)})
	}

	resp, err := c.generate(ctx, c.model, generateRequest{
		Contents:         []generateContent{{Parts: parts}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return domain.Draft{}, err
	}

	text := firstText(resp)
	if text == "" {
		return domain.Draft{}, fmt.Errorf("generate quiz: empty response")
	}
	var draft domain.Draft
	if err := json.Unmarshal([]byte(text), &draft); err != nil {
		return domain.Draft{}, fmt.Errorf("generate quiz: decode response: %w", err)
	}
	return draft, nil
}

// GenerateImage renders an illustrative image and returns its base64 data.
func (c *Client) GenerateImage(ctx context.Context, prompt string, size ImageSize) (string, error) {
	model := c.imageModel
	if model == "" {
		model = c.model
	}
	resp, err := c.generate(ctx, model, generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
		GenerationConfig: &generationConfig{ImageConfig: &imageConfig{
			ImageSize:   string(size),
			AspectRatio: "16:9",
		}},
	})
	if err != nil {
		return "", err
	}
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return part.InlineData.Data, nil
			}
		}
	}
	return "", fmt.Errorf("generate image: no image data in response")
}

func (c *Client) generate(ctx context.Context, model string, payload generateRequest) (generateResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return generateResponse{}, fmt.Errorf("generator request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return generateResponse{}, fmt.Errorf("generator request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return generateResponse{}, fmt.Errorf("generator request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return generateResponse{}, fmt.Errorf("generator returned %d: %s", resp.StatusCode, snippet)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return generateResponse{}, fmt.Errorf("generator response: %w", err)
	}
	return decoded, nil
}

func firstText(resp generateResponse) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}
