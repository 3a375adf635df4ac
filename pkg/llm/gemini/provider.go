package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chatbot-engine-be/pkg/llm"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []*part `json:"parts"`
	Role  string  `json:"role,omitempty"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateRequest struct {
	Contents          []*content       `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
	SafetySettings    []safetySetting  `json:"safetySettings"`
}

type candidate struct {
	Content      *content `json:"content"`
	FinishReason string   `json:"finishReason"`
}

type generateResponse struct {
	Candidates     []*candidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

var defaultSafety = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

// GeminiProvider talks to the generateContent endpoint
type GeminiProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.LLMProvider = (*GeminiProvider)(nil)

func NewGeminiProvider(apiKey, baseURL, model string, client *http.Client) *GeminiProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if client == nil {
		client = &http.Client{}
	}
	return &GeminiProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  client,
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.Response, error) {
	opts := &llm.Options{
		Model:       p.model,
		Temperature: 0.3,
		MaxTokens:   2048,
	}
	for _, o := range options {
		o(opts)
	}

	payload := generateRequest{
		GenerationConfig: generationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
			TopP:            0.8,
			TopK:            40,
		},
		SafetySettings: defaultSafety,
	}
	if opts.System != "" {
		payload.SystemInstruction = &content{Parts: []*part{{Text: opts.System}}}
	}
	for _, m := range history {
		role := roleUser
		if m.Role == "assistant" || m.Role == roleModel {
			role = roleModel
		}
		payload.Contents = append(payload.Contents, &content{
			Parts: []*part{{Text: m.Content}},
			Role:  role,
		})
	}

	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, opts.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadJson))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, llm.NewStatusError(p.Name(), res.StatusCode, resBody)
	}

	var geminiRes generateResponse
	if err := json.Unmarshal(resBody, &geminiRes); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}

	if len(geminiRes.Candidates) == 0 || geminiRes.Candidates[0] == nil {
		if geminiRes.PromptFeedback != nil && geminiRes.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w: %s", llm.ErrSafetyBlocked, geminiRes.PromptFeedback.BlockReason)
		}
		return nil, fmt.Errorf("%w: no candidates in gemini response", llm.ErrMalformedResponse)
	}

	first := geminiRes.Candidates[0]
	if first.FinishReason == "SAFETY" {
		return nil, llm.ErrSafetyBlocked
	}
	if first.Content == nil || len(first.Content.Parts) == 0 || first.Content.Parts[0] == nil {
		return nil, fmt.Errorf("%w: invalid response structure from gemini", llm.ErrMalformedResponse)
	}

	text := strings.TrimSpace(first.Content.Parts[0].Text)
	if text == "" {
		return nil, llm.ErrEmptyResponse
	}

	out := &llm.Response{Text: text}
	if u := geminiRes.UsageMetadata; u != nil {
		out.Usage = &llm.Usage{
			PromptTokens:     u.PromptTokenCount,
			CompletionTokens: u.CandidatesTokenCount,
			TotalTokens:      u.TotalTokenCount,
		}
	}
	return out, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (*llm.Response, error) {
	return p.Chat(ctx, []llm.Message{{Role: roleUser, Content: prompt}}, options...)
}
