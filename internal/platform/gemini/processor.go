package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/focus-api/internal/config"
	"google.golang.org/genai"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 2 * time.Second
	defaultVideoMIME  = "video/mp4"
)

// ContentGenerator is the subset of the genai client the Processor uses.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Processor calls Gemini for each supported operation.
type Processor struct {
	logger     *slog.Logger
	generator  ContentGenerator
	model      string
	maxRetries int
	baseDelay  time.Duration
	validate   *validator.Validate

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewProcessor creates a Processor backed by a real Gemini client.
func NewProcessor(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Processor, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return NewProcessorWithGenerator(logger, cfg, client.Models)
}

// NewProcessorWithGenerator creates a Processor over an existing generator.
func NewProcessorWithGenerator(logger *slog.Logger, cfg config.LLMConfig, generator ContentGenerator) (*Processor, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if generator == nil {
		return nil, fmt.Errorf("%w: generator cannot be nil", ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	logger = logger.With("component", "gemini_processor")

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		logger.Warn("invalid max retries value, using default", "max_retries", defaultMaxRetries)
		maxRetries = defaultMaxRetries
	}
	baseDelay := time.Duration(cfg.RetryDelaySeconds) * time.Second
	if baseDelay < time.Second {
		baseDelay = defaultBaseDelay
	}

	return &Processor{
		logger:     logger,
		generator:  generator,
		model:      cfg.ModelName,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		validate:   validator.New(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Validate checks an operation input against its validation tags.
func (p *Processor) Validate(input interface{}) error {
	if err := p.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// SimplifyText rewrites a text in plain language.
func (p *Processor) SimplifyText(ctx context.Context, in SimplifyInput) (*SimplifiedText, error) {
	if err := p.Validate(in); err != nil {
		return nil, err
	}

	prompt, err := renderPrompt(simplifyTemplate, promptData{Text: in.Text, Language: in.Language})
	if err != nil {
		return nil, err
	}

	var out SimplifiedText
	if err := p.generateJSON(ctx, "text_processing", textContent(prompt), &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Simplified) == "" {
		return nil, fmt.Errorf("%w: empty simplified text", ErrInvalidResponse)
	}
	return &out, nil
}

// GenerateQuestions writes comprehension questions about a text.
func (p *Processor) GenerateQuestions(ctx context.Context, in QuestionsInput) (*QuestionSet, error) {
	if err := p.Validate(in); err != nil {
		return nil, err
	}
	if in.Count == 0 {
		in.Count = defaultQuestionCount
	}

	prompt, err := renderPrompt(questionsTemplate, promptData{Text: in.Text, Count: in.Count})
	if err != nil {
		return nil, err
	}

	var out QuestionSet
	if err := p.generateJSON(ctx, "question_generation", textContent(prompt), &out); err != nil {
		return nil, err
	}
	if len(out.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions in response", ErrInvalidResponse)
	}
	for i, q := range out.Questions {
		if q.Question == "" || q.Answer == "" {
			return nil, fmt.Errorf("%w: question %d missing question or answer", ErrInvalidResponse, i)
		}
	}
	return &out, nil
}

// SummarizeVideo summarizes the video at in.URL.
func (p *Processor) SummarizeVideo(ctx context.Context, in VideoInput) (*VideoSummary, error) {
	if err := p.Validate(in); err != nil {
		return nil, err
	}
	mimeType := in.MIMEType
	if mimeType == "" {
		mimeType = defaultVideoMIME
	}

	prompt, err := renderPrompt(videoTemplate, promptData{})
	if err != nil {
		return nil, err
	}

	content := &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			{FileData: &genai.FileData{FileURI: in.URL, MIMEType: mimeType}},
			{Text: prompt},
		},
	}

	var out VideoSummary
	if err := p.generateJSON(ctx, "video_processing", content, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Summary) == "" {
		return nil, fmt.Errorf("%w: empty summary", ErrInvalidResponse)
	}
	return &out, nil
}

func textContent(prompt string) *genai.Content {
	return &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}
}

// generateJSON calls the model with exponential backoff retry logic and
// decodes the JSON response into out.
//
// Permanent errors (malformed responses, safety blocks) are returned
// immediately. Transport errors are retried up to maxRetries times with a
// delay of baseDelay * 2^attempt * [0.5, 1.0).
func (p *Processor) generateJSON(ctx context.Context, operation string, content *genai.Content, out interface{}) error {
	genConfig := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	log := p.logger.With("operation", operation, "model", p.model)

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		log.DebugContext(ctx, "making Gemini API call", "attempt", attemptNum, "max_attempts", p.maxRetries+1)

		resp, err := p.generator.GenerateContent(ctx, p.model, []*genai.Content{content}, genConfig)
		if err == nil {
			err = decodeResponse(resp, out)
			if err == nil {
				log.DebugContext(ctx, "Gemini API call successful", "attempt", attemptNum)
				return nil
			}
			log.WarnContext(ctx, "permanent error from Gemini, not retrying", "error", err)
			return err
		}

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}

		log.WarnContext(ctx, "Gemini API call failed", "attempt", attemptNum, "error", err)
		if attempt >= p.maxRetries {
			return fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v", ErrTransientFailure, p.maxRetries, err)
		}

		delay := p.backoff(attempt)
		log.DebugContext(ctx, "retrying after delay", "attempt", attemptNum, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}
	}
}

func (p *Processor) backoff(attempt int) time.Duration {
	p.rngMu.Lock()
	jitter := 0.5 + p.rng.Float64()*0.5
	p.rngMu.Unlock()

	return time.Duration(float64(p.baseDelay) * math.Pow(2, float64(attempt)) * jitter)
}

func decodeResponse(resp *genai.GenerateContentResponse, out interface{}) error {
	switch {
	case resp == nil:
		return fmt.Errorf("%w: nil response", ErrInvalidResponse)
	case len(resp.Candidates) == 0:
		return fmt.Errorf("%w: no content generated", ErrInvalidResponse)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return fmt.Errorf("%w: finish reason %s", ErrContentBlocked, resp.Candidates[0].FinishReason)
	case resp.Candidates[0].Content == nil:
		return fmt.Errorf("%w: empty content in response", ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	if err := json.Unmarshal([]byte(text.String()), out); err != nil {
		return fmt.Errorf("%w: failed to parse JSON response: %v", ErrInvalidResponse, err)
	}
	return nil
}
