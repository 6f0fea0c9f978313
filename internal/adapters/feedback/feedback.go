// Package feedback turns an attempt's error buckets into a streamed coaching
// message from a chat completion model.
package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/okian/phonoecho/internal/domain/scoring"
	"github.com/okian/phonoecho/pkg/logger"
	"github.com/okian/phonoecho/pkg/metrics"
)

const (
	defaultModel       = "gpt-4"
	defaultTemperature = 0.7
	defaultMaxTokens   = 800
	defaultAPIVersion  = "2024-06-01"
	chunkBuffer        = 32

	systemPrompt = "You are a helpful English pronunciation tutor."

	promptTemplate = `You are a friendly and supportive English pronunciation tutor. I've just finished a pronunciation practice session and would like your help improving. Here are my mistakes:

%s

Please act as my personal tutor and:
1. First, give me encouraging feedback about my practice attempt
2. Explain in a conversational way why these errors might have occurred
3. Provide practical examples and demonstrations using simple words
4. Give me 2-3 quick exercises I can try right now to improve
5. End with an encouraging message for my next practice

Please keep your response friendly and supportive, as if we're having a face-to-face tutoring session!
%s`
)

// Chunk is one piece of a streamed reply. A chunk with Err set is the last one.
type Chunk struct {
	Text string
	Err  error
}

// Coach produces coaching messages.
type Coach struct {
	client oai.Client
	cfg    config
}

// New builds a Coach. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Coach, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	cfg := config{
		model:       defaultModel,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		apiVersion:  defaultAPIVersion,
		lang:        language.Japanese,
		label:       scoring.Category.String,
		log:         logger.Nop(),
	}
	for _, o := range opts {
		o(&cfg)
	}

	reqOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.azureURL != "" {
		reqOpts = append(reqOpts,
			azure.WithEndpoint(cfg.azureURL, cfg.apiVersion),
			azure.WithAPIKey(apiKey),
		)
	} else {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
		if cfg.baseURL != "" {
			reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
		}
	}
	if cfg.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	}

	return &Coach{client: oai.NewClient(reqOpts...), cfg: cfg}, nil
}

// Summary renders one line per category with a non-zero count. It reports
// false when there is nothing to discuss.
func Summary(b scoring.Buckets, label func(scoring.Category) string) (string, bool) {
	if label == nil {
		label = scoring.Category.String
	}
	var lines []string
	for _, c := range scoring.All() {
		bucket := b.Get(c)
		if bucket.Count == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("I made %d %s mistakes with these words: %s",
			bucket.Count, label(c), strings.Join(bucket.Words, ", ")))
	}
	if len(lines) == 0 {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}

// Summary renders b with the coach's category labels.
func (c *Coach) Summary(b scoring.Buckets) (string, bool) {
	return Summary(b, c.cfg.label)
}

// Prompt builds the tutor prompt for b.
func (c *Coach) Prompt(b scoring.Buckets) (string, bool) {
	summary, ok := c.Summary(b)
	if !ok {
		return "", false
	}
	return fmt.Sprintf(promptTemplate, summary, languageInstruction(c.cfg.lang)), true
}

func languageInstruction(tag language.Tag) string {
	name := display.English.Languages().Name(tag)
	if name == "" {
		name = "English"
	}
	if base, _ := tag.Base(); base.String() == "ja" {
		return "Don't forget to respond in " + name + "! But don't teach pronunciation with Katakana or Hiragana."
	}
	return "Please respond in " + name + "."
}

// Stream starts a streamed coaching reply for b. The channel is closed when
// the reply ends; a failure mid-stream arrives as a final Chunk with Err set.
func (c *Coach) Stream(ctx context.Context, b scoring.Buckets) (<-chan Chunk, error) {
	prompt, ok := c.Prompt(b)
	if !ok {
		return nil, ErrNothingToDiscuss
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.cfg.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(prompt),
		},
		Temperature: param.NewOpt(c.cfg.temperature),
		MaxTokens:   param.NewOpt(int64(c.cfg.maxTokens)),
	}

	start := time.Now()
	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		metrics.RecordFeedbackError()
		return nil, fmt.Errorf("%w: start stream: %w", ErrChat, err)
	}

	ch := make(chan Chunk, chunkBuffer)
	go func() {
		defer close(ch)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			metrics.RecordFeedbackChunk()
			select {
			case ch <- Chunk{Text: chunk.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}

		if err := stream.Err(); err != nil {
			metrics.RecordFeedbackError()
			c.cfg.log.Warn(ctx, "feedback stream failed", logger.Error(err))
			select {
			case ch <- Chunk{Err: fmt.Errorf("%w: %w", ErrChat, err)}:
			case <-ctx.Done():
			}
			return
		}
		metrics.RecordFeedbackLatency(float64(time.Since(start).Milliseconds()))
	}()

	return ch, nil
}

// Collect drains a stream into a single string.
func Collect(ch <-chan Chunk) (string, error) {
	var sb strings.Builder
	for c := range ch {
		if c.Err != nil {
			return sb.String(), c.Err
		}
		sb.WriteString(c.Text)
	}
	return sb.String(), nil
}
