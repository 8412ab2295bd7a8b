// Package interpret turns a free-text statistics request into a structured
// Census query by prompting a language model.
package interpret

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/neighborhood-cli/internal/census"
	"github.com/sells-group/neighborhood-cli/internal/failure"
	"github.com/sells-group/neighborhood-cli/internal/model"
	"github.com/sells-group/neighborhood-cli/pkg/anthropic"
)

const (
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 1024
)

// Options configures an Interpreter.
type Options struct {
	Model     string
	MaxTokens int64
}

// Interpreter prompts the model with the request, the resolved location and
// the variable reference table.
type Interpreter struct {
	client    anthropic.Client
	table     census.VariableTable
	model     string
	maxTokens int64
}

// Interpretation is the parsed query plus the model text it came from.
type Interpretation struct {
	Query *model.StructuredQuery
	Raw   string
	Usage anthropic.TokenUsage
}

// New creates an Interpreter.
func New(client anthropic.Client, table census.VariableTable, opts Options) *Interpreter {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	return &Interpreter{
		client:    client,
		table:     table,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
	}
}

// Table returns the variable table offered to the model.
func (i *Interpreter) Table() census.VariableTable {
	return i.table
}

// Interpret sends one request to the model. Transport and service failures
// pass through with their kind; output without a usable JSON object is an
// interpretation failure carrying the model text.
func (i *Interpreter) Interpret(ctx context.Context, request string, loc model.Location) (*Interpretation, error) {
	if strings.TrimSpace(request) == "" {
		return nil, failure.Newf(failure.KindInvalidQuery, "interpret", "empty request")
	}

	temp := 0.0
	resp, err := i.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       i.model,
		MaxTokens:   i.maxTokens,
		System:      []anthropic.SystemBlock{{Text: systemPrompt}},
		Messages:    []anthropic.Message{{Role: "user", Content: BuildPrompt(request, loc, i.table)}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, failure.Classify("interpret", err)
	}

	resp.Usage.LogCost(i.model, "interpret")

	text := resp.Text()
	span, err := ExtractJSONSpan(text)
	if err != nil {
		return nil, err
	}

	q, err := ParseQuery(span)
	if err != nil {
		// Report the whole reply, not just the span that failed to decode.
		var fe *failure.Error
		if errors.As(err, &fe) {
			return nil, fe.WithRaw(text)
		}
		return nil, err
	}

	zap.L().Debug("interpreted request",
		zap.String("request", request),
		zap.String("query", String(q)),
	)

	return &Interpretation{Query: q, Raw: text, Usage: resp.Usage}, nil
}
