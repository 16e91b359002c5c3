package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/i2y/moviemood/llm"
	"github.com/i2y/moviemood/prompt"
	"github.com/i2y/moviemood/vectorstore"
)

const documentSeparator = "\n\n"

// Chain answers a question by stuffing every retrieved document into the
// system message.
type Chain struct {
	model     *llm.Model
	retriever Retriever
	system    *prompt.Template
}

// NewChain returns a chain that answers with model from what retriever finds.
func NewChain(model *llm.Model, retriever Retriever) *Chain {
	return &Chain{
		model:     model,
		retriever: retriever,
		system:    prompt.MustLoad(prompt.QASystem),
	}
}

// Messages retrieves context for question and builds the conversation sent
// to the model.
func (c *Chain) Messages(ctx context.Context, question string) ([]llm.Message, error) {
	docs, err := c.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	system, err := c.system.Render(map[string]any{"Context": joinDocuments(docs)})
	if err != nil {
		return nil, err
	}
	return []llm.Message{
		llm.SystemMessage(system),
		llm.UserMessage(question),
	}, nil
}

// Ask returns the model's free-text answer.
func (c *Chain) Ask(ctx context.Context, question string) (string, error) {
	msgs, err := c.Messages(ctx, question)
	if err != nil {
		return "", err
	}

	resp, err := c.model.CallMessages(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("answering question: %w", err)
	}
	return resp.Text(), nil
}

// AskParse is Ask with the answer constrained to T's JSON schema. It is a
// function because methods cannot take type parameters.
func AskParse[T any](ctx context.Context, c *Chain, question string) (T, error) {
	var zero T

	msgs, err := c.Messages(ctx, question)
	if err != nil {
		return zero, err
	}

	resp, err := llm.ParseMessages[T](ctx, c.model, msgs)
	if err != nil {
		return zero, fmt.Errorf("answering question: %w", err)
	}
	return resp.Parsed()
}

func joinDocuments(docs []vectorstore.Document) string {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	return strings.Join(texts, documentSeparator)
}
