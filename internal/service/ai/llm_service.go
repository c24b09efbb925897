package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhangyuer/elenchus/backend/internal/config"
	"github.com/zhangyuer/elenchus/backend/internal/model/chat"
	chatservice "github.com/zhangyuer/elenchus/backend/internal/service/chat"
)

// Service wraps the chat model behind the two calls the rest of the backend
// needs: a streamed tutoring reply and a single-shot inquiry generation.
type Service struct {
	chatModel    model.ChatModel
	cfg          config.AIConfig
	chain        compose.Runnable[map[string]any, *schema.Message]
	historyLimit int
}

// NewService creates the model instance and compiles the tutoring chain.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 20
	}

	return &Service{
		chatModel:    chatModel,
		cfg:          cfg,
		chain:        runnable,
		historyLimit: historyLimit,
	}, nil
}

// StreamReply opens a cancellable streaming call for one tutoring turn.
// history is the transcript before the turn; content is the new user text.
func (s *Service) StreamReply(ctx context.Context, history []chat.Message, content string) (chatservice.TokenStream, error) {
	input := map[string]any{
		"system":  tutorSystemPrompt,
		"history": s.buildHistoryMessages(history),
		"query":   content,
	}

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to stream chat chain output: %w", err)
	}

	return &tokenStream{reader: stream}, nil
}

// GenerateInquiries runs the single-shot inquiry prompt for a topic and
// returns the raw model text.
func (s *Service) GenerateInquiries(ctx context.Context, topic string) (string, error) {
	response, err := s.chatModel.Generate(ctx, []*schema.Message{
		schema.UserMessage(inquiryPrompt(topic)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate inquiries: %w", err)
	}
	return response.Content, nil
}

// buildHistoryMessages converts the recent transcript into model messages,
// dropping the streaming placeholder if one slipped in.
func (s *Service) buildHistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > s.historyLimit {
		startIdx = len(messages) - s.historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		if msg.Streaming {
			continue
		}
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}

// tokenStream adapts eino's stream reader to the chat service contract.
type tokenStream struct {
	reader *schema.StreamReader[*schema.Message]
}

func (t *tokenStream) Recv() (string, error) {
	chunk, err := t.reader.Recv()
	if err != nil {
		return "", err
	}
	if chunk == nil {
		return "", nil
	}
	return chunk.Content, nil
}

func (t *tokenStream) Close() {
	t.reader.Close()
}
