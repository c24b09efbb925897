package inquiry

import (
	"context"
	"errors"
	"strings"
)

var ErrTopicRequired = errors.New("topic is required")

// Generator produces the raw inquiry text for a topic. Implemented by the AI
// service; faked in tests.
type Generator interface {
	GenerateInquiries(ctx context.Context, topic string) (string, error)
}

// Service turns a topic into an ordered list of provocative questions.
type Service struct {
	gen Generator
}

// NewService binds the inquiry service to a generator.
func NewService(gen Generator) *Service {
	return &Service{gen: gen}
}

// Generate asks the model for inquiries and parses the bullet list out of
// its reply.
func (s *Service) Generate(ctx context.Context, topic string) ([]string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrTopicRequired
	}

	text, err := s.gen.GenerateInquiries(ctx, topic)
	if err != nil {
		return nil, err
	}
	return parseList(text), nil
}

// parseList keeps dash-prefixed lines, stripping the dash and surrounding
// whitespace. Everything else in the reply is ignored.
func parseList(text string) []string {
	lines := strings.Split(text, "\n")
	questions := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") {
			continue
		}
		question := strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if question != "" {
			questions = append(questions, question)
		}
	}
	return questions
}
