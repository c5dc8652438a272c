package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type SlideTextGenerator interface {
	GenerateSlideText(ctx context.Context, topic, language string) (string, error)
}

// TextModel - модель, генерирующая текст по промпту.
type TextModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

type ModelFactory func(ctx context.Context, apiKey string) (TextModel, error)

type geminiModel struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// GeminiFactory создаёт клиента Gemini на каждый ключ из пула.
func GeminiFactory(modelName string) ModelFactory {
	return func(ctx context.Context, apiKey string) (TextModel, error) {
		client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
		if err != nil {
			return nil, fmt.Errorf("unable to create Gemini client: %w", err)
		}
		return &geminiModel{client: client, model: client.GenerativeModel(modelName)}, nil
	}
}

func (m *geminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := m.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
	}
	if b.Len() == 0 {
		return "", errors.New("empty response from Gemini")
	}
	return b.String(), nil
}

func (m *geminiModel) Close() error {
	return m.client.Close()
}

// KeyPoolGenerator перебирает ключи пула, пока один из них не ответит.
type KeyPoolGenerator struct {
	keys        *APIKeyService
	factory     ModelFactory
	provider    string
	maxAttempts int
	timeout     time.Duration
}

func NewKeyPoolGenerator(keys *APIKeyService, factory ModelFactory) *KeyPoolGenerator {
	return &KeyPoolGenerator{keys: keys, factory: factory, provider: ProviderGemini, maxAttempts: 3, timeout: 60 * time.Second}
}

func slidePrompt(topic, language string) string {
	return fmt.Sprintf(
		"Ты помогаешь студенту готовить презентацию. Напиши текст для одного слайда на тему \"%s\". "+
			"Язык ответа: %s. Три-пять коротких тезисов, каждый с новой строки, без заголовка и без markdown. "+
			"Не придумывай факты.", topic, language)
}

func (g *KeyPoolGenerator) GenerateSlideText(ctx context.Context, topic, language string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var tried []uint
	var lastErr error
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		key, err := g.keys.NextKey(ctx, g.provider, tried...)
		if errors.Is(err, ErrNoAPIKey) {
			break
		}
		if err != nil {
			return "", err
		}
		tried = append(tried, key.ID)

		text, err := g.generateWith(ctx, key.Key, slidePrompt(topic, language))
		if err == nil {
			return strings.TrimSpace(text), nil
		}
		lastErr = err
		g.keys.ReportKeyFailure(ctx, key.ID, err)
		slog.Warn("Генерация текста не удалась, пробуем следующий ключ", "key_id", key.ID, "attempt", attempt+1)
	}
	if lastErr != nil {
		return "", fmt.Errorf("all api keys failed: %w", lastErr)
	}
	return "", ErrNoAPIKey
}

func (g *KeyPoolGenerator) generateWith(ctx context.Context, apiKey, prompt string) (string, error) {
	model, err := g.factory(ctx, apiKey)
	if err != nil {
		return "", err
	}
	defer model.Close()
	return model.Generate(ctx, prompt)
}
