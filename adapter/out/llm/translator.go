package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"ticket_server/pkg/logger"
)

type jsonCompleter interface {
	CompleteJSON(ctx context.Context, prompt string) (string, error)
}

const translatePromptFormat = `Detect the dominant language of the following text. If it is not English, translate it to English, keeping the formatting and tone consistent with the original.

Return a JSON object with exactly two fields:
{"language": "<ISO 639-1 code>", "text": "<the English text>"}

For English input, return the text unchanged.

Text:
%s`

// Translator detects and translates ticket text through the chat client.
type Translator struct {
	client jsonCompleter
	log    *logger.Logger
}

func NewTranslator(client jsonCompleter) *Translator {
	return &Translator{
		client: client,
		log:    logger.Default().WithField("component", "translator"),
	}
}

// DetectAndTranslate returns the detected language code and an English
// rendition of the text. English input passes through unchanged.
func (t *Translator) DetectAndTranslate(ctx context.Context, text string) (string, string, error) {
	raw, err := t.client.CompleteJSON(ctx, fmt.Sprintf(translatePromptFormat, text))
	if err != nil {
		return "", "", err
	}

	var parsed struct {
		Language string `json:"language"`
		Text     string `json:"text"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return "", "", fmt.Errorf("unparseable translation response: %w", err)
	}

	lang := strings.ToLower(strings.TrimSpace(parsed.Language))
	if lang == "" {
		lang = "en"
	}
	if lang == "en" || strings.TrimSpace(parsed.Text) == "" {
		return lang, text, nil
	}
	return lang, parsed.Text, nil
}
