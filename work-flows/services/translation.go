package services

import (
	"fmt"
	"strings"

	googletranslatefree "github.com/bas24/googletranslatefree"
)

// Translator renders assistant replies in the user's language.
type Translator interface {
	Translate(text string) (string, error)
	TargetLang() string
}

type GoogleTranslator struct {
	sourceLang string
	targetLang string
	translate  func(text, source, target string) (string, error)
}

func NewGoogleTranslator(sourceLang, targetLang string) *GoogleTranslator {
	if sourceLang == "" {
		sourceLang = "auto"
	}
	return &GoogleTranslator{
		sourceLang: sourceLang,
		targetLang: targetLang,
		translate:  googletranslatefree.Translate,
	}
}

func (t *GoogleTranslator) TargetLang() string {
	return t.targetLang
}

func (t *GoogleTranslator) Translate(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if t.targetLang == "" || t.targetLang == t.sourceLang {
		return text, nil
	}

	translatedText, err := t.translate(text, t.sourceLang, t.targetLang)
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}

	return translatedText, nil
}
