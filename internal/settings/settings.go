package settings

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrNotFound = errors.New("settings not found")

// Settings is the record edited on the console's settings page.
type Settings struct {
	Telegram  TelegramSettings  `json:"telegram"`
	LLM       LLMSettings       `json:"llm"`
	Reranker  RerankerSettings  `json:"reranker"`
	Embedding EmbeddingSettings `json:"embedding"`
	RAG       RAGSettings       `json:"rag"`
	Scraping  ScrapingSettings  `json:"scraping"`
	Redis     RedisSettings     `json:"redis"`
	Milvus    MilvusSettings    `json:"milvus"`
	System    SystemSettings    `json:"system"`
}

type TelegramSettings struct {
	BotToken   string `json:"botToken"`
	WebhookURL string `json:"webhookUrl" validate:"omitempty,url,startswith=https://"`
}

type LLMSettings struct {
	APIURL string `json:"apiUrl" validate:"omitempty,url"`
	APIKey string `json:"apiKey"`
	Model  string `json:"model" validate:"required"`
}

type RerankerSettings struct {
	APIURL string `json:"apiUrl" validate:"omitempty,url"`
	APIKey string `json:"apiKey"`
}

type EmbeddingSettings struct {
	Model string `json:"model" validate:"required"`
}

type RAGSettings struct {
	TopK                   int `json:"topK" validate:"min=1,max=100"`
	TopRerank              int `json:"topRerank" validate:"min=1,max=20,ltefield=TopK"`
	MaxConversationHistory int `json:"maxConversationHistory" validate:"min=0,max=50"`
}

type ScrapingSettings struct {
	Delay     int    `json:"delay" validate:"min=0,max=60"`
	MaxDepth  int    `json:"maxDepth" validate:"min=1,max=10"`
	UserAgent string `json:"userAgent" validate:"required"`
}

type RedisSettings struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"min=1,max=65535"`
	Password string `json:"password"`
	DB       int    `json:"db" validate:"min=0,max=15"`
}

type MilvusSettings struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"min=1,max=65535"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type SystemSettings struct {
	Debug    bool   `json:"debug"`
	LogLevel string `json:"logLevel" validate:"oneof=DEBUG INFO WARNING ERROR"`
}

// Defaults matches the values the platform ships with.
func Defaults() Settings {
	return Settings{
		LLM: LLMSettings{
			Model: "your-model-name",
		},
		Reranker: RerankerSettings{
			APIURL: "https://api.jina.ai/v1/rerank",
		},
		Embedding: EmbeddingSettings{
			Model: "nomic-ai/nomic-embed-text-v1.5",
		},
		RAG: RAGSettings{
			TopK:                   10,
			TopRerank:              3,
			MaxConversationHistory: 5,
		},
		Scraping: ScrapingSettings{
			Delay:     1,
			MaxDepth:  3,
			UserAgent: "TelegramRAGBot/1.0",
		},
		Redis: RedisSettings{
			Host: "localhost",
			Port: 6379,
		},
		Milvus: MilvusSettings{
			Host: "localhost",
			Port: 19530,
		},
		System: SystemSettings{
			Debug:    true,
			LogLevel: "INFO",
		},
	}
}

// Store persists the settings record.
type Store interface {
	LoadSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
}

// Secret field keys, as used by the show/hide toggles.
const (
	SecretTelegramToken  = "telegram.botToken"
	SecretLLMKey         = "llm.apiKey"
	SecretRerankerKey    = "reranker.apiKey"
	SecretRedisPassword  = "redis.password"
	SecretMilvusPassword = "milvus.password"
)

var secretFields = []string{
	SecretTelegramToken,
	SecretLLMKey,
	SecretRerankerKey,
	SecretRedisPassword,
	SecretMilvusPassword,
}

func SecretFields() []string {
	out := make([]string, len(secretFields))
	copy(out, secretFields)
	return out
}

func IsSecret(field string) bool {
	for _, f := range secretFields {
		if f == field {
			return true
		}
	}
	return false
}

// Secret returns the current value of a secret field.
func (s Settings) Secret(field string) string {
	switch field {
	case SecretTelegramToken:
		return s.Telegram.BotToken
	case SecretLLMKey:
		return s.LLM.APIKey
	case SecretRerankerKey:
		return s.Reranker.APIKey
	case SecretRedisPassword:
		return s.Redis.Password
	case SecretMilvusPassword:
		return s.Milvus.Password
	default:
		return ""
	}
}

// Mask hides a secret for display, keeping its length hint.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	return strings.Repeat("•", min(len([]rune(value)), 12))
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid settings: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate settings: %w", err)
	}

	out := &ValidationError{}
	for _, e := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fieldName(e),
			Message: errorMessage(e),
		})
	}
	return out
}

// fieldName turns "Settings.rag.topK" into "rag.topK".
func fieldName(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func errorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "startswith":
		return fmt.Sprintf("must start with %s", e.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "ltefield":
		return fmt.Sprintf("must not exceed %s", e.Param())
	default:
		return "is invalid"
	}
}
