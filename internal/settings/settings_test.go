package settings

import (
	"errors"
	"testing"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidate_ReportsFieldsByJSONName(t *testing.T) {
	s := Defaults()
	s.RAG.TopK = 2
	s.RAG.TopRerank = 5
	s.Telegram.WebhookURL = "http://insecure.example.com/hook"
	s.System.LogLevel = "TRACE"

	err := s.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	got := map[string]string{}
	for _, f := range verr.Fields {
		got[f.Field] = f.Message
	}
	for _, field := range []string{"rag.topRerank", "telegram.webhookUrl", "system.logLevel"} {
		if _, ok := got[field]; !ok {
			t.Errorf("missing error for %s, got %v", field, got)
		}
	}
}

func TestSecretAccessors(t *testing.T) {
	s := Defaults()
	s.Telegram.BotToken = "123:abc"
	s.LLM.APIKey = "sk-test"

	if s.Secret(SecretTelegramToken) != "123:abc" {
		t.Errorf("telegram token: got %q", s.Secret(SecretTelegramToken))
	}
	if s.Secret(SecretLLMKey) != "sk-test" {
		t.Errorf("llm key: got %q", s.Secret(SecretLLMKey))
	}
	if s.Secret("llm.model") != "" {
		t.Error("non-secret field should not be readable through Secret")
	}
	if !IsSecret(SecretRerankerKey) || IsSecret("rag.topK") {
		t.Error("IsSecret classification is wrong")
	}
}

func TestMask(t *testing.T) {
	cases := map[string]string{
		"":        "",
		"abc":     "•••",
		"a-very-long-api-key-value": "••••••••••••",
	}
	for in, want := range cases {
		if got := Mask(in); got != want {
			t.Errorf("Mask(%q): got %q, want %q", in, got, want)
		}
	}
}
