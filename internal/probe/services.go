package probe

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/rag-console/console/internal/settings"
	"github.com/rag-console/console/pkg/logger"
)

// LLM lists models on the OpenAI-compatible endpoint and, when the list is
// not empty, checks the configured model is among them.
func (s *Set) LLM(ctx context.Context, cfg settings.Settings) error {
	if cfg.LLM.APIURL == "" {
		return fmt.Errorf("%w: LLM API URL is empty", ErrNotConfigured)
	}

	oc := openai.DefaultConfig(cfg.LLM.APIKey)
	oc.BaseURL = cfg.LLM.APIURL
	oc.HTTPClient = s.httpClient
	c := openai.NewClientWithConfig(oc)

	models, err := c.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	if len(models.Models) == 0 {
		return nil
	}
	for _, m := range models.Models {
		if m.ID == cfg.LLM.Model {
			return nil
		}
	}
	return fmt.Errorf("model %q is not served by %s", cfg.LLM.Model, cfg.LLM.APIURL)
}

// Redis opens a client and sends PING.
func (s *Set) Redis(ctx context.Context, cfg settings.Settings) error {
	addr := cfg.Redis.Host + ":" + strconv.Itoa(cfg.Redis.Port)
	rc := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rc.Close()

	if err := rc.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Debug("Redis reachable", zap.String("addr", addr))
	return nil
}

// Milvus connects and lists collections.
func (s *Set) Milvus(ctx context.Context, cfg settings.Settings) error {
	addr := cfg.Milvus.Host + ":" + strconv.Itoa(cfg.Milvus.Port)
	mc, err := client.NewClient(ctx, client.Config{
		Address:  addr,
		Username: cfg.Milvus.Username,
		Password: cfg.Milvus.Password,
	})
	if err != nil {
		return fmt.Errorf("failed to create milvus client: %w", err)
	}
	defer mc.Close()

	collections, err := mc.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	logger.Debug("Milvus reachable", zap.String("addr", addr), zap.Int("collections", len(collections)))
	return nil
}
