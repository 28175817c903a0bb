package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/dsprep/prepbot/bot/conversation"
	"github.com/dsprep/prepbot/bot/handlers"
	"github.com/dsprep/prepbot/bot/openai"
	"github.com/dsprep/prepbot/bot/storage"
	"github.com/dsprep/prepbot/core/bootstrap"
	"github.com/dsprep/prepbot/core/cmd"
	"github.com/dsprep/prepbot/core/config"
)

type configCarrier struct {
	core *config.Config
}

func (c *configCarrier) CoreConfig() *config.Config { return c.core }

func main() {
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			cfg, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			return &configCarrier{core: cfg}, nil
		},
		Bootstrap: func(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			cfg := carrier.CoreConfig()

			res, err := bootstrap.Run(bootstrap.Options{
				Config:   cfg,
				Database: cfg.Database,
			})
			if err != nil {
				return nil, err
			}

			client := openai.NewClient(cfg.OpenAI)
			engine := conversation.NewEngine(client, conversation.Options{
				MaxChunkLen:  cfg.Chat.MaxMessageLen,
				HistoryLimit: cfg.Chat.HistoryLimit,
			})
			settings := storage.NewSettingsStore(res.DB)
			sessions := conversation.NewMemoryStore()

			return handlers.NewApp(cfg, engine, client, sessions, settings), nil
		},
	})
	if err != nil {
		log.Fatalf("prepbot: %v", err)
	}
}
