package main

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"dayplanner/internal/config"
	"dayplanner/internal/discipline"
	"dayplanner/internal/dispatch"
	"dayplanner/internal/handlers"
	"dayplanner/internal/logger"
	"dayplanner/internal/notify"
	"dayplanner/internal/scheduler"
	"dayplanner/internal/storage"
	"dayplanner/internal/tasks"
)

func main() {
	_ = godotenv.Load() // TELEGRAM_BOT_TOKEN, SMTP_* etc.

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		zlog.Fatalw("open database", "path", cfg.DBPath, "err", err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		zlog.Fatalw("telegram bot init", "err", err)
	}

	notifiers := []notify.Notifier{notify.NewTelegram(bot)}
	if cfg.SMTPUser != "" {
		email, err := notify.NewEmail(cfg.SMTPHost, cfg.SMTPPort,
			cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.AppURL)
		if err != nil {
			zlog.Fatalw("email notifier init", "err", err)
		}
		notifiers = append(notifiers, email)
	} else {
		zlog.Infow("email channel disabled, SMTP_USER not set")
	}

	clock := clockwork.NewRealClock()
	coordinator := dispatch.New(db, notifiers, clock, zlog, cfg.ReminderCooldown, cfg.ReflectionAt)

	if _, err := scheduler.Start(coordinator, clock, zlog); err != nil {
		zlog.Fatalw("scheduler start", "err", err)
	}

	h := &handlers.Handler{
		Bot:    bot,
		DB:     db,
		Tasks:  tasks.NewService(db, clock),
		Score:  discipline.NewService(db, clock),
		Clock:  clock,
		Log:    zlog,
		AppURL: cfg.AppURL,
	}

	zlog.Infow("day planner bot started", "bot", bot.Self.UserName)
	h.Listen()
}
