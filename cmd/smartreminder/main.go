package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart-reminder/internal/bot"
	"smart-reminder/internal/config"
	"smart-reminder/internal/repository"
	"smart-reminder/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	scheduler := service.NewSchedulerService(cfg.Location)
	notifier := service.NewNotificationService(scheduler)
	coordinator := service.NewCoordinator(notifier, cfg.Location, cfg.RemindersEnabled)
	taskSvc := service.NewTaskService(taskRepo, coordinator, cfg.Location, cfg.ReminderOffsetMinutes)
	reminderSvc := service.NewReminderService(taskSvc)
	countdown := service.NewCountdownService(scheduler, cfg.CountdownInterval)
	taskSvc.WithWatcher(countdown)

	telegramBot, err := bot.New(cfg.TelegramToken, userRepo, taskSvc, reminderSvc, countdown, &cfg)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}
	notifier.SetDeliverer(telegramBot)

	restored, err := taskSvc.RestoreReminders(ctx)
	if err != nil {
		log.Printf("[error] restore reminders: %v", err)
	}
	log.Printf("[info] %d reminders restored", restored)

	sendReports := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[error] report: %v", err)
		}
	}
	if cfg.ReportTime != "" {
		if _, err := scheduler.ScheduleDaily(cfg.ReportTime, sendReports); err != nil {
			log.Fatalf("schedule daily report: %v", err)
		}
	}
	if cfg.ReportInterval > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.ReportInterval, sendReports); err != nil {
			log.Fatalf("schedule reports: %v", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Println("Smart reminder bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
