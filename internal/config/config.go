package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config собирается один раз при старте и дальше не меняется:
// движок не держит глобального изменяемого состояния.
type Config struct {
	TelegramToken string
	DBDSN         string
	Environment   string
	Timezone      string // пустая строка — локальное время процесса

	TutorUserIDs []int64 // кто считается репетитором
	AdminUserID  int64

	GlobalLessonLink string // общая ссылка, если у урока нет своей
	SummaryHour      int    // час ежедневной сводки, -1 — отключена
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg := &Config{
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		DBDSN:            os.Getenv("DB_DSN"),
		Environment:      os.Getenv("ENV"),
		Timezone:         strings.TrimSpace(os.Getenv("TIMEZONE")),
		GlobalLessonLink: strings.TrimSpace(os.Getenv("LESSON_LINK")),
		SummaryHour:      -1,
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	cfg.TutorUserIDs = parseIDList(os.Getenv("TUTOR_USER_IDS"))
	if len(cfg.TutorUserIDs) == 0 {
		return nil, fmt.Errorf("TUTOR_USER_IDS is required but not set")
	}

	if raw := strings.TrimSpace(os.Getenv("ADMIN_USER_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_USER_ID: %w", err)
		}
		cfg.AdminUserID = id
	} else {
		// Без отдельного админа главным считается первый репетитор
		cfg.AdminUserID = cfg.TutorUserIDs[0]
	}

	if raw := strings.TrimSpace(os.Getenv("SUMMARY_DAILY_HOUR")); raw != "" {
		hour, err := strconv.Atoi(raw)
		if err != nil || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("invalid SUMMARY_DAILY_HOUR: %q", raw)
		}
		cfg.SummaryHour = hour
	}

	log.Printf("Config loaded\n")

	return cfg, nil
}

// IsTutor проверяет, есть ли пользователь в списке репетиторов
func (c *Config) IsTutor(userID int64) bool {
	for _, id := range c.TutorUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// parseIDList разбирает список id через запятую или пробел
func parseIDList(raw string) []int64 {
	var ids []int64
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
