package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-exam-engine/internal/config"
	"github.com/stemsi/exstem-exam-engine/internal/database"
	"github.com/stemsi/exstem-exam-engine/internal/logger"
	"github.com/stemsi/exstem-exam-engine/internal/model"
	"github.com/stemsi/exstem-exam-engine/internal/repository"
	"github.com/stemsi/exstem-exam-engine/internal/service"
)

func main() {
	var (
		course    string
		subject   string
		area      string
		questions int
		options   int
	)
	flag.StringVar(&course, "course", "general", "Course code for the seeded users and pool")
	flag.StringVar(&subject, "subject", "mathematics", "Subject of the seeded pool")
	flag.StringVar(&area, "area", "", "Area of the seeded pool (for area-scoped courses)")
	flag.IntVar(&questions, "questions", 60, "Number of questions to seed")
	flag.IntVar(&options, "options", 4, "Options per question (2-4)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	seeded := buildQuestions(questions, options, course, subject, area)
	for i := range seeded {
		if err := seeded[i].Validate(); err != nil {
			log.Fatal().Err(err).Int("question", i+1).Msg("Refusing to seed an invalid question")
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	users := []model.User{
		{Name: "Demo Student", Role: model.RoleStudent, EnrolledCourse: &course},
		{Name: "Demo Instructor", Role: model.RoleInstructor, EnrolledCourse: &course},
		{Name: "Demo Admin", Role: model.RoleAdmin},
	}

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for i := range users {
			u := &users[i]
			if err := tx.QueryRow(ctx,
				`INSERT INTO users (name, role, enrolled_course) VALUES ($1, $2, $3) RETURNING id`,
				u.Name, u.Role, u.EnrolledCourse,
			).Scan(&u.ID); err != nil {
				return fmt.Errorf("insert user %q: %w", u.Name, err)
			}
		}

		batch := &pgx.Batch{}
		for _, q := range seeded {
			var areaArg *string
			if q.Area != "" {
				areaArg = &q.Area
			}
			batch.Queue(
				`INSERT INTO questions (question_text, options, correct_option, explanation, difficulty,
				                        category, subject, area, course, created_by)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				q.QuestionText, q.Options, string(q.CorrectOption), q.Explanation, q.Difficulty,
				q.Category, q.Subject, areaArg, q.Course, users[1].ID,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}

	// Drop any pool the server cached for this scope before the seed.
	if rdb, err := database.NewRedisClient(ctx, cfg, log); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, cached pool left to expire")
	} else {
		cache := service.NewCachedQuestionPool(repository.NewQuestionRepository(pool), rdb, cfg.PoolCacheTTL, log)
		if err := cache.Invalidate(ctx, model.ExamScope{Course: course, Subject: subject, Area: area}); err != nil {
			log.Warn().Err(err).Msg("Failed to invalidate cached pool")
		}
		_ = rdb.Close()
	}

	for _, u := range users {
		log.Info().Int("id", u.ID).Str("name", u.Name).Str("role", string(u.Role)).Msg("Seeded user")
	}
	log.Info().
		Int("questions", questions).
		Str("course", course).
		Str("subject", subject).
		Str("area", area).
		Msg("Seeded question pool")
}

// buildQuestions produces n questions whose correct label cycles through the
// first `options` labels.
func buildQuestions(n, options int, course, subject, area string) []model.Question {
	difficulties := []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard}
	texts := []string{"Option A", "Option B", "Option C", "Option D"}
	if options < 0 {
		options = 0
	}
	if options > len(texts) {
		texts = append(texts, make([]string, options-len(texts))...)
	}

	labels := min(max(options, 1), len(model.OptionLabels))
	out := make([]model.Question, n)
	for i := range out {
		correct := model.OptionLabels[i%labels]
		out[i] = model.Question{
			QuestionText:  fmt.Sprintf("Seeded question %d: which option is %s?", i+1, correct),
			Options:       texts[:options],
			CorrectOption: correct,
			Explanation:   fmt.Sprintf("The answer is %s.", correct),
			Difficulty:    difficulties[i%len(difficulties)],
			Category:      fmt.Sprintf("unit-%d", i%5+1),
			Subject:       subject,
			Area:          area,
			Course:        course,
			IsActive:      true,
		}
	}
	return out
}
