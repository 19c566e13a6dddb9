package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quizhive/quizroom-backend/internal/config"
	"github.com/quizhive/quizroom-backend/internal/database"
	"github.com/quizhive/quizroom-backend/internal/logger"
)

// Seeds a small public question catalog for local development. In
// production the catalog is populated by the authoring service.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	fmt.Println("=== Seeding Question Catalog ===")

	type seedQuestion struct {
		text        string
		options     []string
		correct     int
		explanation string
		points      int
		timeLimit   int
		category    string
		difficulty  string
	}

	questions := []seedQuestion{
		{
			text:        "What is the capital of France?",
			options:     []string{"Berlin", "Paris", "Madrid", "Rome"},
			correct:     1,
			explanation: "Paris has been the capital of France since 987.",
			points:      1, timeLimit: 20, category: "geography", difficulty: "easy",
		},
		{
			text:        "Which planet is known as the Red Planet?",
			options:     []string{"Venus", "Jupiter", "Mars", "Saturn"},
			correct:     2,
			explanation: "Iron oxide on its surface gives Mars its color.",
			points:      1, timeLimit: 20, category: "science", difficulty: "easy",
		},
		{
			text:        "What is the largest ocean on Earth?",
			options:     []string{"Atlantic", "Indian", "Arctic", "Pacific"},
			correct:     3,
			explanation: "The Pacific covers about a third of the planet's surface.",
			points:      2, timeLimit: 25, category: "geography", difficulty: "easy",
		},
		{
			text:        "Who wrote the play Hamlet?",
			options:     []string{"Christopher Marlowe", "William Shakespeare", "Ben Jonson", "John Webster"},
			correct:     1,
			explanation: "Shakespeare wrote Hamlet around 1600.",
			points:      2, timeLimit: 30, category: "literature", difficulty: "medium",
		},
		{
			text:        "What is the time complexity of binary search?",
			options:     []string{"O(n)", "O(n log n)", "O(log n)", "O(1)"},
			correct:     2,
			explanation: "Each comparison halves the remaining search space.",
			points:      3, timeLimit: 45, category: "computer-science", difficulty: "medium",
		},
		{
			text:        "Which element has the atomic number 79?",
			options:     []string{"Silver", "Gold", "Platinum", "Mercury"},
			correct:     1,
			explanation: "Gold's symbol Au comes from the Latin aurum.",
			points:      3, timeLimit: 30, category: "science", difficulty: "hard",
		},
		{
			text:        "In which year did the Berlin Wall fall?",
			options:     []string{"1987", "1989", "1991", "1993"},
			correct:     1,
			explanation: "The wall was opened on 9 November 1989.",
			points:      2, timeLimit: 30, category: "history", difficulty: "medium",
		},
		{
			text:        "What does HTTP stand for?",
			options:     []string{"HyperText Transfer Protocol", "High Throughput Transport Protocol", "HyperText Transmission Process", "Host Transfer Text Protocol"},
			correct:     0,
			explanation: "HTTP is the foundation of data exchange on the web.",
			points:      1, timeLimit: 20, category: "computer-science", difficulty: "easy",
		},
	}

	successCount := 0
	for _, q := range questions {
		options, err := json.Marshal(q.options)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to encode options")
		}

		_, err = pool.Exec(ctx,
			`INSERT INTO catalog_questions
			        (id, owner_id, question_text, options, correct_answer,
			         explanation, points, time_limit_seconds, category, difficulty, is_public)
			 VALUES ($1, 1, $2, $3, $4, $5, $6, $7, $8, $9, true)
			 ON CONFLICT DO NOTHING`,
			uuid.New(), q.text, options, q.correct, q.explanation,
			q.points, q.timeLimit, q.category, q.difficulty)
		if err != nil {
			fmt.Printf("Error seeding question %q: %v\n", q.text, err)
		} else {
			successCount++
		}
	}

	fmt.Printf("\nSeed completed! Added %d/%d questions.\n", successCount, len(questions))
}
