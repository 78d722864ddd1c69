package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/stemsi/exstem-adaptive/internal/config"
	"github.com/stemsi/exstem-adaptive/internal/database"
	"github.com/stemsi/exstem-adaptive/internal/logger"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stemsi/exstem-adaptive/internal/repository"
	"github.com/stemsi/exstem-adaptive/internal/service"
	"github.com/stemsi/exstem-adaptive/internal/validator"
	"golang.org/x/term"
)

func main() {
	var (
		file string
		yes  bool
	)
	flag.StringVar(&file, "file", "", "Path to the item bank JSON file")
	flag.BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	if file == "" {
		fmt.Println("Usage: seed-bank -file bank.json [-yes]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	// ─── Read and Validate Input ───────────────────────────────────────
	raw, err := os.ReadFile(file)
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Failed to read item bank")
	}

	var bank model.ItemBankImport
	if err := json.Unmarshal(raw, &bank); err != nil {
		log.Fatal().Err(err).Msg("Item bank is not valid JSON")
	}
	if err := binding.Validator.ValidateStruct(&bank); err != nil {
		for field, msg := range validator.TranslateErrors(err) {
			fmt.Printf("  %s: %s\n", field, msg)
		}
		log.Fatal().Msg("Item bank failed validation")
	}

	fmt.Printf("=== Import %d questions into %q ===\n", len(bank.Questions), bank.Assessment.Name)
	if !yes && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Print("Proceed? [y/N]: ")
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			fmt.Println("Aborted")
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	store := repository.NewStore(pool)

	// ─── Import in One Transaction ─────────────────────────────────────
	var assessment model.Assessment
	err = store.WithTx(ctx, func(r *repository.Repositories) error {
		assessment = model.Assessment{Name: bank.Assessment.Name, IsAdaptive: true}
		if bank.Assessment.IsAdaptive != nil {
			assessment.IsAdaptive = *bank.Assessment.IsAdaptive
		}
		if err := r.Assessments.Create(ctx, &assessment); err != nil {
			return fmt.Errorf("create assessment: %w", err)
		}

		skills := make(map[string]*model.Skill)
		for i, qi := range bank.Questions {
			skill, ok := skills[qi.Skill]
			if !ok {
				skill = &model.Skill{Name: qi.Skill}
				if err := r.Skills.Upsert(ctx, skill); err != nil {
					return fmt.Errorf("upsert skill %q: %w", qi.Skill, err)
				}
				skills[qi.Skill] = skill
			}

			q := model.Question{
				SkillID:        skill.ID,
				Content:        qi.Content,
				Options:        qi.Options,
				CorrectAnswer:  qi.CorrectAnswer,
				Difficulty:     qi.Difficulty,
				Discrimination: qi.Discrimination,
			}
			if err := r.Questions.Create(ctx, &q); err != nil {
				return fmt.Errorf("create question %d: %w", i+1, err)
			}
			if err := r.Questions.AttachToAssessment(ctx, assessment.ID, q.ID); err != nil {
				return fmt.Errorf("attach question %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed, nothing was written")
	}

	// ─── Refresh the Pool Cache ────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, pool will load on first use")
	} else {
		defer rdb.Close()
		bankService := service.NewQuestionBankService(store.Questions, store.Assessments, rdb, cfg.PoolCacheTTL, log)
		if err := bankService.WarmCache(ctx, assessment.ID); err != nil {
			log.Warn().Err(err).Msg("Failed to warm pool cache")
		}
	}

	fmt.Printf("\nSuccess! Assessment %q created with ID: %s\n", assessment.Name, assessment.ID)
}
