// Seed populates a development database with demo users, leads and the
// records hanging off them. Run against an empty database:
//
//	go run ./cmd/seed
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/pulsecrm/backend/config"
	"github.com/pulsecrm/backend/pkg/attendance"
	"github.com/pulsecrm/backend/pkg/auth"
	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/dailyreports"
	"github.com/pulsecrm/backend/pkg/database"
	"github.com/pulsecrm/backend/pkg/followups"
	"github.com/pulsecrm/backend/pkg/leads"
	"github.com/pulsecrm/backend/pkg/logger"
	"github.com/pulsecrm/backend/pkg/meetings"
	"github.com/pulsecrm/backend/pkg/models"
	"github.com/pulsecrm/backend/pkg/mutation"
	"github.com/pulsecrm/backend/pkg/notify"
	"github.com/pulsecrm/backend/pkg/todos"
	"github.com/pulsecrm/backend/pkg/users"
)

var leadSources = []string{"website", "referral", "linkedin", "cold_call", "event"}

func main() {
	agentCount := flag.Int("agents", 5, "number of agent accounts to create")
	leadCount := flag.Int("leads", 50, "number of leads to create")
	seed := flag.Int64("seed", 0, "random seed (0 = time-based)")
	flag.Parse()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	gofakeit.Seed(rngSeed)
	rng := rand.New(rand.NewSource(rngSeed))

	cfg := config.Load()

	db, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	appLog := logger.New("warn", cfg.LogFormat)
	queryCache := cache.NewQueryCache(redisClient, appLog)
	pipeline := mutation.New(queryCache, &notify.LogNotifier{Log: appLog}, appLog)
	staleTime := time.Duration(cfg.CacheStaleSeconds) * time.Second

	userService := users.NewService(users.NewRepository(db), queryCache, pipeline, staleTime)
	leadService := leads.NewService(leads.NewRepository(db), userService, queryCache, pipeline, staleTime)
	followUpService := followups.NewService(followups.NewRepository(db), queryCache, pipeline, staleTime)
	meetingService := meetings.NewService(meetings.NewRepository(db), queryCache, pipeline, staleTime)
	attendanceService := attendance.NewService(attendance.NewRepository(db), queryCache, pipeline, staleTime)
	reportService := dailyreports.NewService(dailyreports.NewRepository(db), queryCache, pipeline, staleTime)
	todoService := todos.NewService(todos.NewRepository(db), queryCache, pipeline, staleTime)

	ctx := context.Background()

	passwordHash, err := auth.HashPassword("password123")
	if err != nil {
		log.Fatalf("❌ Failed to hash seed password: %v", err)
	}

	// Manager and super admin accounts
	admin, err := userService.Create(ctx, "seed", users.CreateInput{
		FullName:     "Demo Admin",
		Email:        "admin@pulsecrm.local",
		PasswordHash: passwordHash,
		Role:         models.RoleSuperAdmin,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create admin: %v", err)
	}

	manager, err := userService.Create(ctx, admin.ID, users.CreateInput{
		FullName:     "Demo Manager",
		Email:        "manager@pulsecrm.local",
		PasswordHash: passwordHash,
		Role:         models.RoleManager,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create manager: %v", err)
	}
	log.Printf("✅ Created admin and manager accounts (password: password123)")

	// Agent accounts reporting to the manager
	agents := make([]*models.UserProfile, 0, *agentCount)
	for i := 0; i < *agentCount; i++ {
		agent, err := userService.Create(ctx, manager.ID, users.CreateInput{
			FullName:     gofakeit.Name(),
			Email:        fmt.Sprintf("agent%d@pulsecrm.local", i+1),
			PasswordHash: passwordHash,
			Role:         models.RoleAgent,
			ManagerID:    &manager.ID,
		})
		if err != nil {
			log.Fatalf("❌ Failed to create agent: %v", err)
		}
		agents = append(agents, agent)
	}
	log.Printf("✅ Created %d agents", len(agents))

	// Leads spread across agents, with follow-ups and meetings on a subset
	tiers := []string{models.TierP1, models.TierP2, models.TierP3}
	created := 0
	for i := 0; i < *leadCount; i++ {
		agent := agents[rng.Intn(len(agents))]
		lead, err := leadService.Create(ctx, manager.ID, leads.CreateInput{
			ClientName:   gofakeit.Company(),
			ClientEmail:  gofakeit.Email(),
			ClientPhone:  "",
			AgentID:      &agent.ID,
			StatusBucket: tiers[rng.Intn(len(tiers))],
			LeadSource:   leadSources[rng.Intn(len(leadSources))],
			DealValue:    gofakeit.Price(500, 50000),
		})
		if err != nil {
			log.Fatalf("❌ Failed to create lead: %v", err)
		}
		created++

		if rng.Float64() < 0.4 {
			due := time.Now().AddDate(0, 0, rng.Intn(14)+1)
			if _, err := followUpService.Create(ctx, agent.ID, followups.CreateInput{
				LeadID:  lead.ID,
				AgentID: agent.ID,
				DueDate: due,
				Notes:   gofakeit.Sentence(8),
			}); err != nil {
				log.Fatalf("❌ Failed to create follow-up: %v", err)
			}
		}

		if rng.Float64() < 0.25 {
			start := time.Now().AddDate(0, 0, rng.Intn(7)+1).Truncate(time.Hour)
			if _, err := meetingService.Create(ctx, agent.ID, meetings.CreateInput{
				Title:     fmt.Sprintf("Intro call with %s", lead.ClientName),
				LeadID:    lead.ID,
				AgentID:   agent.ID,
				StartTime: start,
				EndTime:   start.Add(30 * time.Minute),
				Location:  "Google Meet",
			}); err != nil {
				log.Fatalf("❌ Failed to create meeting: %v", err)
			}
		}
	}
	log.Printf("✅ Created %d leads with follow-ups and meetings", created)

	// Today's attendance and a personal todo list per agent
	for _, agent := range agents {
		if _, err := attendanceService.CheckIn(ctx, agent.ID, "seeded"); err != nil {
			log.Fatalf("❌ Failed to check in agent: %v", err)
		}

		for j := 0; j < 3; j++ {
			priorities := []string{"low", "medium", "high"}
			if _, err := todoService.Create(ctx, agent.ID, todos.CreateInput{
				Title:    gofakeit.Sentence(5),
				DueDate:  time.Now().AddDate(0, 0, rng.Intn(5)+1),
				Priority: priorities[rng.Intn(len(priorities))],
			}); err != nil {
				log.Fatalf("❌ Failed to create todo: %v", err)
			}
		}
	}
	log.Printf("✅ Checked in %d agents and created todos", len(agents))

	// Yesterday's daily reports, one team shape per agent
	yesterday := time.Now().AddDate(0, 0, -1)
	for i, agent := range agents {
		in := dailyreports.SubmitInput{
			AgentID:    agent.ID,
			ReportDate: yesterday,
		}
		switch i % 3 {
		case 0:
			in.TeamType = models.TeamTelesales
			in.OutreachCount = intPtr(rng.Intn(40) + 10)
			in.ResponsesCount = intPtr(rng.Intn(10))
		case 1:
			in.TeamType = models.TeamLinkedin
			in.ConnectionsSent = intPtr(rng.Intn(30) + 5)
			in.MessagesSent = intPtr(rng.Intn(20) + 5)
			in.RepliesReceived = intPtr(rng.Intn(8))
		default:
			in.TeamType = models.TeamColdEmail
			in.EmailsSent = intPtr(rng.Intn(100) + 20)
			in.EmailsOpened = intPtr(rng.Intn(40))
			in.Bounces = intPtr(rng.Intn(5))
		}
		if _, err := reportService.Submit(ctx, agent.ID, in); err != nil {
			log.Fatalf("❌ Failed to submit daily report: %v", err)
		}
	}
	log.Printf("✅ Submitted daily reports for %d agents", len(agents))

	log.Printf("🌱 Seed complete: 2 admin accounts, %d agents, %d leads", len(agents), created)
}

func intPtr(v int) *int { return &v }
