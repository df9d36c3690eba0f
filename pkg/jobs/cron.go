// Package jobs runs the scheduled background work: the morning follow-up
// reminder emails and the nightly marketing demo-data refresh.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pulsecrm/backend/pkg/email"
	"github.com/pulsecrm/backend/pkg/followups"
	"github.com/pulsecrm/backend/pkg/marketing"
	"github.com/pulsecrm/backend/pkg/models"
	"github.com/pulsecrm/backend/pkg/users"
)

// CronManager owns the scheduled jobs
type CronManager struct {
	cron      *cron.Cron
	followUps *followups.Service
	users     *users.Service
	marketing *marketing.Service
	email     *email.Service
	logger    *log.Logger
}

// NewCronManager creates the scheduler
func NewCronManager(followUpService *followups.Service, userService *users.Service, marketingService *marketing.Service, emailService *email.Service, logger *log.Logger) *CronManager {
	if logger == nil {
		logger = log.Default()
	}

	return &CronManager{
		cron:      cron.New(),
		followUps: followUpService,
		users:     userService,
		marketing: marketingService,
		email:     emailService,
		logger:    logger,
	}
}

// SetupJobs configures all scheduled jobs
func (cm *CronManager) SetupJobs() error {
	cm.logger.Println("Setting up cron jobs...")

	// Daily at 8 AM: email each agent the follow-ups due today
	_, err := cm.cron.AddFunc("0 8 * * *", func() {
		cm.logger.Println("🕐 Running morning follow-up reminder job...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		sent, err := cm.SendFollowUpReminders(ctx)
		if err != nil {
			cm.logger.Printf("❌ Follow-up reminder job failed: %v", err)
			return
		}
		cm.logger.Printf("✅ Follow-up reminders sent to %d agent(s)", sent)
	})
	if err != nil {
		return err
	}

	// Daily at 3 AM: regenerate the marketing demo data
	_, err = cm.cron.AddFunc("0 3 * * *", func() {
		cm.logger.Println("🕐 Refreshing marketing demo data...")

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := cm.marketing.Refresh(ctx); err != nil {
			cm.logger.Printf("❌ Marketing refresh failed: %v", err)
			return
		}
		cm.logger.Println("✅ Marketing demo data refreshed")
	})
	if err != nil {
		return err
	}

	cm.logger.Println("✅ Cron jobs configured successfully")
	cm.logger.Println("  - Daily at 8 AM: Follow-up reminder emails")
	cm.logger.Println("  - Daily at 3 AM: Marketing demo data refresh")

	return nil
}

// SendFollowUpReminders emails every agent their follow-ups due today and
// returns the number of reminder emails sent
func (cm *CronManager) SendFollowUpReminders(ctx context.Context) (int, error) {
	agents, err := cm.users.List(ctx, users.Filters{Role: models.RoleAgent})
	if err != nil {
		return 0, err
	}

	due, err := cm.followUps.DueOn(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, agent := range agents {
		mine := []models.FollowUp{}
		for _, fu := range due {
			if fu.AgentID == agent.ID {
				mine = append(mine, fu)
			}
		}
		if len(mine) == 0 {
			continue
		}
		if err := cm.email.SendFollowUpReminder(agent.Email, agent.FullName, mine); err != nil {
			cm.logger.Printf("❌ Failed to email %s: %v", agent.Email, err)
			continue
		}
		sent++
	}
	return sent, nil
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.logger.Println("🚀 Starting cron scheduler...")
	cm.cron.Start()
}

// Stop stops the cron scheduler
func (cm *CronManager) Stop() {
	cm.logger.Println("🛑 Stopping cron scheduler...")
	cm.cron.Stop()
}
