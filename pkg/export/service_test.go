package export

import (
	"context"
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/leads"
	"github.com/pulsecrm/backend/pkg/logger"
	"github.com/pulsecrm/backend/pkg/models"
	"github.com/pulsecrm/backend/pkg/mutation"
)

type fakeLeadStore struct {
	rows []models.Lead
}

func (f *fakeLeadStore) List(ctx context.Context, filters leads.Filters) ([]models.Lead, error) {
	return append([]models.Lead{}, f.rows...), nil
}

func (f *fakeLeadStore) Get(ctx context.Context, id string) (*models.Lead, error) {
	return nil, domain.NewNotFoundError("lead")
}

func (f *fakeLeadStore) Create(ctx context.Context, in leads.CreateInput) (*models.Lead, error) {
	return nil, nil
}

func (f *fakeLeadStore) Update(ctx context.Context, id string, in leads.UpdateInput) (*models.Lead, error) {
	return nil, nil
}

type allAgents struct{}

func (allAgents) IsAgent(ctx context.Context, id string) (bool, error) { return true, nil }

type nopNotifier struct{}

func (nopNotifier) Notify(ctx context.Context, n domain.Notification) {}

func setupService(t *testing.T, rows []models.Lead) *Service {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	log := logger.Default()
	qc := cache.NewQueryCache(client, log)
	pipeline := mutation.New(qc, nopNotifier{}, log)

	leadSvc := leads.NewService(&fakeLeadStore{rows: rows}, allAgents{}, qc, pipeline, time.Minute)
	return NewService(leadSvc, t.TempDir())
}

func sampleLeads() []models.Lead {
	agent := "agent-1"
	return []models.Lead{
		{ID: "l-1", ClientName: "Acme Corp", ClientEmail: "ops@acme.test", ClientPhone: "+15550001111",
			StatusBucket: models.TierP1, LeadSource: "referral", DealValue: 12000, AgentID: &agent,
			CreatedAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
		{ID: "l-2", ClientName: "Globex", ClientEmail: "info@globex.test", ClientPhone: "+15550002222",
			StatusBucket: models.TierP3, LeadSource: "cold_email", DealValue: 0,
			CreatedAt: time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC)},
	}
}

func TestService_ExportCSV(t *testing.T) {
	svc := setupService(t, sampleLeads())

	res, err := svc.Export(context.Background(), FormatCSV, leads.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.LeadCount)

	file, err := os.Open(res.FilePath)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportHeaders, records[0])
	assert.Equal(t, "Acme Corp", records[1][1])
	assert.Equal(t, "", records[2][7], "unassigned lead has empty agent column")
}

func TestService_ExportExcelWritesFile(t *testing.T) {
	svc := setupService(t, sampleLeads())

	res, err := svc.Export(context.Background(), FormatExcel, leads.Filters{})
	require.NoError(t, err)

	info, err := os.Stat(res.FilePath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	assert.Contains(t, res.FileName, ".xlsx")
}

func TestService_ExportRejectsUnknownFormat(t *testing.T) {
	svc := setupService(t, nil)

	_, err := svc.Export(context.Background(), "pdf", leads.Filters{})
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
}
