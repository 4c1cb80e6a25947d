package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/hostwise/nightly/internal/clock"
	groupdomain "github.com/hostwise/nightly/internal/group/domain"
	grouprecdomain "github.com/hostwise/nightly/internal/grouprec/domain"
	integrationdomain "github.com/hostwise/nightly/internal/integration/domain"
	integrationrepo "github.com/hostwise/nightly/internal/integration/repository"
	ownerdomain "github.com/hostwise/nightly/internal/owner/domain"
	ownerrepo "github.com/hostwise/nightly/internal/owner/repository"
	syncdomain "github.com/hostwise/nightly/internal/sync/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubSync struct {
	pullAllCalls int
	pushed       []snowflake.ID
	pushErr      map[snowflake.ID]error
}

func (s *stubSync) Pull(context.Context, snowflake.ID) (syncdomain.PullSummary, error) {
	return syncdomain.PullSummary{}, nil
}

func (s *stubSync) Push(context.Context, snowflake.ID) (syncdomain.PushSummary, error) {
	return syncdomain.PushSummary{}, nil
}

func (s *stubSync) PullIntegration(context.Context, *integrationdomain.Integration) (syncdomain.PullSummary, error) {
	return syncdomain.PullSummary{}, nil
}

func (s *stubSync) PushIntegration(_ context.Context, integration *integrationdomain.Integration) (syncdomain.PushSummary, error) {
	if err := s.pushErr[integration.ID]; err != nil {
		return syncdomain.PushSummary{}, err
	}
	s.pushed = append(s.pushed, integration.ID)
	return syncdomain.PushSummary{IntegrationID: integration.ID}, nil
}

func (s *stubSync) PullAll(context.Context) ([]syncdomain.PullSummary, error) {
	s.pullAllCalls++
	return nil, nil
}

func (s *stubSync) PushSettings(context.Context, snowflake.ID) error {
	return nil
}

type stubRecommender struct {
	scanned []snowflake.ID
}

func (s *stubRecommender) List(context.Context) ([]grouprecdomain.Recommendation, error) {
	return nil, nil
}

func (s *stubRecommender) Accept(context.Context, grouprecdomain.AcceptRequest) (groupdomain.GroupWithMembers, error) {
	return groupdomain.GroupWithMembers{}, nil
}

func (s *stubRecommender) ScanOwner(_ context.Context, ownerID snowflake.ID) ([]grouprecdomain.Recommendation, error) {
	s.scanned = append(s.scanned, ownerID)
	return nil, nil
}

type schedFixture struct {
	db    *gorm.DB
	sched *Scheduler
	sync  *stubSync
	rec   *stubRecommender
	node  *snowflake.Node
}

func newFixture(t *testing.T, cfg Config) *schedFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ownerdomain.Owner{}, &integrationdomain.Integration{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	syncStub := &stubSync{pushErr: map[snowflake.ID]error{}}
	recStub := &stubRecommender{}

	sched, err := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		Clock:        clock.NewFake(time.Date(2026, 5, 20, 6, 0, 0, 0, time.UTC)),
		Sync:         syncStub,
		Recommender:  recStub,
		Integrations: integrationrepo.Provide(),
		Owners:       ownerrepo.Provide(),
		Config:       cfg,
	})
	require.NoError(t, err)

	return &schedFixture{db: db, sched: sched, sync: syncStub, rec: recStub, node: node}
}

func (f *schedFixture) createOwner(t *testing.T, email string) *ownerdomain.Owner {
	t.Helper()
	owner := &ownerdomain.Owner{
		ID:       f.node.Generate(),
		Email:    email,
		Name:     "Host",
		Currency: "EUR",
		Language: "en",
		Timezone: "UTC",
	}
	require.NoError(t, f.db.Create(owner).Error)
	return owner
}

func (f *schedFixture) createIntegration(t *testing.T, ownerID snowflake.ID, pmsType string, enabled bool) *integrationdomain.Integration {
	t.Helper()
	integration := &integrationdomain.Integration{
		ID:          f.node.Generate(),
		OwnerID:     ownerID,
		PMSType:     pmsType,
		Credentials: []byte("sealed"),
		Status:      integrationdomain.StatusConnected,
		Enabled:     enabled,
	}
	require.NoError(t, f.db.Create(integration).Error)
	return integration
}

func TestRunOnceRunsAllJobs(t *testing.T) {
	f := newFixture(t, Config{})
	owner := f.createOwner(t, "a@example.com")
	enabled := f.createIntegration(t, owner.ID, "hostaway", true)
	f.createIntegration(t, owner.ID, "lodgify", false)

	require.NoError(t, f.sched.RunOnce(context.Background()))

	assert.Equal(t, 1, f.sync.pullAllCalls)
	assert.Equal(t, []snowflake.ID{enabled.ID}, f.sync.pushed, "disabled integrations are not pushed")
	assert.Equal(t, []snowflake.ID{owner.ID}, f.rec.scanned)
}

func TestRunOnceHonorsJobEnablement(t *testing.T) {
	f := newFixture(t, Config{EnabledJobs: []string{"reservation_pull"}})
	owner := f.createOwner(t, "a@example.com")
	f.createIntegration(t, owner.ID, "hostaway", true)

	require.NoError(t, f.sched.RunOnce(context.Background()))

	assert.Equal(t, 1, f.sync.pullAllCalls)
	assert.Empty(t, f.sync.pushed)
	assert.Empty(t, f.rec.scanned)
}

func TestRatePushContinuesPastFailures(t *testing.T) {
	f := newFixture(t, Config{})
	owner := f.createOwner(t, "a@example.com")
	broken := f.createIntegration(t, owner.ID, "hostaway", true)
	healthy := f.createIntegration(t, owner.ID, "lodgify", true)
	f.sync.pushErr[broken.ID] = errors.New("pms_down")

	err := f.sched.RatePushJob(context.Background())
	require.Error(t, err)
	assert.Equal(t, []snowflake.ID{healthy.ID}, f.sync.pushed)
}

func TestRatePushSkipsBusyIntegrations(t *testing.T) {
	f := newFixture(t, Config{})
	owner := f.createOwner(t, "a@example.com")
	busy := f.createIntegration(t, owner.ID, "hostaway", true)
	f.sync.pushErr[busy.ID] = syncdomain.ErrSyncInProgress

	// A pull already holding the lock is not an error.
	assert.NoError(t, f.sched.RatePushJob(context.Background()))
}
