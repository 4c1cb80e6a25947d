package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	aidomain "github.com/hostwise/nightly/internal/ai/domain"
	"github.com/hostwise/nightly/internal/ai/client"
	"github.com/hostwise/nightly/internal/ai/sanitize"
	signaldomain "github.com/hostwise/nightly/internal/marketsignal/domain"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const newsSystemPrompt = "You are a short-term-rental market analyst. " +
	"Respond with a single JSON object: " +
	`{"headlines":[{"title":string,"summary":string,"impact":"low"|"medium"|"high"}]}.`

const analysisSystemPrompt = "You are a short-term-rental pricing analyst. " +
	"Respond with a single JSON object: " +
	`{"demand":"low"|"medium"|"high","summary":string,"factors":[string]}.`

// Fetcher fills market-signal cache entries through the LLM provider. These
// are system-initiated calls and do not consume owner quota.
type Fetcher struct {
	db     *gorm.DB
	log    *zap.Logger
	client *client.Client
}

func New(db *gorm.DB, log *zap.Logger, c *client.Client) signaldomain.Fetcher {
	return &Fetcher{db: db, log: log.Named("ai.fetcher"), client: c}
}

func (f *Fetcher) FetchNews(ctx context.Context, language string) (json.RawMessage, error) {
	user := fmt.Sprintf(
		"Summarize current short-term-rental market news relevant to independent hosts. Answer in language %q.",
		sanitize.Text(language),
	)

	var out struct {
		Headlines []struct {
			Title   string `json:"title"`
			Summary string `json:"summary"`
			Impact  string `json:"impact"`
		} `json:"headlines"`
	}
	if err := f.client.CompleteJSON(ctx, newsSystemPrompt, user, &out); err != nil {
		return nil, err
	}
	if len(out.Headlines) == 0 {
		return nil, fmt.Errorf("%w: no headlines", aidomain.ErrProviderMalformed)
	}
	return json.Marshal(out)
}

func (f *Fetcher) FetchAnalysis(ctx context.Context, propertyID snowflake.ID, date time.Time, language string) (json.RawMessage, error) {
	var property propertydomain.Property
	err := f.db.WithContext(ctx).First(&property, "id = ?", propertyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: property %s", aidomain.ErrInvalidInput, propertyID)
		}
		return nil, err
	}

	user := fmt.Sprintf(
		"Analyze demand for %s in %s on %s. Capacity %d, bedrooms %d. Answer in language %q.",
		sanitize.Categorical(property.PropertyType, []string{"apartment", "house", "villa", "studio", "room", "other"}, "other"),
		sanitize.Text(property.Location),
		date.Format("2006-01-02"),
		sanitize.Int(float64(property.Capacity), 0, 64, 0),
		sanitize.Int(float64(property.Bedrooms), 0, 32, 0),
		sanitize.Text(language),
	)

	var out struct {
		Demand  string   `json:"demand"`
		Summary string   `json:"summary"`
		Factors []string `json:"factors"`
	}
	if err := f.client.CompleteJSON(ctx, analysisSystemPrompt, user, &out); err != nil {
		return nil, err
	}
	if out.Demand == "" {
		return nil, fmt.Errorf("%w: missing demand", aidomain.ErrProviderMalformed)
	}
	return json.Marshal(out)
}
