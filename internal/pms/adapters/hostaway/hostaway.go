package hostaway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hostwise/nightly/internal/pms/domain"
)

const defaultBaseURL = "https://api.hostaway.com/v1"

const dateLayout = "2006-01-02"

// Adapter speaks the Hostaway REST API. One instance per connected account;
// no state is kept between calls.
type Adapter struct {
	http      *http.Client
	baseURL   string
	accountID string
	apiKey    string
}

func New(cfg domain.AdapterConfig) (domain.Adapter, error) {
	accountID := strings.TrimSpace(cfg.Credentials["account_id"])
	apiKey := strings.TrimSpace(cfg.Credentials["api_key"])
	if accountID == "" || apiKey == "" {
		return nil, fmt.Errorf("%w: account_id and api_key required", domain.ErrInvalidCredentials)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		http:      &http.Client{Timeout: domain.RequestTimeout},
		baseURL:   strings.TrimRight(baseURL, "/"),
		accountID: accountID,
		apiKey:    apiKey,
	}, nil
}

type listingPayload struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	City         string  `json:"city"`
	Currency     string  `json:"currencyCode"`
	Timezone     string  `json:"timeZoneName"`
	BasePrice    float64 `json:"price"`
	PropertyType string  `json:"propertyTypeName"`
	Capacity     int     `json:"personCapacity"`
	Bedrooms     int     `json:"bedroomsNumber"`
}

type reservationPayload struct {
	ID            int64   `json:"id"`
	ListingID     int64   `json:"listingMapId"`
	ArrivalDate   string  `json:"arrivalDate"`
	DepartureDate string  `json:"departureDate"`
	TotalPrice    float64 `json:"totalPrice"`
	ChannelName   string  `json:"channelName"`
	Status        string  `json:"status"`
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	var out struct {
		Result []listingPayload `json:"result"`
	}
	query := url.Values{"limit": {"1"}}
	return a.do(ctx, http.MethodGet, "/listings?"+query.Encode(), nil, &out)
}

func (a *Adapter) ListProperties(ctx context.Context) ([]domain.NormalizedProperty, error) {
	var out struct {
		Result []listingPayload `json:"result"`
	}
	if err := a.do(ctx, http.MethodGet, "/listings", nil, &out); err != nil {
		return nil, err
	}

	properties := make([]domain.NormalizedProperty, 0, len(out.Result))
	for _, listing := range out.Result {
		properties = append(properties, domain.NormalizedProperty{
			PMSID:        strconv.FormatInt(listing.ID, 10),
			Name:         listing.Name,
			Address:      listing.Address,
			Location:     listing.City,
			Currency:     strings.ToUpper(listing.Currency),
			Timezone:     listing.Timezone,
			BasePrice:    listing.BasePrice,
			PropertyType: normalizePropertyType(listing.PropertyType),
			Capacity:     listing.Capacity,
			Bedrooms:     listing.Bedrooms,
		})
	}
	return properties, nil
}

func (a *Adapter) ListReservations(ctx context.Context, start, end time.Time) ([]domain.NormalizedReservation, error) {
	query := url.Values{
		"arrivalStartDate": {start.Format(dateLayout)},
		"arrivalEndDate":   {end.Format(dateLayout)},
	}
	var out struct {
		Result []reservationPayload `json:"result"`
	}
	if err := a.do(ctx, http.MethodGet, "/reservations?"+query.Encode(), nil, &out); err != nil {
		return nil, err
	}

	reservations := make([]domain.NormalizedReservation, 0, len(out.Result))
	for _, r := range out.Result {
		arrival, err := time.Parse(dateLayout, r.ArrivalDate)
		if err != nil {
			return nil, fmt.Errorf("%w: arrival %q", domain.ErrMalformedResponse, r.ArrivalDate)
		}
		departure, err := time.Parse(dateLayout, r.DepartureDate)
		if err != nil {
			return nil, fmt.Errorf("%w: departure %q", domain.ErrMalformedResponse, r.DepartureDate)
		}
		reservations = append(reservations, domain.NormalizedReservation{
			PMSID:         strconv.FormatInt(r.ID, 10),
			PropertyPMSID: strconv.FormatInt(r.ListingID, 10),
			StartDate:     arrival,
			EndDate:       departure,
			TotalPrice:    r.TotalPrice,
			Channel:       r.ChannelName,
			Status:        normalizeStatus(r.Status),
		})
	}
	return reservations, nil
}

func (a *Adapter) UpdateRate(ctx context.Context, propertyPMSID string, date time.Time, price float64) error {
	return a.UpdateRatesBatch(ctx, propertyPMSID, []domain.RateUpdate{{Date: date, Price: price}})
}

func (a *Adapter) UpdateRatesBatch(ctx context.Context, propertyPMSID string, rates []domain.RateUpdate) error {
	if len(rates) == 0 {
		return nil
	}
	type calendarDay struct {
		Date  string  `json:"date"`
		Price float64 `json:"price"`
	}
	days := make([]calendarDay, 0, len(rates))
	for _, rate := range rates {
		days = append(days, calendarDay{Date: rate.Date.Format(dateLayout), Price: rate.Price})
	}
	body := map[string]interface{}{"calendar": days}
	return a.do(ctx, http.MethodPut, "/listings/"+url.PathEscape(propertyPMSID)+"/calendar", body, nil)
}

func (a *Adapter) UpdatePropertySettings(ctx context.Context, propertyPMSID string, settings domain.PropertySettings) error {
	body := map[string]interface{}{}
	if settings.BasePrice != nil {
		body["price"] = *settings.BasePrice
	}
	if settings.MinStay != nil {
		body["minNights"] = *settings.MinStay
	}
	if settings.MaxStay != nil {
		body["maxNights"] = *settings.MaxStay
	}
	if settings.WeeklyDiscountPct != nil {
		body["weeklyDiscount"] = *settings.WeeklyDiscountPct
	}
	if settings.MonthlyDiscountPct != nil {
		body["monthlyDiscount"] = *settings.MonthlyDiscountPct
	}
	if len(body) == 0 {
		return nil
	}
	return a.do(ctx, http.MethodPut, "/listings/"+url.PathEscape(propertyPMSID), body, nil)
}

func (a *Adapter) CreateReservation(ctx context.Context, reservation domain.NormalizedReservation) (string, error) {
	var out struct {
		Result reservationPayload `json:"result"`
	}
	if err := a.do(ctx, http.MethodPost, "/reservations", reservationBody(reservation), &out); err != nil {
		return "", err
	}
	if out.Result.ID == 0 {
		return "", fmt.Errorf("%w: missing reservation id", domain.ErrMalformedResponse)
	}
	return strconv.FormatInt(out.Result.ID, 10), nil
}

func (a *Adapter) UpdateReservation(ctx context.Context, pmsID string, reservation domain.NormalizedReservation) error {
	return a.do(ctx, http.MethodPut, "/reservations/"+url.PathEscape(pmsID), reservationBody(reservation), nil)
}

func (a *Adapter) DeleteReservation(ctx context.Context, pmsID string) error {
	return a.do(ctx, http.MethodDelete, "/reservations/"+url.PathEscape(pmsID), nil, nil)
}

func reservationBody(r domain.NormalizedReservation) map[string]interface{} {
	listingID, _ := strconv.ParseInt(r.PropertyPMSID, 10, 64)
	return map[string]interface{}{
		"listingMapId":  listingID,
		"arrivalDate":   r.StartDate.Format(dateLayout),
		"departureDate": r.EndDate.Format(dateLayout),
		"totalPrice":    r.TotalPrice,
		"channelName":   r.Channel,
		"status":        r.Status,
	}
}

func (a *Adapter) do(ctx context.Context, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, domain.RequestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("X-Account-Id", a.accountID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.ErrInvalidCredentials
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", domain.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", domain.ErrMalformedResponse, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}

func normalizeStatus(status string) string {
	switch strings.ToLower(status) {
	case "new", "modified", "ownerstay", "confirmed":
		return "confirmed"
	case "pending", "awaitingpayment", "inquiry":
		return "pending"
	case "cancelled", "declined", "expired":
		return "cancelled"
	default:
		return "pending"
	}
}

func normalizePropertyType(name string) string {
	switch strings.ToLower(name) {
	case "apartment", "condominium", "loft":
		return "apartment"
	case "house", "cottage", "chalet", "bungalow":
		return "house"
	case "villa":
		return "villa"
	case "studio":
		return "studio"
	case "private room", "room":
		return "room"
	default:
		return "other"
	}
}
