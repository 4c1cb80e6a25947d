package lodgify

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

const defaultBaseURL = "https://api.lodgify.com/v2"

const dateLayout = "2006-01-02"

// Adapter speaks the Lodgify public API, authenticated with a per-account
// API key.
type Adapter struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

func New(cfg domain.AdapterConfig) (domain.Adapter, error) {
	apiKey := strings.TrimSpace(cfg.Credentials["api_key"])
	if apiKey == "" {
		return nil, fmt.Errorf("%w: api_key required", domain.ErrInvalidCredentials)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		http:    &http.Client{Timeout: domain.RequestTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}, nil
}

type propertyPayload struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Currency string `json:"currency_code"`
	Rooms    []struct {
		MaxPeople int `json:"max_people"`
		Bedrooms  int `json:"bedrooms"`
	} `json:"rooms"`
	PriceUnit struct {
		MinPrice float64 `json:"min_price"`
	} `json:"price_unit_in_days"`
}

type bookingPayload struct {
	ID          int64   `json:"id"`
	PropertyID  int64   `json:"property_id"`
	Arrival     string  `json:"arrival"`
	Departure   string  `json:"departure"`
	TotalAmount float64 `json:"total_amount"`
	Source      string  `json:"source"`
	Status      string  `json:"status"`
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	var out struct {
		Items []propertyPayload `json:"items"`
	}
	return a.do(ctx, http.MethodGet, "/properties?size=1", nil, &out)
}

func (a *Adapter) ListProperties(ctx context.Context) ([]domain.NormalizedProperty, error) {
	var out struct {
		Items []propertyPayload `json:"items"`
	}
	if err := a.do(ctx, http.MethodGet, "/properties", nil, &out); err != nil {
		return nil, err
	}

	properties := make([]domain.NormalizedProperty, 0, len(out.Items))
	for _, p := range out.Items {
		capacity, bedrooms := 0, 0
		for _, room := range p.Rooms {
			capacity += room.MaxPeople
			bedrooms += room.Bedrooms
		}
		properties = append(properties, domain.NormalizedProperty{
			PMSID:        strconv.FormatInt(p.ID, 10),
			Name:         p.Name,
			Address:      p.Address,
			Location:     p.City,
			Currency:     strings.ToUpper(p.Currency),
			BasePrice:    p.PriceUnit.MinPrice,
			PropertyType: "other",
			Capacity:     capacity,
			Bedrooms:     bedrooms,
		})
	}
	return properties, nil
}

func (a *Adapter) ListReservations(ctx context.Context, start, end time.Time) ([]domain.NormalizedReservation, error) {
	query := url.Values{
		"stayFilter":  {"ArrivalDate"},
		"periodStart": {start.Format(dateLayout)},
		"periodEnd":   {end.Format(dateLayout)},
	}
	var out struct {
		Items []bookingPayload `json:"items"`
	}
	if err := a.do(ctx, http.MethodGet, "/reservations/bookings?"+query.Encode(), nil, &out); err != nil {
		return nil, err
	}

	reservations := make([]domain.NormalizedReservation, 0, len(out.Items))
	for _, b := range out.Items {
		arrival, err := time.Parse(dateLayout, b.Arrival)
		if err != nil {
			return nil, fmt.Errorf("%w: arrival %q", domain.ErrMalformedResponse, b.Arrival)
		}
		departure, err := time.Parse(dateLayout, b.Departure)
		if err != nil {
			return nil, fmt.Errorf("%w: departure %q", domain.ErrMalformedResponse, b.Departure)
		}
		reservations = append(reservations, domain.NormalizedReservation{
			PMSID:         strconv.FormatInt(b.ID, 10),
			PropertyPMSID: strconv.FormatInt(b.PropertyID, 10),
			StartDate:     arrival,
			EndDate:       departure,
			TotalPrice:    b.TotalAmount,
			Channel:       b.Source,
			Status:        normalizeStatus(b.Status),
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
	propertyID, err := strconv.ParseInt(propertyPMSID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: property id %q", domain.ErrMalformedResponse, propertyPMSID)
	}

	type rateEntry struct {
		IsDefault   bool    `json:"is_default"`
		StartDate   string  `json:"start_date"`
		EndDate     string  `json:"end_date"`
		PricePerDay float64 `json:"price_per_day"`
	}
	entries := make([]rateEntry, 0, len(rates))
	for _, rate := range rates {
		day := rate.Date.Format(dateLayout)
		entries = append(entries, rateEntry{StartDate: day, EndDate: day, PricePerDay: rate.Price})
	}
	body := map[string]interface{}{
		"property_id": propertyID,
		"rates":       entries,
	}
	return a.do(ctx, http.MethodPost, "/rates/savewithoutavailability", body, nil)
}

func (a *Adapter) UpdatePropertySettings(ctx context.Context, propertyPMSID string, settings domain.PropertySettings) error {
	body := map[string]interface{}{}
	if settings.BasePrice != nil {
		body["min_price"] = *settings.BasePrice
	}
	if settings.MinStay != nil {
		body["min_stay"] = *settings.MinStay
	}
	if settings.MaxStay != nil {
		body["max_stay"] = *settings.MaxStay
	}
	if len(body) == 0 {
		return nil
	}
	return a.do(ctx, http.MethodPut, "/properties/"+url.PathEscape(propertyPMSID), body, nil)
}

func (a *Adapter) CreateReservation(ctx context.Context, reservation domain.NormalizedReservation) (string, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := a.do(ctx, http.MethodPost, "/reservations/bookings", bookingBody(reservation), &out); err != nil {
		return "", err
	}
	if out.ID == 0 {
		return "", fmt.Errorf("%w: missing booking id", domain.ErrMalformedResponse)
	}
	return strconv.FormatInt(out.ID, 10), nil
}

func (a *Adapter) UpdateReservation(ctx context.Context, pmsID string, reservation domain.NormalizedReservation) error {
	return a.do(ctx, http.MethodPut, "/reservations/bookings/"+url.PathEscape(pmsID), bookingBody(reservation), nil)
}

func (a *Adapter) DeleteReservation(ctx context.Context, pmsID string) error {
	return a.do(ctx, http.MethodDelete, "/reservations/bookings/"+url.PathEscape(pmsID), nil, nil)
}

func bookingBody(r domain.NormalizedReservation) map[string]interface{} {
	propertyID, _ := strconv.ParseInt(r.PropertyPMSID, 10, 64)
	return map[string]interface{}{
		"property_id":  propertyID,
		"arrival":      r.StartDate.Format(dateLayout),
		"departure":    r.EndDate.Format(dateLayout),
		"total_amount": r.TotalPrice,
		"source":       r.Channel,
		"status":       r.Status,
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
	req.Header.Set("X-ApiKey", a.apiKey)
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
	case "booked", "confirmed", "paid":
		return "confirmed"
	case "open", "tentative", "pending":
		return "pending"
	case "declined", "cancelled":
		return "cancelled"
	default:
		return "pending"
	}
}
