// Package steam looks up game metadata from the public Steam storefront
// appdetails API and normalizes it into a shape the catalog frontend can
// consume directly.
package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"
)

var (
	// ErrInvalidAppID is returned when no numeric app id can be extracted
	// from the input.
	ErrInvalidAppID = errors.New("invalid steam url or app id")

	// ErrNotFound is returned when Steam reports no data for the app id.
	ErrNotFound = errors.New("game not found or data unavailable")
)

var appIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`store\.steampowered\.com/app/(\d+)`),
	regexp.MustCompile(`steamcommunity\.com/app/(\d+)`),
}

var allDigits = regexp.MustCompile(`^\d+$`)

// ExtractAppID pulls a Steam app id from a store or community URL, or accepts
// a bare numeric id. It returns ErrInvalidAppID when nothing matches.
func ExtractAppID(input string) (string, error) {
	for _, pattern := range appIDPatterns {
		if match := pattern.FindStringSubmatch(input); match != nil {
			return match[1], nil
		}
	}
	if allDigits.MatchString(input) {
		return input, nil
	}
	return "", ErrInvalidAppID
}

// Price is a price block converted from Steam's minor currency units.
type Price struct {
	Currency string  `json:"currency"`
	Initial  float64 `json:"initial"`
	Final    float64 `json:"final"`
	Discount int     `json:"discount"`
}

// AppDetails is the normalized lookup result.
type AppDetails struct {
	AppID           string   `json:"appId"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	FullDescription string   `json:"fullDescription"`
	HeaderImage     string   `json:"headerImage"`
	Screenshots     []string `json:"screenshots"`
	ReleaseDate     string   `json:"releaseDate"`
	Developers      []string `json:"developers"`
	Publishers      []string `json:"publishers"`
	Genres          []string `json:"genres"`
	IsFree          bool     `json:"isFree"`
	SteamURL        string   `json:"steamUrl"`
	Price           *Price   `json:"price,omitempty"`
	SteamRating     *int     `json:"steamRating"`
	MetacriticScore *int     `json:"metacriticScore"`
}

// Client queries the Steam appdetails endpoint. The zero value is not usable;
// construct it with NewClient.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the storefront endpoint, primarily for tests.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient constructs a Client with a 10-second request timeout.
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://store.steampowered.com/api/appdetails",
		userAgent:  "Mozilla/5.0",
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// appdetails responses are keyed by app id, each entry carrying a success
// flag beside the payload.
type appDetailsEnvelope struct {
	Success bool           `json:"success"`
	Data    appDetailsData `json:"data"`
}

type appDetailsData struct {
	Name                string `json:"name"`
	ShortDescription    string `json:"short_description"`
	DetailedDescription string `json:"detailed_description"`
	HeaderImage         string `json:"header_image"`
	Screenshots         []struct {
		PathFull string `json:"path_full"`
	} `json:"screenshots"`
	ReleaseDate struct {
		Date string `json:"date"`
	} `json:"release_date"`
	Developers []string `json:"developers"`
	Publishers []string `json:"publishers"`
	Genres     []struct {
		Description string `json:"description"`
	} `json:"genres"`
	IsFree        bool `json:"is_free"`
	PriceOverview *struct {
		Currency        string `json:"currency"`
		Initial         int    `json:"initial"`
		Final           int    `json:"final"`
		DiscountPercent int    `json:"discount_percent"`
	} `json:"price_overview"`
	Recommendations *struct {
		Total int `json:"total"`
	} `json:"recommendations"`
	Metacritic *struct {
		Score int `json:"score"`
	} `json:"metacritic"`
}

// Lookup resolves the input to an app id and fetches its details. Results are
// requested with Russian localization to match the catalog language.
func (c *Client) Lookup(ctx context.Context, urlOrID string) (AppDetails, error) {
	appID, err := ExtractAppID(urlOrID)
	if err != nil {
		return AppDetails{}, err
	}
	return c.Fetch(ctx, appID)
}

// Fetch retrieves and normalizes details for a known app id.
func (c *Client) Fetch(ctx context.Context, appID string) (AppDetails, error) {
	query := url.Values{}
	query.Set("appids", appID)
	query.Set("l", "russian")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return AppDetails{}, fmt.Errorf("build steam request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return AppDetails{}, fmt.Errorf("fetch steam data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return AppDetails{}, fmt.Errorf("steam responded with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return AppDetails{}, fmt.Errorf("read steam response: %w", err)
	}

	var payload map[string]appDetailsEnvelope
	if err := json.Unmarshal(body, &payload); err != nil {
		return AppDetails{}, fmt.Errorf("decode steam response: %w", err)
	}
	envelope, ok := payload[appID]
	if !ok || !envelope.Success {
		return AppDetails{}, ErrNotFound
	}
	return normalize(appID, envelope.Data), nil
}

func normalize(appID string, data appDetailsData) AppDetails {
	screenshots := []string{}
	for _, screenshot := range data.Screenshots {
		screenshots = append(screenshots, screenshot.PathFull)
		if len(screenshots) == 5 {
			break
		}
	}
	genres := []string{}
	for _, genre := range data.Genres {
		genres = append(genres, genre.Description)
	}
	developers := data.Developers
	if developers == nil {
		developers = []string{}
	}
	publishers := data.Publishers
	if publishers == nil {
		publishers = []string{}
	}

	details := AppDetails{
		AppID:           appID,
		Name:            data.Name,
		Description:     data.ShortDescription,
		FullDescription: data.DetailedDescription,
		HeaderImage:     data.HeaderImage,
		Screenshots:     screenshots,
		ReleaseDate:     data.ReleaseDate.Date,
		Developers:      developers,
		Publishers:      publishers,
		Genres:          genres,
		IsFree:          data.IsFree,
		SteamURL:        "https://store.steampowered.com/app/" + appID,
	}
	if data.PriceOverview != nil {
		currency := data.PriceOverview.Currency
		if currency == "" {
			currency = "RUB"
		}
		details.Price = &Price{
			Currency: currency,
			Initial:  float64(data.PriceOverview.Initial) / 100,
			Final:    float64(data.PriceOverview.Final) / 100,
			Discount: data.PriceOverview.DiscountPercent,
		}
	}
	if data.Recommendations != nil {
		total := data.Recommendations.Total
		details.SteamRating = &total
	}
	if data.Metacritic != nil {
		score := data.Metacritic.Score
		details.MetacriticScore = &score
	}
	return details
}
