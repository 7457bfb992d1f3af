// Package extractor talks to the remote recipe extraction API, which turns a
// web page URL into recipe JSON.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"

	"recipebox/internal/recipe"
)

// ErrNoRecipe is returned when a page yields neither a title nor ingredients.
var ErrNoRecipe = errors.New("no recipe found at url")

// maxResponseSize bounds how much of an API response is read.
const maxResponseSize = 2 << 20

// Client represents a client for the extraction API.
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
}

// NewClient creates a new client for the extraction API.
func NewClient(apiURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient, apiURL: apiURL, apiKey: apiKey}
}

// Request represents the request body for the extraction API.
type Request struct {
	URL string `json:"url"`
}

// Response represents the recipe returned by the extraction API. Fields the
// API is loose about are kept raw and normalised in Recipe.
type Response struct {
	Title        string            `json:"title"`
	Image        string            `json:"image"`
	Cuisine      string            `json:"cuisine"`
	Yields       json.RawMessage   `json:"yields"`
	TotalTime    json.RawMessage   `json:"total_time"`
	Ingredients  []json.RawMessage `json:"ingredients"`
	Instructions json.RawMessage   `json:"instructions"`
	Error        string            `json:"error"`
}

// Extract fetches the recipe at url through the extraction API.
func (c *Client) Extract(ctx context.Context, url string) (*recipe.Recipe, error) {
	reqBytes, err := json.Marshal(Request{URL: url})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-OK status code: %d", resp.StatusCode)
	}

	extracted, err := DecodeResponse(body)
	if err != nil {
		return nil, err
	}
	if extracted.Error != "" {
		return nil, fmt.Errorf("extraction failed: %s", extracted.Error)
	}

	return extracted.Recipe(url)
}

// DecodeResponse unmarshals an extraction payload, repairing it first when it
// is not valid JSON.
func DecodeResponse(data []byte) (*Response, error) {
	var r Response
	err := json.Unmarshal(data, &r)
	if err == nil {
		return &r, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(string(data))
	if repairErr != nil {
		return nil, fmt.Errorf("failed to decode response body: %w (repair error: %v)", err, repairErr)
	}
	log.Debug().Err(err).Msg("extraction response needed repair")

	r = Response{}
	if err := json.Unmarshal([]byte(repaired), &r); err != nil {
		return nil, fmt.Errorf("failed to decode repaired response body: %w", err)
	}
	return &r, nil
}

// Recipe converts the payload into a recipe with upgraded ingredients.
func (r *Response) Recipe(sourceURL string) (*recipe.Recipe, error) {
	out := &recipe.Recipe{
		Title:        strings.TrimSpace(r.Title),
		SourceURL:    sourceURL,
		ImageURL:     strings.TrimSpace(r.Image),
		Cuisine:      strings.ToLower(strings.TrimSpace(r.Cuisine)),
		Servings:     textValue(r.Yields),
		CookingTime:  textValue(r.TotalTime),
		Ingredients:  recipe.IngredientLines(r.Ingredients),
		Instructions: instructionLines(r.Instructions),
	}
	if out.Ingredients == nil {
		out.Ingredients = []string{}
	}

	out.UpgradeIngredients()
	if out.Title == "" && len(out.Ingredients) == 0 {
		return nil, ErrNoRecipe
	}
	return out, nil
}

func textValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

var listMarker = regexp.MustCompile(`^(?:[-*+]|\d+[.)])\s+`)

// instructionLines accepts either a list of steps or a single block of text,
// which may be HTML.
func instructionLines(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}
	}

	var steps []json.RawMessage
	if err := json.Unmarshal(raw, &steps); err == nil {
		out := make([]string, 0, len(steps))
		for _, step := range steps {
			s := textValue(step)
			var howTo struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(step, &howTo); err == nil && howTo.Text != "" {
				s = strings.TrimSpace(howTo.Text)
			}
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	text := textValue(raw)
	if strings.Contains(text, "<") {
		markdown, err := htmltomarkdown.ConvertString(text)
		if err != nil {
			log.Debug().Err(err).Msg("failed to convert instructions html")
		} else {
			text = markdown
		}
	}

	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
