package gemini

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"recipebox/internal/platform/extractor"
	"recipebox/internal/recipe"
)

// maxPageSize bounds how much of a web page is downloaded.
const maxPageSize = 4 << 20

// maxPromptChars bounds how much page text is sent to the model.
const maxPromptChars = 60000

const extractPrompt = "Extract the recipe from the web page below. Please return a single, clean JSON object with the following keys and data types: 'title' (string), 'image' (string URL), 'cuisine' (string), 'yields' (string), 'total_time' (string), 'ingredients' (array of strings, one ingredient line each, exactly as written on the page) and 'instructions' (array of strings). If the page contains no recipe, return {\"error\": \"no recipe\"}. The JSON response should be clean and not contain any markdown formatting (e.g., ```json).\n\n"

// Client extracts recipes from web pages with the Gemini API.
type Client struct {
	model      *genai.GenerativeModel
	httpClient *http.Client
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Client{model: client.GenerativeModel(model), httpClient: &http.Client{}}, nil
}

// Extract downloads the page at url and asks Gemini to pull the recipe out of it.
func (c *Client) Extract(ctx context.Context, url string) (*recipe.Recipe, error) {
	page, err := FetchPage(ctx, c.httpClient, url)
	if err != nil {
		return nil, err
	}

	resp, err := c.model.GenerateContent(ctx, genai.Text(BuildPrompt(page)))
	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response format from Gemini")
	}

	cleanJSON, err := ExtractJSON(string(text))
	if err != nil {
		return nil, err
	}

	extracted, err := extractor.DecodeResponse([]byte(cleanJSON))
	if err != nil {
		return nil, err
	}
	if extracted.Error != "" {
		log.Debug().Str("url", url).Str("reason", extracted.Error).Msg("gemini found no recipe")
		return nil, extractor.ErrNoRecipe
	}

	return extracted.Recipe(url)
}

// FetchPage downloads a web page and converts it to markdown.
func FetchPage(ctx context.Context, httpClient *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received non-OK status code: %d", resp.StatusCode)
	}

	html, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}

	markdown, err := htmltomarkdown.ConvertString(string(html))
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	return markdown, nil
}

// BuildPrompt prepends the extraction instructions to the page text.
func BuildPrompt(page string) string {
	if len(page) > maxPromptChars {
		cut := maxPromptChars
		for cut > 0 && !utf8.RuneStart(page[cut]) {
			cut--
		}
		page = page[:cut]
	}
	return extractPrompt + page
}

// ExtractJSON returns the outermost JSON object in a model response, which
// might be wrapped in markdown.
func ExtractJSON(text string) (string, error) {
	startIndex := strings.Index(text, "{")
	endIndex := strings.LastIndex(text, "}")

	if startIndex == -1 || endIndex == -1 || startIndex > endIndex {
		return "", fmt.Errorf("could not find JSON object in response: %s", text)
	}
	return text[startIndex : endIndex+1], nil
}
