package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"BunkerWars/internal/model"
)

const reportSchema = `{
	"type": "object",
	"required": ["round", "bunkers"],
	"properties": {
		"round": {"type": "integer", "minimum": 1},
		"bunkers": {
			"type": "array",
			"minItems": 5,
			"maxItems": 5,
			"items": {
				"type": "object",
				"required": ["id", "attack", "defense"],
				"properties": {
					"id": {"type": "integer", "minimum": 1, "maximum": 5},
					"attack": {"type": "string", "pattern": "^[0-9]{1,78}$"},
					"defense": {"type": "string", "pattern": "^[0-9]{1,78}$"}
				}
			}
		}
	}
}`

var compiledSchema = jsonschema.MustCompileString("combat_report.json", reportSchema)

// HTTPSource implements Source against the combat indexer REST API.
type HTTPSource struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewHTTPSource creates a source with optional proxy support.
func NewHTTPSource(baseURL, apiKey, proxyURL string, timeout time.Duration) *HTTPSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (s *HTTPSource) Name() string { return "http" }

// wireReport is the JSON shape served by the indexer. Amounts are decimal
// strings in smallest units.
type wireReport struct {
	Round   uint64 `json:"round"`
	Bunkers []struct {
		ID      uint8  `json:"id"`
		Attack  string `json:"attack"`
		Defense string `json:"defense"`
	} `json:"bunkers"`
}

func (s *HTTPSource) FetchReport(ctx context.Context, round uint64) (*model.CombatReport, error) {
	endpoint := fmt.Sprintf("%s/api/v1/rounds/%d/combat", s.BaseURL, round)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch report: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch report: status %d, body: %s", resp.StatusCode, string(body))
	}
	return ParseReport(body, round)
}

// ParseReport validates a report document and converts it for the engine.
func ParseReport(body []byte, round uint64) (*model.CombatReport, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid report: %w", err)
	}

	var w wireReport
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if w.Round != round {
		return nil, fmt.Errorf("report is for round %d, want %d", w.Round, round)
	}

	out := &model.CombatReport{Round: w.Round}
	var seen [model.BunkerCount]bool
	for _, b := range w.Bunkers {
		i := b.ID - 1
		if seen[i] {
			return nil, fmt.Errorf("duplicate bunker %d in report", b.ID)
		}
		seen[i] = true
		if err := out.Attack[i].SetFromDecimal(b.Attack); err != nil {
			return nil, fmt.Errorf("bunker %d attack: %w", b.ID, err)
		}
		if err := out.Defense[i].SetFromDecimal(b.Defense); err != nil {
			return nil, fmt.Errorf("bunker %d defense: %w", b.ID, err)
		}
	}
	return out, nil
}
