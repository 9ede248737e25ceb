package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/h2theoran1984/Spaghetti-990/internal/server/routes"
	"github.com/h2theoran1984/Spaghetti-990/internal/util"
	"github.com/h2theoran1984/Spaghetti-990/pkg/logger"
)

const (
	defaultBaseURL = "https://www.signalpot.dev"
	agentSlug      = "990-entity-graph"
)

type capability struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	InputSchema  any    `json:"inputSchema"`
	OutputSchema any    `json:"outputSchema"`
}

type agent struct {
	Name             string       `json:"name"`
	Slug             string       `json:"slug"`
	Description      string       `json:"description"`
	Tags             []string     `json:"tags"`
	RateType         string       `json:"rate_type"`
	RateAmount       float64      `json:"rate_amount"`
	AuthType         string       `json:"auth_type"`
	CapabilitySchema []capability `json:"capability_schema"`
}

// generateSchema creates a JSON Schema from the given Go type, inlined
// rather than referenced so the marketplace can render it standalone.
func generateSchema(value any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	v := reflect.New(t).Interface()
	return reflector.Reflect(v)
}

func agentDefinition() agent {
	return agent{
		Name: "Spaghetti 990",
		Slug: agentSlug,
		Description: "Healthcare org structures look like spaghetti. Spaghetti 990 untangles them. " +
			"Feed it one EIN, get back the full org tree from IRS Form 990 Schedule R. " +
			"Health systems, foundations, subsidiaries, shell LLCs, nothing hides from Schedule R.",
		Tags:       []string{"healthcare", "990", "nonprofit", "irs", "entity-graph", "schedule-r"},
		RateType:   "per_call",
		RateAmount: 0.005,
		AuthType:   "api_key",
		CapabilitySchema: []capability{
			{
				Name:         "lookup",
				Description:  "Look up related organizations for a given EIN from IRS Form 990 Schedule R",
				InputSchema:  generateSchema(routes.LookupRequest{}),
				OutputSchema: generateSchema(routes.LookupResponse{}),
			},
		},
	}
}

func apiRequest(client *http.Client, baseURL, apiKey, method, path string, body any) (int, map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequest(method, baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return resp.StatusCode, nil, nil
	}
	return resp.StatusCode, data, nil
}

func main() {
	util.LoadEnv()
	logger.Init(logger.NewConsole(logger.ConsoleParams{}))

	baseURL := util.GetEnvString("SP_BASE_URL", defaultBaseURL)
	apiKey := util.GetEnv("SP_API_KEY")
	if apiKey == "" {
		logger.Fatal("SP_API_KEY environment variable is required")
	}

	client := &http.Client{Timeout: 30 * time.Second}
	definition := agentDefinition()

	logger.Info("Registering agent", "url", baseURL)
	status, data, err := apiRequest(client, baseURL, apiKey, http.MethodPost, "/api/agents", definition)
	if err != nil {
		logger.Fatal("Registration request failed", "err", err)
	}

	switch status {
	case http.StatusCreated:
		logger.Info("Agent registered", "id", data["id"], "url", baseURL+"/agents/"+agentSlug)
	case http.StatusConflict:
		logger.Info("Agent already exists, updating")
		status, data, err = apiRequest(client, baseURL, apiKey, http.MethodPatch, "/api/agents/"+agentSlug, map[string]any{
			"name":        definition.Name,
			"description": definition.Description,
			"tags":        definition.Tags,
		})
		if err != nil {
			logger.Fatal("Update request failed", "err", err)
		}
		if status != http.StatusOK {
			logger.Fatal("Update failed", "status", status, "response", data)
		}
		logger.Info("Agent updated")
	default:
		logger.Fatal("Registration failed", "status", status, "response", data)
	}
}
