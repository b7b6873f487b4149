package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/campusbook/scheduling-engine/internal/models"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	return resp, nil
}

// CreateFlow deploys an approval flow configuration
func (c *Client) CreateFlow(flow *models.ApprovalFlowConfig) (*models.ApprovalFlowConfig, error) {
	resp, err := c.doRequest("POST", "/api/v1/flows", flow)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to create flow: %s (status: %d)", string(body), resp.StatusCode)
	}

	var result models.ApprovalFlowConfig
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// GetFlows retrieves all approval flow configurations
func (c *Client) GetFlows() ([]models.ApprovalFlowConfig, error) {
	resp, err := c.doRequest("GET", "/api/v1/flows", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get flows: %s (status: %d)", string(body), resp.StatusCode)
	}

	var result struct {
		Flows []models.ApprovalFlowConfig `json:"flows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Flows, nil
}

// GetFlow retrieves a flow configuration by ID
func (c *Client) GetFlow(id string) (*models.ApprovalFlowConfig, error) {
	resp, err := c.doRequest("GET", "/api/v1/flows/"+id, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get flow: %s (status: %d)", string(body), resp.StatusCode)
	}

	var flow models.ApprovalFlowConfig
	if err := json.NewDecoder(resp.Body).Decode(&flow); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &flow, nil
}

// DeleteFlow removes a flow configuration
func (c *Client) DeleteFlow(id string) error {
	resp, err := c.doRequest("DELETE", "/api/v1/flows/"+id, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to delete flow: %s (status: %d)", string(body), resp.StatusCode)
	}

	return nil
}

// GetResources retrieves resources, optionally filtered by type
func (c *Client) GetResources(resourceType string) ([]models.Resource, error) {
	path := "/api/v1/resources"
	if resourceType != "" {
		path += "?type=" + url.QueryEscape(resourceType)
	}

	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get resources: %s (status: %d)", string(body), resp.StatusCode)
	}

	var result struct {
		Resources []models.Resource `json:"resources"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Resources, nil
}

// GetResourceTypes retrieves the distinct resource types in the catalog
func (c *Client) GetResourceTypes() ([]string, error) {
	resp, err := c.doRequest("GET", "/api/v1/resources/types", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get resource types: %s (status: %d)", string(body), resp.StatusCode)
	}

	var result struct {
		Types []string `json:"types"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Types, nil
}

// CheckAvailability checks whether a window is bookable on a resource. The
// from and to values must be RFC 3339 timestamps.
func (c *Client) CheckAvailability(resourceID, from, to string) (map[string]interface{}, error) {
	path := fmt.Sprintf("/api/v1/resources/%s/availability?from=%s&to=%s",
		resourceID, url.QueryEscape(from), url.QueryEscape(to))

	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("availability check failed: %s (status: %d)", string(body), resp.StatusCode)
	}

	var decision map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return decision, nil
}

// GetApprovals retrieves approval requests, optionally filtered by status
func (c *Client) GetApprovals(status string) ([]models.ApprovalRequest, error) {
	path := "/api/v1/approvals"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get approvals: %s (status: %d)", string(body), resp.StatusCode)
	}

	var result struct {
		Approvals []models.ApprovalRequest `json:"approvals"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Approvals, nil
}

// GetApproval retrieves an approval request with its full history
func (c *Client) GetApproval(id string) (*models.ApprovalRequest, error) {
	resp, err := c.doRequest("GET", "/api/v1/approvals/"+id, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get approval: %s (status: %d)", string(body), resp.StatusCode)
	}

	var request models.ApprovalRequest
	if err := json.NewDecoder(resp.Body).Decode(&request); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &request, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck() error {
	resp, err := c.doRequest("GET", "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API is not healthy (status: %d)", resp.StatusCode)
	}

	return nil
}
