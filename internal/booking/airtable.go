package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/consultorio-ai/citabot/pkg/logging"
)

const defaultAirtableBaseURL = "https://api.airtable.com/v0"

// Field names in the "Citas" table.
const (
	fieldName      = "Nombre"
	fieldPhone     = "Teléfono"
	fieldTimestamp = "Fecha"
	fieldReference = "Referencia"
)

// AirtableClient implements RecordStore against the Airtable REST API.
type AirtableClient struct {
	apiKey     string
	baseID     string
	table      string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

var _ RecordStore = (*AirtableClient)(nil)

// NewAirtableClient builds a record store for one base and table.
func NewAirtableClient(apiKey, baseID, table string, logger *logging.Logger) (*AirtableClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("booking: airtable api key is required")
	}
	if strings.TrimSpace(baseID) == "" {
		return nil, errors.New("booking: airtable base id is required")
	}
	if strings.TrimSpace(table) == "" {
		table = "Citas"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AirtableClient{
		apiKey:  apiKey,
		baseID:  baseID,
		table:   table,
		baseURL: defaultAirtableBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}, nil
}

// WithBaseURL overrides the API endpoint, for tests.
func (c *AirtableClient) WithBaseURL(base string) *AirtableClient {
	if strings.TrimSpace(base) != "" {
		c.baseURL = strings.TrimRight(base, "/")
	}
	return c
}

type airtableRecord struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

type airtableList struct {
	Records []airtableRecord `json:"records"`
}

// FindByPhone returns the first record whose Teléfono matches exactly, or nil.
func (c *AirtableClient) FindByPhone(ctx context.Context, phone string) (*Record, error) {
	return c.findOne(ctx, fieldPhone, phone)
}

// FindByName returns the first record whose Nombre matches exactly, or nil.
func (c *AirtableClient) FindByName(ctx context.Context, name string) (*Record, error) {
	return c.findOne(ctx, fieldName, name)
}

func (c *AirtableClient) findOne(ctx context.Context, field, value string) (*Record, error) {
	formula := fmt.Sprintf("{%s} = '%s'", field, escapeFormulaValue(value))
	query := url.Values{}
	query.Set("filterByFormula", formula)
	query.Set("maxRecords", "1")

	var list airtableList
	if err := c.do(ctx, http.MethodGet, c.tableURL()+"?"+query.Encode(), nil, &list); err != nil {
		return nil, err
	}
	if len(list.Records) == 0 {
		return nil, nil
	}
	rec := toRecord(list.Records[0])
	return &rec, nil
}

// ListByDate returns every record whose Fecha falls on the given day.
func (c *AirtableClient) ListByDate(ctx context.Context, date string) ([]Record, error) {
	formula := fmt.Sprintf("DATETIME_FORMAT({%s}, 'YYYY-MM-DD') = '%s'", fieldTimestamp, escapeFormulaValue(date))
	query := url.Values{}
	query.Set("filterByFormula", formula)

	var list airtableList
	if err := c.do(ctx, http.MethodGet, c.tableURL()+"?"+query.Encode(), nil, &list); err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(list.Records))
	for _, raw := range list.Records {
		records = append(records, toRecord(raw))
	}
	return records, nil
}

// Create inserts a new record.
func (c *AirtableClient) Create(ctx context.Context, fields Fields) (*Record, error) {
	payload := map[string]any{"fields": toAirtableFields(fields)}
	var created airtableRecord
	if err := c.do(ctx, http.MethodPost, c.tableURL(), payload, &created); err != nil {
		return nil, err
	}
	rec := toRecord(created)
	return &rec, nil
}

// Update patches an existing record; unset fields are left untouched.
func (c *AirtableClient) Update(ctx context.Context, id string, fields Fields) (*Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("booking: airtable record id is required")
	}
	payload := map[string]any{"fields": toAirtableFields(fields)}
	var updated airtableRecord
	if err := c.do(ctx, http.MethodPatch, c.tableURL()+"/"+url.PathEscape(id), payload, &updated); err != nil {
		return nil, err
	}
	rec := toRecord(updated)
	return &rec, nil
}

func (c *AirtableClient) tableURL() string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(c.baseID), url.PathEscape(c.table))
}

func (c *AirtableClient) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("booking: encode airtable payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("booking: build airtable request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("booking: airtable request failed: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("booking: airtable %s returned status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("booking: decode airtable response: %w", err)
		}
	}
	return nil
}

func toAirtableFields(fields Fields) map[string]any {
	out := map[string]any{}
	if fields.Name != nil {
		out[fieldName] = *fields.Name
	}
	if fields.Phone != nil {
		out[fieldPhone] = *fields.Phone
	}
	if fields.Timestamp != nil {
		out[fieldTimestamp] = *fields.Timestamp
	}
	if fields.PaymentReference != nil {
		out[fieldReference] = *fields.PaymentReference
	}
	return out
}

func toRecord(raw airtableRecord) Record {
	return Record{
		ID:               raw.ID,
		Name:             stringField(raw.Fields, fieldName),
		Phone:            stringField(raw.Fields, fieldPhone),
		Timestamp:        stringField(raw.Fields, fieldTimestamp),
		PaymentReference: stringField(raw.Fields, fieldReference),
	}
}

func stringField(fields map[string]any, key string) string {
	if fields == nil {
		return ""
	}
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func escapeFormulaValue(v string) string {
	return strings.ReplaceAll(v, "'", "\\'")
}
