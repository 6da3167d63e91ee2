package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"leukemia-care-portal/internal/platform/apperrors"
)

// Client talks to the external prediction service. Its shape is all this
// portal knows about the models behind it.
type Client interface {
	PredictEthical(ctx context.Context, req EthicalRequest) (*EthicalResponse, error)
	PredictEffectiveness(ctx context.Context, req EffectivenessRequest) (*EffectivenessResponse, error)
	PredictTreatment(ctx context.Context, req DQNRequest) (*DQNResponse, error)
	PredictImage(ctx context.Context, image []byte, fileName string) (*ImageResponse, error)
	SubmitForm(ctx context.Context, payload map[string]interface{}) error
	Ask(ctx context.Context, query string) (*AskResponse, error)
	GetAppointments(ctx context.Context) ([]AppointmentRecord, error)
	SubmitAppointment(ctx context.Context, a AppointmentSubmission) (*SubmitAppointmentResponse, error)
}

type httpClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *httpClient) PredictEthical(ctx context.Context, req EthicalRequest) (*EthicalResponse, error) {
	var out EthicalResponse
	if err := c.postJSON(ctx, "/predict", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) PredictEffectiveness(ctx context.Context, req EffectivenessRequest) (*EffectivenessResponse, error) {
	var out EffectivenessResponse
	if err := c.postJSON(ctx, "/api/effectiveness", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) PredictTreatment(ctx context.Context, req DQNRequest) (*DQNResponse, error) {
	var out DQNResponse
	if err := c.postJSON(ctx, "/dqn_predict", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) PredictImage(ctx context.Context, image []byte, fileName string) (*ImageResponse, error) {
	if fileName == "" {
		fileName = "image.png"
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/image_predict", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out ImageResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitForm posts an arbitrary tagged payload to the logging endpoint. The
// response body is ignored.
func (c *httpClient) SubmitForm(ctx context.Context, payload map[string]interface{}) error {
	return c.postJSON(ctx, "/submit-form", payload, nil)
}

func (c *httpClient) Ask(ctx context.Context, query string) (*AskResponse, error) {
	var out AskResponse
	if err := c.postJSON(ctx, "/ask", map[string]string{"query": query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) GetAppointments(ctx context.Context) ([]AppointmentRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get-appointments", nil)
	if err != nil {
		return nil, err
	}
	var out []AppointmentRecord
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *httpClient) SubmitAppointment(ctx context.Context, a AppointmentSubmission) (*SubmitAppointmentResponse, error) {
	var out SubmitAppointmentResponse
	if err := c.postJSON(ctx, "/submit-appointment", a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) postJSON(ctx context.Context, path string, in, out interface{}) error {
	jsonBody, err := json.Marshal(in)
	if err != nil {
		return apperrors.NewInternal("failed to encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return apperrors.NewInternal("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// do executes req; transport errors, non-2xx statuses and undecodable bodies
// all surface as network failures.
func (c *httpClient) do(req *http.Request, out interface{}) error {
	endpoint := req.URL.Path

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewNetwork(fmt.Sprintf("request to %s failed", endpoint), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.NewNetwork(
			fmt.Sprintf("%s returned %s", endpoint, resp.Status),
			fmt.Errorf("%s", strings.TrimSpace(string(respBody))),
		)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewNetwork(fmt.Sprintf("invalid response from %s", endpoint), err)
	}
	return nil
}
