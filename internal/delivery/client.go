package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// CorreoClient talks to the Correo Argentino rate API hosted on RapidAPI.
type CorreoClient struct {
	baseURL    string
	apiKey     string
	host       string
	httpClient *http.Client
}

func NewCorreoClient(baseURL, apiKey, host string, timeout time.Duration) *CorreoClient {
	return &CorreoClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		host:       host,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *CorreoClient) setHeaders(req *http.Request) {
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("Accept", "application/json")
}

type rateRequest struct {
	CPOrigen         string `json:"cpOrigen"`
	CPDestino        string `json:"cpDestino"`
	ProvinciaOrigen  string `json:"provinciaOrigen"`
	ProvinciaDestino string `json:"provinciaDestino"`
	Peso             string `json:"peso"`
}

// rateResponse tolerates both field spellings the API has been seen to use.
type rateResponse struct {
	Precio        float64 `json:"precio"`
	Total         float64 `json:"total"`
	TiempoEntrega int     `json:"tiempoEntrega"`
	Dias          int     `json:"dias"`
	Servicio      string  `json:"servicio"`
}

func (c *CorreoClient) CalculatePrice(ctx context.Context, originPostal, destPostal, destProvince string, weightKG float64) (*RateQuote, error) {
	body, err := json.Marshal(rateRequest{
		CPOrigen:         originPostal,
		CPDestino:        destPostal,
		ProvinciaOrigen:  "AR-N",
		ProvinciaDestino: destProvince,
		Peso:             strconv.FormatFloat(weightKG, 'f', -1, 64),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/calcularPrecio", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("rate API status %d: %s", resp.StatusCode, raw)
	}

	var parsed rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding rate response: %w", err)
	}

	quote := &RateQuote{Price: parsed.Precio, DeliveryDays: parsed.TiempoEntrega, Carrier: parsed.Servicio}
	if quote.Price == 0 {
		quote.Price = parsed.Total
	}
	if quote.DeliveryDays == 0 {
		quote.DeliveryDays = parsed.Dias
	}
	if quote.Carrier == "" {
		quote.Carrier = "Correo Argentino"
	}
	return quote, nil
}

func (c *CorreoClient) Branches(ctx context.Context, provinceCode string) ([]Branch, error) {
	url := c.baseURL + "/obtenerSucursales"
	if provinceCode != "" {
		url += "?provincia=" + provinceCode
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("branches API status %d: %s", resp.StatusCode, raw)
	}

	var branches []Branch
	if err := json.NewDecoder(resp.Body).Decode(&branches); err != nil {
		return nil, fmt.Errorf("decoding branches response: %w", err)
	}
	return branches, nil
}
