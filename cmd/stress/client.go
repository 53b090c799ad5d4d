package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// apiClient минимальный клиент HTTP API склада
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

type apiError struct {
	Status  int
	Message string `json:"error"`
	Details string `json:"details"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (%s)", e.Status, e.Message, e.Details)
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        512,
				MaxIdleConnsPerHost: 512,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func (c *apiClient) login(ctx context.Context, username, password string) error {
	var res struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &res)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.token = res.Token
	return nil
}

type stockItem struct {
	EvidencniCislo    uint    `json:"evidencni_cislo"`
	NazevDilu         string  `json:"nazev_dilu"`
	Mnozstvi          int     `json:"mnozstvi"`
	JednotkovaCenaEur float64 `json:"jednotkova_cena_eur"`
	CelkovaCenaEur    float64 `json:"celkova_cena_eur"`
}

func (c *apiClient) createItem(ctx context.Context, name string) (*stockItem, error) {
	var item stockItem
	err := c.do(ctx, http.MethodPost, "/api/v1/sklad", map[string]interface{}{
		"nazev_dilu": name,
		"jednotky":   "ks",
	}, &item)
	return &item, err
}

func (c *apiClient) getItem(ctx context.Context, id uint) (*stockItem, error) {
	var item stockItem
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/sklad/%d", id), nil, &item)
	return &item, err
}

func (c *apiClient) createSupplier(ctx context.Context, name string) (string, error) {
	var d struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/dodavatele", map[string]interface{}{
		"dodavatel": name,
	}, &d)
	return d.ID, err
}

func (c *apiClient) receipt(ctx context.Context, id uint, qty int, price float64, dodavatelID string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/sklad/%d/prijem", id), map[string]interface{}{
		"zmena_mnozstvi":      qty,
		"jednotkova_cena_eur": price,
		"dodavatel_id":        dodavatelID,
		"cislo_objednavky":    fmt.Sprintf("ST-%d", time.Now().Unix()),
		"datum_nakupu":        today(),
	}, nil)
}

func (c *apiClient) dispatch(ctx context.Context, id uint, qty int, zarizeni string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/sklad/%d/vydej", id), map[string]interface{}{
		"zmena_mnozstvi":   qty,
		"pouzite_zarizeni": zarizeni,
		"datum_vydeje":     today(),
		"typ_udrzby":       "Ostatní",
	}, nil)
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// countDispatches число записей VÝDEJ в журнале для позиции
func (c *apiClient) countDispatches(ctx context.Context, id uint) (int64, error) {
	q := url.Values{}
	q.Set("typ_operace", "VÝDEJ")
	q.Set("evidencni_cislo", fmt.Sprint(id))
	var page struct {
		Total int64 `json:"total"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/audit-log?"+q.Encode(), nil, &page)
	return page.Total, err
}
