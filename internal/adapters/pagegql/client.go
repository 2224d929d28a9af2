package pagegql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint = "https://page.kakao.com/graphql"
	DefaultSiteURL  = "https://page.kakao.com"
	// TokenCookie est le cookie de session du site distant.
	TokenCookie = "_kpwtkn"
)

type Options struct {
	Endpoint string
	SiteURL  string
	// RPS limite les requêtes sortantes par compte (0 = pas de limite).
	RPS     float64
	Timeout time.Duration
}

// Client parle à l'API GraphQL du site distant. Il ne garde aucun état de
// compte: chaque appel reçoit le handle (ports.Doer) à utiliser.
type Client struct {
	endpoint string
	siteURL  string
	rps      float64
	timeout  time.Duration
}

func New(opts Options) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		siteURL:  DefaultSiteURL,
		rps:      opts.RPS,
		timeout:  opts.Timeout,
	}
	if strings.TrimSpace(opts.Endpoint) != "" {
		c.endpoint = strings.TrimSpace(opts.Endpoint)
	}
	if strings.TrimSpace(opts.SiteURL) != "" {
		c.siteURL = strings.TrimRight(strings.TrimSpace(opts.SiteURL), "/")
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	return c
}

func (c *Client) limiter() *rate.Limiter {
	if c.rps <= 0 {
		return nil
	}
	burst := int(c.rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.rps), burst)
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []graphQLError `json:"errors,omitempty"`
}

// execute envoie une requête GraphQL avec le handle s. Une réponse portant
// des erreurs devient un *ports.RemoteProtocolError.
func execute[T any](ctx context.Context, c *Client, s ports.Doer, query string, vars map[string]any) (T, error) {
	var zero T
	if s == nil {
		return zero, errors.New("pagegql: nil session")
	}
	b, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return zero, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return zero, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return zero, err
	}
	var out graphQLResponse[T]
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode >= 400 {
			return zero, fmt.Errorf("graphql http error: %s", resp.Status)
		}
		return zero, fmt.Errorf("graphql decode: %w", err)
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return zero, &ports.RemoteProtocolError{Messages: msgs}
	}
	if resp.StatusCode >= 400 {
		return zero, fmt.Errorf("graphql http error: %s", resp.Status)
	}
	return out.Data, nil
}
