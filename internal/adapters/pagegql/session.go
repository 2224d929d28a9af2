package pagegql

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Guilhem-Bonnet/pagebroker/internal/domain"
	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
	"golang.org/x/time/rate"
)

// session est le handle de transport d'un compte: client http dédié
// (proxy, cookie jar lié au token), en-têtes fixes et cadence sortante.
type session struct {
	client  *http.Client
	agent   string
	referer string
	limiter *rate.Limiter
}

func (s *session) Do(req *http.Request) (*http.Response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	req.Header.Set("User-Agent", s.agent)
	req.Header.Set("Referer", s.referer)
	return s.client.Do(req)
}

// tokenJar expose le token du compte comme unique cookie du site, et
// capture les renouvellements envoyés par le serveur.
type tokenJar struct {
	host  string
	token ports.TokenSource
}

func (j *tokenJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if u.Hostname() != j.host {
		return
	}
	for _, c := range cookies {
		if c.Name == TokenCookie && c.Value != "" {
			j.token.SetToken(c.Value)
		}
	}
}

func (j *tokenJar) Cookies(u *url.URL) []*http.Cookie {
	if u.Hostname() != j.host {
		return nil
	}
	return []*http.Cookie{{Name: TokenCookie, Value: j.token.Token()}}
}

// NewSession construit le handle d'un compte; branché comme ports.SessionFactory.
func (c *Client) NewSession(id ports.Identity) (ports.Doer, error) {
	site, err := url.Parse(c.siteURL)
	if err != nil {
		return nil, fmt.Errorf("site url: %w", err)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if p := strings.TrimSpace(id.Proxy); p != "" {
		proxyURL, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("account %d: invalid proxy: %w", id.AccountID, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	hc := &http.Client{Transport: transport, Timeout: c.timeout}
	if id.Token != nil {
		hc.Jar = &tokenJar{host: site.Hostname(), token: id.Token}
	}
	agent := id.Agent
	if agent == "" {
		agent = domain.GenerateAgent()
	}
	return &session{client: hc, agent: agent, referer: c.siteURL, limiter: c.limiter()}, nil
}

// Anonymous renvoie le handle partagé sans compte (chemin gratuit, recherche, ressources).
func (c *Client) Anonymous() ports.Doer {
	return &session{
		client:  &http.Client{Timeout: c.timeout},
		agent:   domain.GenerateAgent(),
		referer: c.siteURL,
	}
}
