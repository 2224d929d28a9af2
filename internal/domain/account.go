package domain

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// AgentPrefix préfixe l'identité client générée pour chaque compte.
const AgentPrefix = "kakaopage"

type Account struct {
	// Token de session (cookie), mis à jour par le cookie jar du transport.
	Token string `json:"token"`
	// Agent est l'identité client envoyée en User-Agent.
	Agent string `json:"agent"`
	// Proxy sortant optionnel (ex: http://127.0.0.1:3128).
	Proxy string `json:"proxy,omitempty"`

	Balance int64 `json:"balance"`

	// LastTokenRefresh est un timestamp Unix (secondes).
	LastTokenRefresh int64     `json:"last_token_refresh"`
	LastRewardClaim  time.Time `json:"last_reward_claim"`
}

func GenerateAgent() string {
	return fmt.Sprintf("%s/%016x", AgentPrefix, rand.Uint64())
}

// Normalize complète les champs absents d'un compte chargé depuis le disque.
func (a *Account) Normalize() {
	if a.Agent == "" {
		a.Agent = GenerateAgent()
	}
}
