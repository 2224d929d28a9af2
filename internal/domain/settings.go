package domain

// Settings est la table "config" persistée à côté des comptes et des séries.
type Settings struct {
	// Adresse d'écoute HTTP.
	BindAddr string `json:"bind_addr"`

	// Nombre max de requêtes de contenu qui parlent au serveur distant en parallèle.
	MaxConcurrentRequests int `json:"max_concurrent_requests"`
}

func DefaultSettings() Settings {
	return Settings{
		BindAddr:              "127.0.0.1:8080",
		MaxConcurrentRequests: 8,
	}
}
