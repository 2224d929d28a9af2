package httpapi

import (
	"net/http"

	"github.com/Guilhem-Bonnet/pagebroker/internal/httpjson"
)

// handleOpenAPI renvoie une description OpenAPI minimale de l'API.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	jsonOK := func(schemaRef string) map[string]any {
		return map[string]any{
			"description": "OK",
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": schemaRef},
				},
			},
		}
	}
	jsonErr := func(desc string) map[string]any {
		return map[string]any{
			"description": desc,
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": "#/components/schemas/Error"},
				},
			},
		}
	}
	queryParam := func(name, typ string, required bool) map[string]any {
		return map[string]any{
			"name":     name,
			"in":       "query",
			"required": required,
			"schema":   map[string]any{"type": typ},
		}
	}

	spec := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "pagebroker API",
			"version": "v1",
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"Error": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"error": map[string]any{"type": "string"},
						"code": map[string]any{
							"type": "string",
							"enum": []any{"not_found", "cooldown", "exhausted", "remote_error", "unknown_process", "param_extraction", "invalid_params", "internal"},
						},
					},
					"required": []any{"error"},
				},
				"Content": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":  map[string]any{"type": "string"},
						"viewer": map[string]any{"type": "object", "additionalProperties": true},
						"prev":   map[string]any{"type": "integer", "format": "int64"},
						"next":   map[string]any{"type": "integer", "format": "int64"},
					},
				},
				"SingleResponse": map[string]any{
					"type":       "object",
					"properties": map[string]any{"meta": map[string]any{"$ref": "#/components/schemas/Content"}},
				},
				"SearchResult": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"data": map[string]any{"type": "array", "items": map[string]any{"type": "object", "additionalProperties": true}},
						"more": map[string]any{"type": "boolean"},
					},
				},
				"Settings": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"bind_addr":               map[string]any{"type": "string"},
						"max_concurrent_requests": map[string]any{"type": "integer"},
					},
				},
			},
		},
		"paths": map[string]any{
			"/single": map[string]any{
				"get": map[string]any{
					"summary": "Contenu d'un épisode (cache, gratuit, ou rédemption de ticket)",
					"parameters": []any{
						queryParam("series_id", "integer", true),
						queryParam("single_id", "integer", true),
						queryParam("wait_free", "boolean", false),
						queryParam("free", "boolean", false),
					},
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/SingleResponse"),
						"400": jsonErr("Paramètres invalides"),
						"402": jsonErr("Plus de tickets"),
						"429": jsonErr("Finder en cooldown"),
						"502": jsonErr("Erreur distante"),
					},
				},
			},
			"/search": map[string]any{
				"get": map[string]any{
					"parameters": []any{queryParam("keyword", "string", true), queryParam("page", "integer", false)},
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/SearchResult"),
						"400": jsonErr("Paramètres invalides"),
					},
				},
			},
			"/api/v1/health":  map[string]any{"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}}},
			"/api/v1/version": map[string]any{"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}}},
			"/api/v1/config": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK("#/components/schemas/Settings")}},
				"put": map[string]any{"responses": map[string]any{"200": jsonOK("#/components/schemas/Settings"), "400": jsonErr("JSON invalide")}},
			},
		},
	}

	httpjson.Write(w, http.StatusOK, spec)
}
