package handlers

import (
	"encoding/json"
	"net/http"
)

type schema = map[string]interface{}

func queryParam(name, description string, s schema) schema {
	return schema{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      s,
	}
}

func jsonResponse(description string, s schema) schema {
	return schema{
		"description": description,
		"content": schema{
			"application/json": schema{"schema": s},
		},
	}
}

func recordFilterParams() []schema {
	return []schema{
		queryParam("state", "Filter by state name", schema{"type": "string"}),
		queryParam("district", "Filter by district name", schema{"type": "string"}),
		queryParam("crop", "Filter by crop name", schema{"type": "string"}),
		queryParam("year", "Filter by crop year", schema{"type": "integer"}),
		queryParam("page", "Page number (default: 1)", schema{"type": "integer", "default": 1}),
		queryParam("limit", "Records per page (default: 100, max: 1000)", schema{"type": "integer", "default": defaultPageLimit, "maximum": maxPageLimit}),
	}
}

func paginated(item string) schema {
	return schema{
		"type": "object",
		"properties": schema{
			"data":        schema{"type": "array", "items": schema{"$ref": "#/components/schemas/" + item}},
			"total":       schema{"type": "integer"},
			"page":        schema{"type": "integer"},
			"limit":       schema{"type": "integer"},
			"total_pages": schema{"type": "integer"},
		},
	}
}

var errorResponse = jsonResponse("Error", schema{"$ref": "#/components/schemas/Error"})

func masterRecordProperties() schema {
	number := schema{"type": "number", "nullable": true}
	return schema{
		"state":          schema{"type": "string"},
		"district":       schema{"type": "string"},
		"year":           schema{"type": "integer"},
		"crop":           schema{"type": "string"},
		"season":         schema{"type": "string"},
		"area":           number,
		"production":     number,
		"yield":          number,
		"metrics":        schema{"type": "object", "additionalProperties": schema{"type": "number"}},
		"avg_temp":       number,
		"total_rainfall": number,
		"avg_humidity":   number,
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the dataset API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	modelProps := masterRecordProperties()
	modelProps["dataset"] = schema{"type": "string"}
	modelProps["temp_stress"] = schema{"type": "number"}
	modelProps["rain_deviation"] = schema{"type": "number"}
	modelProps["yield_class"] = schema{"type": "integer", "enum": []int{0, 1}}

	spec := schema{
		"openapi": "3.0.0",
		"info": schema{
			"title":       "AgriFusion Dataset API",
			"description": "Read access to the district crop and weather master dataset and the model-ready datasets",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": schema{
			"/api/datasets": schema{
				"get": schema{
					"summary": "List model-ready datasets",
					"responses": schema{
						"200": jsonResponse("Configured datasets with persisted row counts", schema{
							"type": "object",
							"properties": schema{
								"data": schema{"type": "array", "items": schema{"$ref": "#/components/schemas/DatasetInfo"}},
							},
						}),
						"500": errorResponse,
					},
				},
			},
			"/api/datasets/{name}": schema{
				"get": schema{
					"summary": "Get rows of a model-ready dataset",
					"parameters": append([]schema{{
						"name":     "name",
						"in":       "path",
						"required": true,
						"schema":   schema{"type": "string", "enum": []string{"sugarcane", "spices", "horticulture"}},
					}}, recordFilterParams()...),
					"responses": schema{
						"200": jsonResponse("Paginated dataset rows", paginated("ModelDatasetRecord")),
						"400": errorResponse,
						"404": errorResponse,
						"500": errorResponse,
					},
				},
			},
			"/api/master": schema{
				"get": schema{
					"summary":    "Get master dataset rows",
					"parameters": recordFilterParams(),
					"responses": schema{
						"200": jsonResponse("Paginated master rows", paginated("CropWeatherRecord")),
						"400": errorResponse,
						"500": errorResponse,
					},
				},
			},
			"/health": schema{
				"get": schema{
					"summary": "Health check",
					"responses": schema{
						"200": jsonResponse("Service and database are reachable", schema{"type": "object"}),
						"503": jsonResponse("Database unreachable", schema{"type": "object"}),
					},
				},
			},
			"/metrics": schema{
				"get": schema{
					"summary": "Prometheus metrics",
					"responses": schema{
						"200": schema{
							"description": "Prometheus metrics in text format",
							"content":     schema{"text/plain": schema{"schema": schema{"type": "string"}}},
						},
					},
				},
			},
		},
		"components": schema{
			"schemas": schema{
				"CropWeatherRecord":  schema{"type": "object", "properties": masterRecordProperties()},
				"ModelDatasetRecord": schema{"type": "object", "properties": modelProps},
				"DatasetInfo": schema{
					"type": "object",
					"properties": schema{
						"name":      schema{"type": "string"},
						"file_name": schema{"type": "string"},
						"rows":      schema{"type": "integer"},
					},
				},
				"Error": schema{
					"type": "object",
					"properties": schema{
						"error":   schema{"type": "string"},
						"message": schema{"type": "string"},
						"code":    schema{"type": "integer"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
