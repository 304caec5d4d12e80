package openapi

import (
	"fmt"
	"sort"
	"strings"
)

func (g *generator) document(root string) (map[string]any, error) {
	document := map[string]any{
		"openapi": g.config.openAPIVersion,
		"info":    g.buildInfo(),
		"paths":   g.buildPaths(root),
		"components": map[string]any{
			"schemas": g.registry.componentsMap(),
		},
	}
	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (g *generator) buildInfo() map[string]any {
	info := map[string]any{
		"title":   g.config.info.Title,
		"version": g.config.info.Version,
	}
	if g.config.info.Description != "" {
		info["description"] = g.config.info.Description
	}
	return info
}

func (g *generator) buildPaths(root string) map[string]any {
	method := strings.ToLower(g.config.operation.Method)
	if method == "" {
		method = "put"
	}

	statuses := make([]string, 0, len(g.config.responses))
	for status := range g.config.responses {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	responses := make(map[string]any, len(statuses))
	for _, status := range statuses {
		responses[status] = map[string]any{
			"description": g.config.responses[status].Description,
		}
	}

	operationID := g.config.operation.OperationID
	if operationID == "" {
		operationID = fmt.Sprintf("%s:%s", method, g.config.operation.Path)
	}
	operation := map[string]any{
		"operationId": operationID,
		"requestBody": map[string]any{
			"required": true,
			"content": map[string]any{
				g.config.contentType: map[string]any{"schema": ref(root)},
			},
		},
		"responses": responses,
	}
	if summary := strings.TrimSpace(g.config.operation.Summary); summary != "" {
		operation["summary"] = summary
	}

	return map[string]any{
		g.config.operation.Path: map[string]any{
			method: operation,
		},
	}
}

func validateDocument(document map[string]any) error {
	openapi, _ := document["openapi"].(string)
	if openapi == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}
	paths, _ := document["paths"].(map[string]any)
	for pathKey := range paths {
		if !strings.HasPrefix(pathKey, "/") {
			return fmt.Errorf("openapi: path %q must start with /", pathKey)
		}
	}
	for pathKey, pathValue := range paths {
		pathItem, _ := pathValue.(map[string]any)
		for method, operationValue := range pathItem {
			operation, _ := operationValue.(map[string]any)
			if responses, _ := operation["responses"].(map[string]any); len(responses) == 0 {
				return fmt.Errorf("openapi: operation %s %s missing responses", method, pathKey)
			}
		}
	}
	return nil
}
