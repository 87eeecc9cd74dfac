package service

import (
	"strings"

	"github.com/unclebandit/outreach-backend/internal/model"
)

const defaultPromptTemplate = `Write a short first-touch email to {first_name} {last_name}, {title} at {company} ({country}).`

const missingValue = "N/A"

// RenderTemplate replaces every {key} in template with data[key].
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// RenderPrompt fills a campaign prompt template with the prospect's fields; blank fields read N/A.
func RenderPrompt(template string, p model.Prospect) string {
	if strings.TrimSpace(template) == "" {
		template = defaultPromptTemplate
	}
	data := map[string]string{
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"company":    p.Company,
		"title":      p.Title,
		"country":    p.Country,
		"email":      p.Address(),
		"source":     p.Source,
	}
	for k, v := range data {
		if strings.TrimSpace(v) == "" {
			data[k] = missingValue
		}
	}
	return RenderTemplate(template, data)
}
