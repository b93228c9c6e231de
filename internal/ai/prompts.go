package ai

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tmc/langchaingo/prompts"
)

// ObjectPromptTemplate couples a prompt template with the JSON schema its
// structured response must satisfy.
type ObjectPromptTemplate struct {
	ID           string
	SystemPrompt string
	Template     prompts.PromptTemplate
	Schema       *jsonschema.Schema
}

// Format fills the template's named placeholders
func (t ObjectPromptTemplate) Format(variables map[string]any) (string, error) {
	return t.Template.Format(variables)
}

const generateContentSchemaJSON = `{
	"type": "object",
	"properties": {
		"summary": {
			"type": "string",
			"description": "A brief, one-sentence overview of the MCP server (max 160 characters for SEO)"
		}
	},
	"required": ["summary"]
}`

const categorizeServerSchemaJSON = `{
	"type": "object",
	"properties": {
		"categories": {
			"type": "array",
			"items": {"type": "string"},
			"description": "Existing categories that match the MCP server"
		},
		"categoriesToAdd": {
			"type": "array",
			"items": {"type": "string"},
			"description": "New categories to be created if none exist"
		}
	},
	"required": ["categories", "categoriesToAdd"]
}`

// GenerateContentResponse is the structured output of the summary prompt
type GenerateContentResponse struct {
	Summary string `json:"summary"`
}

// CategorizeServerResponse is the structured output of the categorization
// prompt: matched existing categories vs. new ones to create.
type CategorizeServerResponse struct {
	Categories      []string `json:"categories"`
	CategoriesToAdd []string `json:"categoriesToAdd"`
}

// GenerateContentTemplate produces a search-engine-friendly one-sentence
// summary describing what the server does.
var GenerateContentTemplate = ObjectPromptTemplate{
	ID:           "generate-content",
	SystemPrompt: "You are an expert at summarizing MCP (Model Context Protocol) servers. Create concise, engaging summaries that explain what the server does.",
	Schema:       jsonschema.MustCompileString("generate-content.json", generateContentSchemaJSON),
	Template: prompts.PromptTemplate{
		TemplateFormat: prompts.TemplateFormatGoTemplate,
		InputVariables: []string{"serverName", "homepageUrl", "repoUrl", "repoReadme"},
		Template: `Given the following inputs about an MCP server, generate a concise summary.

**Server Name:** {{.serverName}}
**Homepage URL:** {{.homepageUrl}}
**Repository URL:** {{.repoUrl}}
**Repository README:** {{.repoReadme}}

Generate a summary that:
- Is under 160 characters for SEO
- Clearly explains what the server does
- Focuses on the primary function/capability
- Is engaging and clear
- Doesn't start with "MCP Server that" or "This MCP Server provides"
- Goes straight to describing what it does (e.g. "Manages cloud infrastructure", "Provides weather data", etc.)

Respond with a JSON object of the form {"summary": "..."}.

Keep it simple and focused on the core value proposition.`,
	},
}

// CategorizeServerTemplate assigns a server to existing categories or
// proposes new ones.
var CategorizeServerTemplate = ObjectPromptTemplate{
	ID:           "categorize-server",
	SystemPrompt: "You are an expert at categorizing MCP (Model Context Protocol) servers. Focus on what the MCP server does functionally, not the technology stack. Remember: these are MCP servers, not general open source projects.",
	Schema:       jsonschema.MustCompileString("categorize-server.json", categorizeServerSchemaJSON),
	Template: prompts.PromptTemplate{
		TemplateFormat: prompts.TemplateFormatGoTemplate,
		InputVariables: []string{"serverName", "categories", "additionalContext", "shortDescription", "longDescription"},
		Template: `You are tasked to assign the following MCP server to the most relevant category/categories.

You are given the server details and current list of categories in the database. You should assign the server to the relevant categories, but if none of them are relevant, you should add a new category.

**Server Name:** {{.serverName}}
**Existing Categories:** {{.categories}}
**Additional Context:** {{.additionalContext}}
**Short Description:** {{.shortDescription}}
**Long Description:** {{.longDescription}}

Examples of good MCP server categories: "API Tools", "File Management", "Database", "Web Scraping", "AI/ML", "Development Tools", "System Monitoring", "Data Processing", "Communication", "Authentication".

**IMPORTANT OUTPUT FORMAT:**
You MUST return a JSON object with exactly these two properties:
- "categories": array of existing category names that match this server
- "categoriesToAdd": array of new category names to create if no existing ones fit

**Example Output:**
{"categories": ["API Tools", "Development Tools"], "categoriesToAdd": ["Documentation"]}

**Another Example (when no existing categories match):**
{"categories": [], "categoriesToAdd": ["Cloud Storage", "File Sync"]}

Requirements:
- Focus on what the MCP server does functionally, not the technology stack
- You should not force assigning categories if there are no relevant ones - just add new categories
- Keep category names short and focused on MCP server functionality
- Assign 1-3 categories maximum
- Remember: these are MCP servers, not general open source projects`,
	},
}
